package facts

import (
	"math"
	"sort"

	"github.com/ternarybob/tickerbrief/internal/models"
)

// MonthEnd resamples daily closes to the last close of each calendar month
// and keeps the most recent keep points. Labels use the YYYY-MM form.
func MonthEnd(points []models.PricePoint, keep int) models.ChartSeries {
	series := models.ChartSeries{Dates: []string{}, Prices: []float64{}}
	if len(points) == 0 || keep <= 0 {
		return series
	}

	var lastKey string
	for _, p := range ascending(points) {
		if p.Close <= 0 || math.IsNaN(p.Close) || math.IsInf(p.Close, 0) {
			continue
		}
		key := p.Date.Format("2006-01")
		if key == lastKey {
			series.Prices[len(series.Prices)-1] = round2(p.Close)
			continue
		}
		series.Dates = append(series.Dates, key)
		series.Prices = append(series.Prices, round2(p.Close))
		lastKey = key
	}

	if len(series.Dates) > keep {
		series.Dates = series.Dates[len(series.Dates)-keep:]
		series.Prices = series.Prices[len(series.Prices)-keep:]
	}
	return series
}

// ComputeIndicators derives moving averages, RSI and the trend signal.
// Input order does not matter.
func ComputeIndicators(points []models.PricePoint) models.Indicators {
	closes := make([]float64, 0, len(points))
	for _, p := range ascending(points) {
		if p.Close > 0 {
			closes = append(closes, p.Close)
		}
	}
	if len(closes) == 0 {
		return models.Indicators{Trend: "NEUTRAL"}
	}

	ind := models.Indicators{
		SMA20:  round2(sma(closes, 20)),
		SMA50:  round2(sma(closes, 50)),
		SMA200: round2(sma(closes, 200)),
		RSI14:  round2(rsi(closes, 14)),
	}

	recent := closes
	if len(recent) > 20 {
		recent = recent[len(recent)-20:]
	}
	ind.Support, ind.Resistance = recent[0], recent[0]
	for _, c := range recent {
		ind.Support = math.Min(ind.Support, c)
		ind.Resistance = math.Max(ind.Resistance, c)
	}

	ind.Trend = trend(closes[len(closes)-1], ind.SMA20, ind.SMA50, ind.SMA200, ind.RSI14)
	return ind
}

// ascending returns a date-ordered copy of points
func ascending(points []models.PricePoint) []models.PricePoint {
	sorted := make([]models.PricePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// sma returns zero when there are fewer closes than the period
func sma(closes []float64, period int) float64 {
	if len(closes) < period || period <= 0 {
		return 0
	}
	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period)
}

func rsi(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50 // Neutral if not enough data
	}

	gains, losses := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	if losses == 0 {
		return 100
	}
	return 100 - (100 / (1 + gains/losses))
}

func trend(price, sma20, sma50, sma200, rsi float64) string {
	bullish, bearish := 0, 0

	for _, avg := range []float64{sma20, sma50, sma200} {
		if avg <= 0 {
			continue
		}
		if price > avg {
			bullish++
		} else {
			bearish++
		}
	}

	// Golden/death cross
	if sma50 > 0 {
		if sma20 > sma50 {
			bullish++
		} else {
			bearish++
		}
	}

	switch {
	case rsi >= 70:
		bearish++ // Overbought
	case rsi <= 30:
		bullish++ // Oversold
	case rsi > 50:
		bullish++
	case rsi < 50:
		bearish++
	}

	switch {
	case bullish > bearish+1:
		return "BULLISH"
	case bearish > bullish+1:
		return "BEARISH"
	default:
		return "NEUTRAL"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
