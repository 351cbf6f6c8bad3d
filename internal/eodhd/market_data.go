package eodhd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/tickerbrief/internal/common"
	"github.com/ternarybob/tickerbrief/internal/interfaces"
	"github.com/ternarybob/tickerbrief/internal/models"
)

// MarketData adapts the EODHD client to interfaces.MarketDataProvider.
// Collection ids are resolved to EODHD symbols with common.ParseTicker.
type MarketData struct {
	client *Client
	now    func() time.Time
}

var _ interfaces.MarketDataProvider = (*MarketData)(nil)

// NewMarketData creates the adapter
func NewMarketData(client *Client) *MarketData {
	return &MarketData{
		client: client,
		now:    time.Now,
	}
}

// Symbol returns the EODHD symbol for a collection id
func (m *MarketData) Symbol(id string) (string, error) {
	symbol := common.ParseTicker(id).EODHDSymbol()
	if symbol == "" {
		return "", fmt.Errorf("invalid ticker id %q", id)
	}
	return symbol, nil
}

func (m *MarketData) GetQuote(ctx context.Context, id string) (*models.Quote, error) {
	symbol, err := m.Symbol(id)
	if err != nil {
		return nil, err
	}

	quote, err := m.client.GetRealTimeQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("real-time quote for %s: %w", symbol, err)
	}

	return &models.Quote{
		LastPrice:     float64(quote.Close),
		PreviousClose: float64(quote.PreviousClose),
	}, nil
}

// GetRecentHistory returns the last window daily closes.
// Three calendar days per trading day plus a week covers holidays.
func (m *MarketData) GetRecentHistory(ctx context.Context, id string, window int) ([]models.PricePoint, error) {
	if window <= 0 {
		return []models.PricePoint{}, nil
	}

	points, err := m.history(ctx, id, window*3+7)
	if err != nil {
		return nil, err
	}
	if len(points) > window {
		points = points[len(points)-window:]
	}
	return points, nil
}

func (m *MarketData) GetLongHistory(ctx context.Context, id string, lookbackDays int) ([]models.PricePoint, error) {
	if lookbackDays <= 0 {
		return []models.PricePoint{}, nil
	}
	return m.history(ctx, id, lookbackDays)
}

func (m *MarketData) history(ctx context.Context, id string, calendarDays int) ([]models.PricePoint, error) {
	symbol, err := m.Symbol(id)
	if err != nil {
		return nil, err
	}

	to := m.now()
	from := to.AddDate(0, 0, -calendarDays)

	bars, err := m.client.GetEOD(ctx, symbol, WithDateRange(from, to), WithOrder("a"))
	if err != nil {
		return nil, fmt.Errorf("eod history for %s: %w", symbol, err)
	}

	points := make([]models.PricePoint, 0, len(bars))
	for _, bar := range bars {
		if bar.Date.IsZero() || bar.Close <= 0 {
			continue
		}
		points = append(points, models.PricePoint{Date: bar.Date, Close: float64(bar.Close)})
	}
	return points, nil
}

func (m *MarketData) GetRecentNews(ctx context.Context, id string, limit int) ([]models.Headline, error) {
	if limit <= 0 {
		return []models.Headline{}, nil
	}

	symbol, err := m.Symbol(id)
	if err != nil {
		return nil, err
	}

	items, err := m.client.GetNews(ctx, []string{symbol}, WithLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("news for %s: %w", symbol, err)
	}

	headlines := make([]models.Headline, 0, limit)
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		headlines = append(headlines, models.Headline{Title: title, PublishedAt: item.Date})
		if len(headlines) == limit {
			break
		}
	}
	return headlines, nil
}

// GetProfile returns nil without error when EODHD has no name for the symbol
func (m *MarketData) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	symbol, err := m.Symbol(id)
	if err != nil {
		return nil, err
	}

	fundamentals, err := m.client.GetFundamentals(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fundamentals for %s: %w", symbol, err)
	}
	if fundamentals.General == nil || strings.TrimSpace(fundamentals.General.Name) == "" {
		return nil, nil
	}
	return &models.Profile{DisplayName: strings.TrimSpace(fundamentals.General.Name)}, nil
}

// GetEPSTrend returns the latest years fiscal-year EPS figures, oldest first.
// Years without a reported figure are skipped.
func (m *MarketData) GetEPSTrend(ctx context.Context, id string, years int) ([]models.EPSPoint, error) {
	if years <= 0 {
		return []models.EPSPoint{}, nil
	}

	symbol, err := m.Symbol(id)
	if err != nil {
		return nil, err
	}

	earnings, err := m.client.GetAnnualEarnings(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("annual earnings for %s: %w", symbol, err)
	}

	dates := make([]string, 0, len(earnings))
	for key, e := range earnings {
		if e.Date == "" {
			e.Date = key
			earnings[key] = e
		}
		dates = append(dates, key)
	}
	sort.Slice(dates, func(i, j int) bool {
		return earnings[dates[i]].Date < earnings[dates[j]].Date
	})

	points := make([]models.EPSPoint, 0, len(dates))
	for _, key := range dates {
		e := earnings[key]
		if len(e.Date) < 4 || e.EPSActual == 0 {
			continue
		}
		year := e.Date[:4]
		// A later year-end in the same calendar year replaces the earlier one
		if n := len(points); n > 0 && points[n-1].Year == year {
			points[n-1].EPS = float64(e.EPSActual)
			continue
		}
		points = append(points, models.EPSPoint{Year: year, EPS: float64(e.EPSActual)})
	}

	if len(points) > years {
		points = points[len(points)-years:]
	}
	return points, nil
}
