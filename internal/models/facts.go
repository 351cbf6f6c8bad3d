package models

import "time"

// PriceSource records how FactSnapshot.Price was established
type PriceSource string

const (
	PriceSourceQuote   PriceSource = "quote"
	PriceSourceHistory PriceSource = "history"
	PriceSourceNone    PriceSource = "none"
)

// Quote is a real-time price. Either value may be zero when unknown.
type Quote struct {
	LastPrice     float64
	PreviousClose float64
}

// PricePoint is one daily close
type PricePoint struct {
	Date  time.Time
	Close float64
}

// Headline is a news item as published, before any commentary
type Headline struct {
	Title       string
	PublishedAt time.Time
}

// Profile is the descriptive data of a security
type Profile struct {
	DisplayName string
}

// ChartSeries is the trusted month-end price line
type ChartSeries struct {
	Dates  []string
	Prices []float64
}

// Indicators are computed from the daily closes of the long history.
// Zero values mean not enough data.
type Indicators struct {
	SMA20      float64
	SMA50      float64
	SMA200     float64
	RSI14      float64
	Support    float64 // lowest close of the last 20 sessions
	Resistance float64 // highest close of the last 20 sessions
	Trend      string  // BULLISH, BEARISH, NEUTRAL
}

// FactSnapshot is the best-effort market picture of one entity.
// Usable is false when no price could be established.
type FactSnapshot struct {
	ID            string
	Symbol        string
	DisplayName   string
	Price         float64
	Change        float64
	ChangePercent float64
	PriceSource   PriceSource
	Headlines     []Headline
	Chart         ChartSeries
	Indicators    Indicators
	EPSTrend      []EPSPoint // oldest year first
	Usable        bool
	FetchedAt     time.Time
}
