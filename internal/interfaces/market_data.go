// Package interfaces provides service interfaces for dependency injection.
package interfaces

import (
	"context"

	"github.com/ternarybob/tickerbrief/internal/models"
)

// MarketDataProvider is the market-data collaborator of the fact retriever.
// Every call may fail or return empty; callers treat both the same way.
type MarketDataProvider interface {
	// GetQuote returns the real-time price. Zero values mean unknown.
	GetQuote(ctx context.Context, id string) (*models.Quote, error)

	// GetRecentHistory returns up to window trading-day closes, oldest first
	GetRecentHistory(ctx context.Context, id string, window int) ([]models.PricePoint, error)

	// GetLongHistory returns daily closes from now-lookback until now, oldest first
	GetLongHistory(ctx context.Context, id string, lookbackDays int) ([]models.PricePoint, error)

	// GetRecentNews returns up to limit headlines, newest first
	GetRecentNews(ctx context.Context, id string, limit int) ([]models.Headline, error)

	// GetProfile returns descriptive data, or nil when the provider has none
	GetProfile(ctx context.Context, id string) (*models.Profile, error)

	// GetEPSTrend returns up to years annual EPS figures, oldest first
	GetEPSTrend(ctx context.Context, id string, years int) ([]models.EPSPoint, error)
}
