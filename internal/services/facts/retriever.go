// -----------------------------------------------------------------------
// Retriever - Best-effort market fact snapshot for one ticker
// Quote, news, chart, profile and EPS are resolved independently; a failure in
// one never blocks the others and nothing is returned as an error.
// -----------------------------------------------------------------------

package facts

import (
	"context"
	"math"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerbrief/internal/common"
	"github.com/ternarybob/tickerbrief/internal/interfaces"
	"github.com/ternarybob/tickerbrief/internal/models"
)

const (
	// LongHistoryDays is the lookback of the chart and indicator series
	LongHistoryDays = 365
)

// Retriever wraps the market-data collaborator
type Retriever struct {
	market      interfaces.MarketDataProvider
	logger      arbor.ILogger
	newsLimit   int
	recentDays  int
	chartPoints int
	epsYears    int
	now         func() time.Time
}

// NewRetriever creates a retriever using the [refresh] limits
func NewRetriever(market interfaces.MarketDataProvider, config common.RefreshConfig, logger arbor.ILogger) *Retriever {
	r := &Retriever{
		market:      market,
		logger:      logger,
		newsLimit:   config.NewsLimit,
		recentDays:  config.RecentDays,
		chartPoints: config.ChartPoints,
		epsYears:    config.EPSYears,
		now:         time.Now,
	}
	if r.newsLimit < 0 {
		r.newsLimit = 0
	}
	if r.recentDays < 2 {
		r.recentDays = 5
	}
	if r.chartPoints <= 0 {
		r.chartPoints = 12
	}
	if r.epsYears < 0 {
		r.epsYears = 0
	}
	return r
}

// Fetch returns the snapshot for id. Usable is false when no price could be established.
func (r *Retriever) Fetch(ctx context.Context, id string) *models.FactSnapshot {
	snapshot := &models.FactSnapshot{
		ID:          id,
		Symbol:      common.ParseTicker(id).EODHDSymbol(),
		DisplayName: id,
		PriceSource: models.PriceSourceNone,
		Headlines:   []models.Headline{},
		Chart:       models.ChartSeries{Dates: []string{}, Prices: []float64{}},
		EPSTrend:    []models.EPSPoint{},
		FetchedAt:   r.now(),
	}

	r.resolvePrice(ctx, snapshot)
	r.resolveNews(ctx, snapshot)
	r.resolveChart(ctx, snapshot)
	r.resolveProfile(ctx, snapshot)
	r.resolveEPS(ctx, snapshot)

	r.logger.Debug().
		Str("id", id).
		Bool("usable", snapshot.Usable).
		Str("price_source", string(snapshot.PriceSource)).
		Float64("price", snapshot.Price).
		Int("headlines", len(snapshot.Headlines)).
		Int("chart_points", len(snapshot.Chart.Prices)).
		Int("eps_years", len(snapshot.EPSTrend)).
		Msg("Fact snapshot resolved")

	return snapshot
}

// resolvePrice tries the real-time quote, then the last close of the recent window
func (r *Retriever) resolvePrice(ctx context.Context, s *models.FactSnapshot) {
	quote, err := r.market.GetQuote(ctx, s.ID)
	if err != nil {
		r.logger.Debug().Err(err).Str("id", s.ID).Msg("Real-time quote unavailable")
	}

	if quote != nil && validPrice(quote.LastPrice) {
		s.Price = quote.LastPrice
		s.PriceSource = models.PriceSourceQuote
		s.Usable = true

		prev := quote.PreviousClose
		if !validPrice(prev) {
			prev = r.previousClose(ctx, s.ID)
		}
		if validPrice(prev) {
			s.Change = s.Price - prev
			s.ChangePercent = s.Change / prev * 100
		}
		r.roundPrice(s)
		return
	}

	history, err := r.market.GetRecentHistory(ctx, s.ID, r.recentDays)
	if err != nil {
		r.logger.Warn().Err(err).Str("id", s.ID).Msg("Recent history unavailable")
		return
	}
	closes := positiveCloses(history)
	if len(closes) == 0 {
		return
	}

	last := closes[len(closes)-1]
	s.Price = last
	s.PriceSource = models.PriceSourceHistory
	s.Usable = true
	if len(closes) >= 2 {
		prev := closes[len(closes)-2]
		s.Change = last - prev
		s.ChangePercent = s.Change / prev * 100
	}
	r.roundPrice(s)
}

// previousClose finds the most recent close before today for quotes lacking one
func (r *Retriever) previousClose(ctx context.Context, id string) float64 {
	history, err := r.market.GetRecentHistory(ctx, id, r.recentDays)
	if err != nil {
		return 0
	}
	today := r.now().Format("2006-01-02")
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Date.Format("2006-01-02") < today && validPrice(history[i].Close) {
			return history[i].Close
		}
	}
	return 0
}

func (r *Retriever) roundPrice(s *models.FactSnapshot) {
	s.Price = round2(s.Price)
	s.Change = round2(s.Change)
	s.ChangePercent = round2(s.ChangePercent)
}

func (r *Retriever) resolveNews(ctx context.Context, s *models.FactSnapshot) {
	if r.newsLimit == 0 {
		return
	}
	headlines, err := r.market.GetRecentNews(ctx, s.ID, r.newsLimit)
	if err != nil {
		r.logger.Warn().Err(err).Str("id", s.ID).Msg("News unavailable")
		return
	}
	if len(headlines) > r.newsLimit {
		headlines = headlines[:r.newsLimit]
	}
	s.Headlines = append(s.Headlines, headlines...)
}

func (r *Retriever) resolveChart(ctx context.Context, s *models.FactSnapshot) {
	history, err := r.market.GetLongHistory(ctx, s.ID, LongHistoryDays)
	if err != nil {
		r.logger.Warn().Err(err).Str("id", s.ID).Msg("Long history unavailable")
		return
	}
	s.Chart = MonthEnd(history, r.chartPoints)
	s.Indicators = ComputeIndicators(history)
}

func (r *Retriever) resolveProfile(ctx context.Context, s *models.FactSnapshot) {
	profile, err := r.market.GetProfile(ctx, s.ID)
	if err != nil {
		r.logger.Debug().Err(err).Str("id", s.ID).Msg("Profile unavailable")
		return
	}
	if profile != nil && profile.DisplayName != "" {
		s.DisplayName = profile.DisplayName
	}
}

func (r *Retriever) resolveEPS(ctx context.Context, s *models.FactSnapshot) {
	if r.epsYears == 0 {
		return
	}
	trend, err := r.market.GetEPSTrend(ctx, s.ID, r.epsYears)
	if err != nil {
		r.logger.Debug().Err(err).Str("id", s.ID).Msg("EPS trend unavailable")
		return
	}
	for _, p := range trend {
		if p.Year == "" || math.IsNaN(p.EPS) || math.IsInf(p.EPS, 0) {
			continue
		}
		s.EPSTrend = append(s.EPSTrend, p)
	}
	if len(s.EPSTrend) > r.epsYears {
		s.EPSTrend = s.EPSTrend[len(s.EPSTrend)-r.epsYears:]
	}
}

func positiveCloses(points []models.PricePoint) []float64 {
	closes := make([]float64, 0, len(points))
	for _, p := range points {
		if validPrice(p.Close) {
			closes = append(closes, p.Close)
		}
	}
	return closes
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
