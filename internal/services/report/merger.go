package report

import (
	"math"
	"time"

	"github.com/ternarybob/tickerbrief/internal/models"
)

// Merger combines trusted facts with model output into a complete Report.
// Merge is pure apart from the injected clock and never fails.
type Merger struct {
	now func() time.Time
	loc *time.Location
}

// NewMerger creates a merger stamping lastUpdated in loc
func NewMerger(now func() time.Time, loc *time.Location) *Merger {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Merger{now: now, loc: loc}
}

// Merge builds the record for facts. output may be nil (every candidate
// failed) and prior may be nil (new id); modelID is stamped only when
// output is present.
func (m *Merger) Merge(facts *models.FactSnapshot, output *models.ModelOutput, modelID string, prior *models.Report) *models.Report {
	if facts == nil {
		facts = &models.FactSnapshot{}
	}
	if output == nil {
		output = &models.ModelOutput{}
		modelID = models.NoModel
	}
	if modelID == "" {
		modelID = models.NoModel
	}

	r := &models.Report{
		ID:          facts.ID,
		Name:        displayName(facts, prior),
		Category:    models.DefaultCategory,
		LastUpdated: m.now().In(m.loc).Format(TimestampLayout),
		BasicInfo: models.BasicInfo{
			Price:         facts.Price,
			Change:        facts.Change,
			ChangePercent: facts.ChangePercent,
		},
		Industry:  mergeIndustry(output.Industry),
		Technical: mergeTechnical(output.Technical),
		Dividend:  mergeDividend(output.Dividend),
		News:      mergeNews(output.News, facts.Headlines),
		Calendar:  mergeCalendar(output.Calendar),
		Chart:     mergeChart(facts.Chart, output.Bands),
		EPSTrend:  append([]models.EPSPoint{}, facts.EPSTrend...),
		Model:     modelID,
	}

	if prior != nil {
		if r.ID == "" {
			r.ID = prior.ID
		}
		if prior.Category != "" {
			r.Category = prior.Category
		}
		r.Memo = prior.Memo
	}
	return r
}

// displayName prefers the provider profile, then the prior name, then the id
func displayName(facts *models.FactSnapshot, prior *models.Report) string {
	if facts.DisplayName != "" && facts.DisplayName != facts.ID {
		return facts.DisplayName
	}
	if prior != nil && prior.Name != "" {
		return prior.Name
	}
	if facts.ID != "" {
		return facts.ID
	}
	if prior != nil {
		return prior.ID
	}
	return ""
}

func mergeIndustry(f models.Field[models.Industry]) models.Industry {
	d := defaultIndustry()
	if !f.IsValid() {
		return d
	}
	return models.Industry{
		Moat:     or(f.Value.Moat, d.Moat),
		Position: or(f.Value.Position, d.Position),
		Outlook:  or(f.Value.Outlook, d.Outlook),
	}
}

func mergeTechnical(f models.Field[models.Technical]) models.Technical {
	d := defaultTechnical()
	if !f.IsValid() {
		return d
	}
	return models.Technical{
		Trend:      or(f.Value.Trend, d.Trend),
		Support:    or(f.Value.Support, d.Support),
		Resistance: or(f.Value.Resistance, d.Resistance),
		Summary:    or(f.Value.Summary, d.Summary),
	}
}

func mergeDividend(f models.Field[models.Dividend]) models.Dividend {
	d := defaultDividend()
	if !f.IsValid() {
		return d
	}
	return models.Dividend{
		Policy:  or(f.Value.Policy, d.Policy),
		Yield:   or(f.Value.Yield, d.Yield),
		Outlook: or(f.Value.Outlook, d.Outlook),
	}
}

// mergeNews falls back to the fetched headlines with a placeholder comment
func mergeNews(f models.Field[[]models.NewsItem], headlines []models.Headline) []models.NewsItem {
	if f.IsValid() && len(f.Value) > 0 {
		items := make([]models.NewsItem, len(f.Value))
		for i, item := range f.Value {
			items[i] = item
			items[i].Comment = or(item.Comment, DefaultNewsNote)
		}
		return items
	}

	items := make([]models.NewsItem, 0, len(headlines))
	for _, h := range headlines {
		date := ""
		if !h.PublishedAt.IsZero() {
			date = h.PublishedAt.Format("2006-01-02")
		}
		items = append(items, models.NewsItem{Title: h.Title, Date: date, Comment: DefaultNewsNote})
	}
	return items
}

func mergeCalendar(f models.Field[[]models.CalendarEvent]) []models.CalendarEvent {
	events := make([]models.CalendarEvent, 0)
	if f.IsValid() {
		events = append(events, f.Value...)
	}
	return events
}

// mergeChart keeps the trusted dates and prices. Model bands are used only
// when every series matches the price line length; otherwise they are derived.
func mergeChart(series models.ChartSeries, bands models.Field[models.Bands]) models.Chart {
	chart := models.Chart{
		Dates: append(make([]string, 0, len(series.Dates)), series.Dates...),
		Price: append(make([]float64, 0, len(series.Prices)), series.Prices...),
	}

	if bandsAligned(bands, len(chart.Price)) {
		chart.UpperBand = roundAll(bands.Value.Upper)
		chart.MidBand = roundAll(bands.Value.Mid)
		chart.LowerBand = roundAll(bands.Value.Lower)
		return chart
	}

	chart.UpperBand = DeriveBand(chart.Price, UpperBandFactor)
	chart.MidBand = DeriveBand(chart.Price, MidBandFactor)
	chart.LowerBand = DeriveBand(chart.Price, LowerBandFactor)
	return chart
}

func bandsAligned(bands models.Field[models.Bands], n int) bool {
	if !bands.IsValid() || n == 0 {
		return false
	}
	for _, s := range [][]float64{bands.Value.Upper, bands.Value.Mid, bands.Value.Lower} {
		if len(s) != n {
			return false
		}
		for _, v := range s {
			if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// DeriveBand scales the price line by factor, rounded to cents
func DeriveBand(prices []float64, factor float64) []float64 {
	band := make([]float64, len(prices))
	for i, p := range prices {
		band[i] = round2(p * factor)
	}
	return band
}

func roundAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = round2(v)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func or(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
