package models

// DefaultCategory is assigned to records that have never been classified
const DefaultCategory = "unclassified"

// NoModel marks a record whose qualitative block came from defaults only
const NoModel = "none"

// Report is one entry of the persisted collection, keyed by ID.
// JSON field names are the contract with the display layer.
type Report struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	LastUpdated string          `json:"lastUpdated"` // 2006-01-02 15:04
	BasicInfo   BasicInfo       `json:"basicInfo"`
	Industry    Industry        `json:"industry"`
	Technical   Technical       `json:"technical"`
	Dividend    Dividend        `json:"dividend"`
	News        []NewsItem      `json:"news"`
	Calendar    []CalendarEvent `json:"calendar"`
	Chart       Chart           `json:"chart"`
	EPSTrend    []EPSPoint      `json:"eps_trend"` // key kept from the legacy display
	Memo        string          `json:"memo"` // user-owned, never written by a refresh
	Model       string          `json:"model"`
}

// BasicInfo holds the quantitative facts. Always sourced from market data.
type BasicInfo struct {
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// Industry is the moat and positioning assessment
type Industry struct {
	Moat     string `json:"moat"`
	Position string `json:"position"`
	Outlook  string `json:"outlook"`
}

// Technical is the chart-reading assessment
type Technical struct {
	Trend      string `json:"trend"`
	Support    string `json:"support"`
	Resistance string `json:"resistance"`
	Summary    string `json:"summary"`
}

// Dividend is the payout assessment
type Dividend struct {
	Policy  string `json:"policy"`
	Yield   string `json:"yield"`
	Outlook string `json:"outlook"`
}

type NewsItem struct {
	Title   string `json:"title" validate:"required"`
	Date    string `json:"date"`
	Comment string `json:"comment"`
}

type CalendarEvent struct {
	Date  string `json:"date" validate:"required"`
	Event string `json:"event" validate:"required"`
}

// EPSPoint is one fiscal year of reported earnings per share
type EPSPoint struct {
	Year string  `json:"year"`
	EPS  float64 `json:"eps"`
}

// Chart is the monthly price line with its valuation bands.
// Every band has the same length as Price.
type Chart struct {
	Dates     []string  `json:"dates"`
	Price     []float64 `json:"price"`
	UpperBand []float64 `json:"upperBand"`
	MidBand   []float64 `json:"midBand"`
	LowerBand []float64 `json:"lowerBand"`
}

// Clone returns a deep copy so carried-over records never alias the prior collection
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	c := *r
	c.News = cloneSlice(r.News)
	c.Calendar = cloneSlice(r.Calendar)
	c.EPSTrend = cloneSlice(r.EPSTrend)
	c.Chart = Chart{
		Dates:     cloneSlice(r.Chart.Dates),
		Price:     cloneSlice(r.Chart.Price),
		UpperBand: cloneSlice(r.Chart.UpperBand),
		MidBand:   cloneSlice(r.Chart.MidBand),
		LowerBand: cloneSlice(r.Chart.LowerBand),
	}
	return &c
}

// cloneSlice keeps nil and empty distinct; they serialise differently
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

// Normalize replaces nil collections with empty ones so they serialise as []
func (r *Report) Normalize() {
	if r.News == nil {
		r.News = []NewsItem{}
	}
	if r.Calendar == nil {
		r.Calendar = []CalendarEvent{}
	}
	if r.EPSTrend == nil {
		r.EPSTrend = []EPSPoint{}
	}
	for _, s := range []*[]float64{&r.Chart.Price, &r.Chart.UpperBand, &r.Chart.MidBand, &r.Chart.LowerBand} {
		if *s == nil {
			*s = []float64{}
		}
	}
	if r.Chart.Dates == nil {
		r.Chart.Dates = []string{}
	}
}
