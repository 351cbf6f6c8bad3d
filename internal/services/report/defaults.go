package report

import "github.com/ternarybob/tickerbrief/internal/models"

// Derived valuation bands are fixed multiples of the trusted price line
const (
	UpperBandFactor = 1.2
	MidBandFactor   = 1.0
	LowerBandFactor = 0.8
)

// TimestampLayout is the lastUpdated format read by the display layer
const TimestampLayout = "2006-01-02 15:04"

// Per-field placeholders used when the model omitted or corrupted a field
const (
	DefaultMoat       = "Moat assessment pending"
	DefaultPosition   = "Industry position pending"
	DefaultOutlook    = "Industry outlook pending"
	DefaultTrend      = "Trend not assessed"
	DefaultSupport    = "Support level not assessed"
	DefaultResistance = "Resistance level not assessed"
	DefaultSummary    = "Technical summary unavailable"
	DefaultPolicy     = "Dividend policy not assessed"
	DefaultYield      = "Yield not assessed"
	DefaultDivOutlook = "Dividend outlook pending"
	DefaultNewsNote   = "Commentary unavailable"
)

func defaultIndustry() models.Industry {
	return models.Industry{Moat: DefaultMoat, Position: DefaultPosition, Outlook: DefaultOutlook}
}

func defaultTechnical() models.Technical {
	return models.Technical{Trend: DefaultTrend, Support: DefaultSupport, Resistance: DefaultResistance, Summary: DefaultSummary}
}

func defaultDividend() models.Dividend {
	return models.Dividend{Policy: DefaultPolicy, Yield: DefaultYield, Outlook: DefaultDivOutlook}
}
