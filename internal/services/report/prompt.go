package report

import (
	"fmt"
	"strings"

	"github.com/ternarybob/tickerbrief/internal/models"
)

// PromptBuilder renders the facts of one ticker into the generation request
type PromptBuilder struct {
	language string
}

// NewPromptBuilder creates a builder asking for commentary in language
func NewPromptBuilder(language string) *PromptBuilder {
	if strings.TrimSpace(language) == "" {
		language = "English"
	}
	return &PromptBuilder{language: language}
}

// Build returns the prompt. The facts are context only; the response
// schema asks for qualitative fields and valuation bands, never prices.
func (b *PromptBuilder) Build(facts *models.FactSnapshot) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are an equity research analyst covering %s (%s, EODHD symbol %s).\n", facts.DisplayName, facts.ID, facts.Symbol)
	fmt.Fprintf(&sb, "Write every text value in %s. Respond with a single JSON object and nothing else.\n\n", b.language)

	sb.WriteString("## Verified market data\n")
	fmt.Fprintf(&sb, "- Last price: %.2f\n", facts.Price)
	fmt.Fprintf(&sb, "- Change: %+.2f (%+.2f%%)\n", facts.Change, facts.ChangePercent)

	ind := facts.Indicators
	if ind.SMA20 > 0 {
		fmt.Fprintf(&sb, "- SMA20 %.2f, SMA50 %.2f, SMA200 %.2f, RSI14 %.1f, signal %s\n", ind.SMA20, ind.SMA50, ind.SMA200, ind.RSI14, ind.Trend)
		fmt.Fprintf(&sb, "- 20-session range: %.2f to %.2f\n", ind.Support, ind.Resistance)
	}

	if len(facts.Chart.Prices) > 0 {
		sb.WriteString("- Month-end closes:")
		for i, p := range facts.Chart.Prices {
			fmt.Fprintf(&sb, " %s=%.2f", facts.Chart.Dates[i], p)
		}
		sb.WriteString("\n")
	}

	if len(facts.EPSTrend) > 0 {
		sb.WriteString("- Annual EPS:")
		for _, p := range facts.EPSTrend {
			fmt.Fprintf(&sb, " %s=%.2f", p.Year, p.EPS)
		}
		sb.WriteString("\n")
	}

	if len(facts.Headlines) > 0 {
		sb.WriteString("\n## Recent headlines\n")
		for _, h := range facts.Headlines {
			if h.PublishedAt.IsZero() {
				fmt.Fprintf(&sb, "- %s\n", h.Title)
				continue
			}
			fmt.Fprintf(&sb, "- [%s] %s\n", h.PublishedAt.Format("2006-01-02"), h.Title)
		}
	}

	sb.WriteString("\n## Response schema\n")
	sb.WriteString(`{
  "industry": {"moat": string, "position": string, "outlook": string},
  "technical": {"trend": string, "support": string, "resistance": string, "summary": string},
  "dividend": {"policy": string, "yield": string, "outlook": string},
  "news": [{"title": string, "date": "YYYY-MM-DD", "comment": string}],
  "calendar": [{"date": "YYYY-MM-DD", "event": string}],
  "valuationBands": {"upper": [number], "mid": [number], "lower": [number]}
}
`)
	sb.WriteString("\nRules:\n")
	sb.WriteString("- news: one entry per headline above, with a one-sentence comment on its impact.\n")
	sb.WriteString("- calendar: known upcoming events such as earnings calls, ex-dividend dates or shareholder meetings; use [] when unsure.\n")
	if n := len(facts.Chart.Prices); n > 0 {
		fmt.Fprintf(&sb, "- valuationBands: exactly %d positive numbers per series, aligned with the month-end closes (e.g. price-to-earnings bands).\n", n)
	} else {
		sb.WriteString("- valuationBands: omit this field.\n")
	}
	sb.WriteString("- Do not restate prices or invent figures outside the valuation bands.\n")

	return sb.String()
}
