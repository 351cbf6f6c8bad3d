package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
	"github.com/ternarybob/tickerbrief/internal/models"
)

var (
	// ErrEmptyResponse is returned when the model produced no text
	ErrEmptyResponse = errors.New("empty model response")
	// ErrInvalidOutput is returned when the payload is not a JSON object
	// carrying at least one well-formed report block
	ErrInvalidOutput = errors.New("model response is not a usable report object")
)

var (
	fencePattern = regexp.MustCompile(`(?s)^\s*` + "```" + `(?:json|JSON)?\s*\n?(.*?)\n?\s*` + "```" + `\s*$`)
	validate     = validator.New()
)

// StripFences removes markdown code fences and any prose around the JSON object
func StripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if matches := fencePattern.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = strings.TrimSpace(matches[1])
	}

	if gjson.Valid(cleaned) {
		return cleaned
	}

	// Some responses wrap the object in an explanation or an unterminated fence
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		return cleaned[start : end+1]
	}
	return cleaned
}

// ParseOutput unwraps and parses a raw model response.
// An error means the whole response is unusable; malformed blocks inside a
// usable response are reported per field instead.
func ParseOutput(text string) (*models.ModelOutput, error) {
	payload := StripFences(text)
	if payload == "" {
		return nil, ErrEmptyResponse
	}
	if !gjson.Valid(payload) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidOutput)
	}

	root := gjson.Parse(payload)
	if !root.IsObject() {
		return nil, ErrInvalidOutput
	}

	out := &models.ModelOutput{
		Industry:  parseIndustry(root.Get("industry")),
		Technical: parseTechnical(root.Get("technical")),
		Dividend:  parseDividend(root.Get("dividend")),
		News:      parseNews(root.Get("news")),
		Calendar:  parseCalendar(root.Get("calendar")),
		Bands:     parseBands(root),
	}

	// An error envelope or an unrelated object is the wrong shape
	if !out.Usable() {
		return nil, fmt.Errorf("%w: no recognised report fields", ErrInvalidOutput)
	}
	return out, nil
}

func parseIndustry(r gjson.Result) models.Field[models.Industry] {
	if !r.Exists() {
		return models.Field[models.Industry]{}
	}
	if !r.IsObject() {
		return models.Invalid[models.Industry]()
	}
	v := models.Industry{
		Moat:     text(r, "moat"),
		Position: text(r, "position"),
		Outlook:  text(r, "outlook"),
	}
	if v == (models.Industry{}) {
		return models.Invalid[models.Industry]()
	}
	return models.Valid(v)
}

func parseTechnical(r gjson.Result) models.Field[models.Technical] {
	if !r.Exists() {
		return models.Field[models.Technical]{}
	}
	if !r.IsObject() {
		return models.Invalid[models.Technical]()
	}
	v := models.Technical{
		Trend:      text(r, "trend"),
		Support:    text(r, "support"),
		Resistance: text(r, "resistance"),
		Summary:    text(r, "summary"),
	}
	if v == (models.Technical{}) {
		return models.Invalid[models.Technical]()
	}
	return models.Valid(v)
}

func parseDividend(r gjson.Result) models.Field[models.Dividend] {
	if !r.Exists() {
		return models.Field[models.Dividend]{}
	}
	if !r.IsObject() {
		return models.Invalid[models.Dividend]()
	}
	v := models.Dividend{
		Policy:  text(r, "policy"),
		Yield:   text(r, "yield"),
		Outlook: text(r, "outlook"),
	}
	if v == (models.Dividend{}) {
		return models.Invalid[models.Dividend]()
	}
	return models.Valid(v)
}

// parseNews keeps the well-formed items; an array with none is invalid
func parseNews(r gjson.Result) models.Field[[]models.NewsItem] {
	if !r.Exists() {
		return models.Field[[]models.NewsItem]{}
	}
	if !r.IsArray() {
		return models.Invalid[[]models.NewsItem]()
	}

	elems := r.Array()
	items := make([]models.NewsItem, 0, len(elems))
	for _, e := range elems {
		if !e.IsObject() {
			continue
		}
		item := models.NewsItem{
			Title:   text(e, "title"),
			Date:    text(e, "date"),
			Comment: text(e, "comment"),
		}
		if validate.Struct(item) == nil {
			items = append(items, item)
		}
	}
	if len(elems) > 0 && len(items) == 0 {
		return models.Invalid[[]models.NewsItem]()
	}
	return models.Valid(items)
}

func parseCalendar(r gjson.Result) models.Field[[]models.CalendarEvent] {
	if !r.Exists() {
		return models.Field[[]models.CalendarEvent]{}
	}
	if !r.IsArray() {
		return models.Invalid[[]models.CalendarEvent]()
	}

	elems := r.Array()
	events := make([]models.CalendarEvent, 0, len(elems))
	for _, e := range elems {
		if !e.IsObject() {
			continue
		}
		event := models.CalendarEvent{
			Date:  text(e, "date"),
			Event: text(e, "event"),
		}
		if validate.Struct(event) == nil {
			events = append(events, event)
		}
	}
	if len(elems) > 0 && len(events) == 0 {
		return models.Invalid[[]models.CalendarEvent]()
	}
	return models.Valid(events)
}

// parseBands reads "valuationBands" {upper, mid, lower}, or the record-shaped
// chart.upperBand/midBand/lowerBand when the model echoes the chart back.
// Alignment with the trusted price line is checked at merge time.
func parseBands(root gjson.Result) models.Field[models.Bands] {
	var upper, mid, lower gjson.Result
	if b := root.Get("valuationBands"); b.Exists() {
		if !b.IsObject() {
			return models.Invalid[models.Bands]()
		}
		upper, mid, lower = b.Get("upper"), b.Get("mid"), b.Get("lower")
	} else if c := root.Get("chart"); c.IsObject() && c.Get("upperBand").Exists() {
		upper, mid, lower = c.Get("upperBand"), c.Get("midBand"), c.Get("lowerBand")
	} else {
		return models.Field[models.Bands]{}
	}

	bands := models.Bands{}
	var ok bool
	if bands.Upper, ok = floats(upper); !ok {
		return models.Invalid[models.Bands]()
	}
	if bands.Mid, ok = floats(mid); !ok {
		return models.Invalid[models.Bands]()
	}
	if bands.Lower, ok = floats(lower); !ok {
		return models.Invalid[models.Bands]()
	}
	if err := validate.Struct(bands); err != nil {
		return models.Invalid[models.Bands]()
	}
	return models.Valid(bands)
}

// floats accepts only arrays of JSON numbers
func floats(r gjson.Result) ([]float64, bool) {
	if !r.IsArray() {
		return nil, false
	}
	elems := r.Array()
	values := make([]float64, 0, len(elems))
	for _, e := range elems {
		if e.Type != gjson.Number {
			return nil, false
		}
		values = append(values, e.Float())
	}
	return values, true
}

// text returns a trimmed string leaf; numbers keep their literal form
func text(r gjson.Result, key string) string {
	v := r.Get(key)
	switch v.Type {
	case gjson.String:
		return strings.TrimSpace(v.String())
	case gjson.Number:
		return v.Raw
	default:
		return ""
	}
}
