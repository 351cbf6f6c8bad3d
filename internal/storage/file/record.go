package file

import (
	"math"
	"strconv"
	"strings"

	"github.com/ternarybob/tickerbrief/internal/models"
	"github.com/tidwall/gjson"
)

// decodeRecord reads one stored record field by field so that a malformed
// block costs only that block. It also accepts the older layout, where the
// price sat at the top level and the model's raw output was stored as-is
// (plain strings for technical, string lists for calendar, trend_status).
// ok is false when value is not an object or no id can be established.
func decodeRecord(value gjson.Result, key string) (*models.Report, bool) {
	if !value.IsObject() {
		return nil, false
	}

	r := &models.Report{
		ID:          leaf(value.Get("id")),
		Name:        leaf(value.Get("name")),
		Category:    leaf(value.Get("category")),
		LastUpdated: leaf(value.Get("lastUpdated")),
		Memo:        leaf(value.Get("memo")),
		Model:       leaf(value.Get("model")),
		BasicInfo:   decodeBasicInfo(value),
		Industry:    decodeIndustry(value.Get("industry")),
		Technical:   decodeTechnical(value.Get("technical")),
		Dividend:    decodeDividend(value.Get("dividend")),
		News:        decodeNews(value.Get("news")),
		Calendar:    decodeCalendar(value.Get("calendar")),
		Chart:       decodeChart(value.Get("chart")),
		EPSTrend:    decodeEPSTrend(value.Get("eps_trend")),
	}

	if r.Technical.Trend == "" {
		r.Technical.Trend = leaf(value.Get("trend_status"))
	}
	if strings.TrimSpace(r.ID) == "" {
		r.ID = key
	}
	if strings.TrimSpace(r.ID) == "" {
		return nil, false
	}

	r.Normalize()
	return r, true
}

// decodeBasicInfo falls back to the top-level price of the older layout
func decodeBasicInfo(value gjson.Result) models.BasicInfo {
	src := value.Get("basicInfo")
	if !src.IsObject() {
		src = value
	}
	price, _ := number(src.Get("price"))
	change, _ := number(src.Get("change"))
	changePercent, _ := number(src.Get("changePercent"))
	return models.BasicInfo{Price: price, Change: change, ChangePercent: changePercent}
}

func decodeIndustry(r gjson.Result) models.Industry {
	if r.Type == gjson.String {
		return models.Industry{Outlook: r.String()}
	}
	return models.Industry{
		Moat:     leaf(r.Get("moat")),
		Position: leaf(r.Get("position")),
		Outlook:  leaf(r.Get("outlook")),
	}
}

func decodeTechnical(r gjson.Result) models.Technical {
	if r.Type == gjson.String {
		return models.Technical{Summary: r.String()}
	}
	return models.Technical{
		Trend:      leaf(r.Get("trend")),
		Support:    leaf(r.Get("support")),
		Resistance: leaf(r.Get("resistance")),
		Summary:    leaf(r.Get("summary")),
	}
}

func decodeDividend(r gjson.Result) models.Dividend {
	if r.Type == gjson.String {
		return models.Dividend{Outlook: r.String()}
	}
	return models.Dividend{
		Policy:  leaf(r.Get("policy")),
		Yield:   leaf(r.Get("yield")),
		Outlook: leaf(r.Get("outlook")),
	}
}

// decodeNews keeps object items with a title; bare strings become titles
func decodeNews(r gjson.Result) []models.NewsItem {
	items := []models.NewsItem{}
	if !r.IsArray() {
		return items
	}
	r.ForEach(func(_, e gjson.Result) bool {
		item := models.NewsItem{Title: leaf(e)}
		if e.IsObject() {
			item = models.NewsItem{
				Title:   leaf(e.Get("title")),
				Date:    leaf(e.Get("date")),
				Comment: leaf(e.Get("comment")),
			}
		}
		if item.Title != "" {
			items = append(items, item)
		}
		return true
	})
	return items
}

// decodeCalendar keeps object events; bare strings become undated events
func decodeCalendar(r gjson.Result) []models.CalendarEvent {
	events := []models.CalendarEvent{}
	if !r.IsArray() {
		return events
	}
	r.ForEach(func(_, e gjson.Result) bool {
		event := models.CalendarEvent{Event: leaf(e)}
		if e.IsObject() {
			event = models.CalendarEvent{
				Date:  leaf(e.Get("date")),
				Event: leaf(e.Get("event")),
			}
		}
		if event.Event != "" || event.Date != "" {
			events = append(events, event)
		}
		return true
	})
	return events
}

func decodeChart(r gjson.Result) models.Chart {
	chart := models.Chart{
		Dates:     []string{},
		Price:     series(r.Get("price")),
		UpperBand: series(r.Get("upperBand")),
		MidBand:   series(r.Get("midBand")),
		LowerBand: series(r.Get("lowerBand")),
	}
	r.Get("dates").ForEach(func(_, d gjson.Result) bool {
		chart.Dates = append(chart.Dates, leaf(d))
		return true
	})
	return chart
}

// series is empty unless every element is numeric, keeping bands aligned by index
func series(r gjson.Result) []float64 {
	values := []float64{}
	if !r.IsArray() {
		return values
	}
	for _, e := range r.Array() {
		v, ok := number(e)
		if !ok {
			return []float64{}
		}
		values = append(values, v)
	}
	return values
}

// decodeEPSTrend accepts numeric or string years and eps values
func decodeEPSTrend(r gjson.Result) []models.EPSPoint {
	points := []models.EPSPoint{}
	if !r.IsArray() {
		return points
	}
	r.ForEach(func(_, e gjson.Result) bool {
		year := leaf(e.Get("year"))
		eps, ok := number(e.Get("eps"))
		if year != "" && ok {
			points = append(points, models.EPSPoint{Year: year, EPS: eps})
		}
		return true
	})
	return points
}

// leaf returns string values verbatim and numbers in their literal form
func leaf(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.String()
	case gjson.Number:
		return r.Raw
	default:
		return ""
	}
}

func number(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Float(), true
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.String()), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}
