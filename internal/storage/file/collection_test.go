package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerbrief/internal/common"
	"github.com/ternarybob/tickerbrief/internal/models"
)

func newTestStorage(t *testing.T) (*CollectionStorage, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out", "data.json")
	return NewCollectionStorage(&common.FileConfig{Path: path}, arbor.NewLogger()), path
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s, _ := newTestStorage(t)

	reports, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, reports)
	assert.Empty(t, reports)
}

func TestLoad_BlankAndNullAreEmpty(t *testing.T) {
	for _, content := range []string{"", "  \n", "null"} {
		s, path := newTestStorage(t)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		reports, err := s.Load(context.Background())
		require.NoError(t, err, "content %q", content)
		assert.Empty(t, reports)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	s, path := newTestStorage(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "2330",`), 0644))

	_, err := s.Load(context.Background())
	assert.Error(t, err)
}

func TestLoad_KeyedObjectKeepsOrder(t *testing.T) {
	s, path := newTestStorage(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	legacy := `{
  "2454": {"name": "MediaTek", "category": "semis", "memo": "watch"},
  "2330": {"id": "2330", "name": "TSMC", "news": null}
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	reports, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "2454", reports[0].ID)
	assert.Equal(t, "watch", reports[0].Memo)
	assert.Equal(t, "2330", reports[1].ID)
	assert.NotNil(t, reports[1].News)
}

func TestSaveLoad_RoundTripPreservesOrderAndText(t *testing.T) {
	s, path := newTestStorage(t)
	reports := []*models.Report{
		{ID: "2330", Name: "台積電", Category: "半導體", Memo: "長期持有 <core>"},
		{ID: "2317", Name: "鴻海"},
	}
	for _, r := range reports {
		r.Normalize()
	}

	require.NoError(t, s.Save(context.Background(), reports))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.True(t, strings.HasPrefix(text, "[\n  {"), "indented array")
	assert.Contains(t, text, "台積電")
	assert.Contains(t, text, "<core>")
	assert.Contains(t, text, `"news": []`)

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reports, loaded)
}

func TestSave_NilWritesEmptyArray(t *testing.T) {
	s, path := newTestStorage(t)

	require.NoError(t, s.Save(context.Background(), nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(raw))
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	s, path := newTestStorage(t)

	require.NoError(t, s.Save(context.Background(), []*models.Report{{ID: "A"}}))
	require.NoError(t, s.Save(context.Background(), []*models.Report{{ID: "B"}}))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data.json", entries[0].Name())
}

func TestSave_FailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "data.json")
	s := NewCollectionStorage(&common.FileConfig{Path: target}, arbor.NewLogger())
	require.NoError(t, s.Save(context.Background(), []*models.Report{{ID: "A"}}))

	// A directory in place of the target makes the rename fail
	blocked := NewCollectionStorage(&common.FileConfig{Path: dir}, arbor.NewLogger())
	err := blocked.Save(context.Background(), []*models.Report{{ID: "B"}})
	require.Error(t, err)

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "A", loaded[0].ID)
}

func writeCollection(t *testing.T, content string) *CollectionStorage {
	t.Helper()
	s, path := newTestStorage(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return s
}

// legacyCollection is the keyed layout with the model output stored verbatim
const legacyCollection = `{
  "2330": {
    "trend_status": "多頭排列",
    "calendar": ["10/16 earnings call", "11/20 ex-dividend"],
    "technical": "above MA20",
    "id": "2330",
    "name": "Taiwan Semiconductor Manufacturing Company Limited",
    "price": 1045.5,
    "eps_trend": [
      {"year": "2022", "eps": 39.2},
      {"year": "2023", "eps": 32.34},
      {"year": 2024, "eps": "45.25"},
      {"year": "", "eps": 1},
      {"year": "2025"}
    ],
    "lastUpdated": "2026-10-14 09:30"
  },
  "2317": "not a record",
  "2454": {
    "industry": {"moat": "IP portfolio", "position": 7, "outlook": ["bad"]},
    "news": [{"title": "Dimensity launch", "comment": "positive"}, {"comment": "untitled"}, "Bare headline", 5],
    "chart": {"dates": ["2026-09", "2026-10"], "price": [1300, 1350], "upperBand": [1, "x"]},
    "basicInfo": {"price": "1350", "change": 10, "changePercent": 0.75}
  }
}`

func TestLoad_LegacyKeyedLayout(t *testing.T) {
	s := writeCollection(t, legacyCollection)

	reports, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2, "non-object record skipped, the rest kept")

	tsmc := reports[0]
	assert.Equal(t, "2330", tsmc.ID)
	assert.Equal(t, 1045.5, tsmc.BasicInfo.Price, "top-level price maps into basicInfo")
	assert.Equal(t, "above MA20", tsmc.Technical.Summary)
	assert.Equal(t, "多頭排列", tsmc.Technical.Trend)
	assert.Equal(t, []models.CalendarEvent{{Event: "10/16 earnings call"}, {Event: "11/20 ex-dividend"}}, tsmc.Calendar)
	assert.Equal(t, []models.EPSPoint{
		{Year: "2022", EPS: 39.2},
		{Year: "2023", EPS: 32.34},
		{Year: "2024", EPS: 45.25},
	}, tsmc.EPSTrend)
	assert.Equal(t, "2026-10-14 09:30", tsmc.LastUpdated)
	assert.NotNil(t, tsmc.News)

	mtk := reports[1]
	assert.Equal(t, "2454", mtk.ID, "key fills the missing id")
	assert.Equal(t, models.Industry{Moat: "IP portfolio", Position: "7"}, mtk.Industry)
	assert.Equal(t, []models.NewsItem{
		{Title: "Dimensity launch", Comment: "positive"},
		{Title: "Bare headline"},
		{Title: "5"},
	}, mtk.News)
	assert.Equal(t, []float64{1300, 1350}, mtk.Chart.Price)
	assert.Empty(t, mtk.Chart.UpperBand, "a series with a non-numeric entry is dropped whole")
	assert.NotNil(t, mtk.Chart.UpperBand)
	assert.Equal(t, models.BasicInfo{Price: 1350, Change: 10, ChangePercent: 0.75}, mtk.BasicInfo)
}

func TestLoad_LegacyRecordSurvivesSave(t *testing.T) {
	s := writeCollection(t, `{"2330": {"id": "2330", "price": 1045.5, "eps_trend": [{"year": "2024", "eps": 45.25}]}}`)

	reports, err := s.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), reports))

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"eps_trend": [`)

	reloaded, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, reloaded, 1)
	assert.Equal(t, 1045.5, reloaded[0].BasicInfo.Price)
	assert.Equal(t, []models.EPSPoint{{Year: "2024", EPS: 45.25}}, reloaded[0].EPSTrend)
}

func TestLoad_ArraySkipsUnreadableRecords(t *testing.T) {
	s := writeCollection(t, `[
  {"id": "2330", "calendar": "none", "technical": {"trend": "up"}},
  42,
  {"name": "no id"},
  {"id": "2317", "news": {"title": "not a list"}}
]`)

	reports, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "2330", reports[0].ID)
	assert.Equal(t, "up", reports[0].Technical.Trend)
	assert.Empty(t, reports[0].Calendar)
	assert.Equal(t, "2317", reports[1].ID)
	assert.Empty(t, reports[1].News)
}

func TestLoad_ScalarDocumentIsAnError(t *testing.T) {
	s := writeCollection(t, `"data"`)

	_, err := s.Load(context.Background())
	assert.Error(t, err)
}
