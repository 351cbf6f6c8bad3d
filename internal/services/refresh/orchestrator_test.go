package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerbrief/internal/common"
	"github.com/ternarybob/tickerbrief/internal/interfaces"
	"github.com/ternarybob/tickerbrief/internal/models"
	"github.com/ternarybob/tickerbrief/internal/services/report"
)

var fixedTime = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type memStorage struct {
	loaded  []*models.Report
	loadErr error
	saveErr error
	saved   []*models.Report
	saves   int
}

func (m *memStorage) Load(ctx context.Context) ([]*models.Report, error) {
	return m.loaded, m.loadErr
}

func (m *memStorage) Save(ctx context.Context, reports []*models.Report) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = reports
	return nil
}

func (m *memStorage) Close() error { return nil }

// stubRetriever reports usable facts only for ids in snapshots
type stubRetriever struct {
	snapshots map[string]*models.FactSnapshot
	calls     []string
	onFetch   func(id string)
}

func (s *stubRetriever) Fetch(ctx context.Context, id string) *models.FactSnapshot {
	s.calls = append(s.calls, id)
	if s.onFetch != nil {
		s.onFetch(id)
	}
	if snap, ok := s.snapshots[id]; ok {
		return snap
	}
	return &models.FactSnapshot{ID: id}
}

type stubResolver struct {
	candidates []string
	calls      int
}

func (s *stubResolver) Resolve(ctx context.Context) []string {
	s.calls++
	return s.candidates
}

type stubInvoker struct {
	output *models.ModelOutput
	model  string
	seen   [][]string
}

func (s *stubInvoker) Invoke(ctx context.Context, prompt string, candidates []string) (*models.ModelOutput, string) {
	s.seen = append(s.seen, candidates)
	if s.output == nil {
		return nil, models.NoModel
	}
	return s.output, s.model
}

// memKV lists newest writes first, like the badger store
type memKV struct {
	mu      sync.Mutex
	values  map[string]string
	written map[string]int
	seq     int
	failDel bool
}

func (m *memKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", interfaces.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) GetPair(ctx context.Context, key string) (*interfaces.KeyValuePair, error) {
	v, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return &interfaces.KeyValuePair{Key: key, Value: v}, nil
}

func (m *memKV) Set(ctx context.Context, key string, value string, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = map[string]string{}
	}
	if m.written == nil {
		m.written = map[string]int{}
	}
	m.seq++
	m.values[key] = value
	m.written[key] = m.seq
	return nil
}

func (m *memKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDel {
		return errors.New("delete refused")
	}
	if _, ok := m.values[key]; !ok {
		return interfaces.ErrKeyNotFound
	}
	delete(m.values, key)
	delete(m.written, key)
	return nil
}

func (m *memKV) ListByPrefix(ctx context.Context, prefix string) ([]interfaces.KeyValuePair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pairs := []interfaces.KeyValuePair{}
	for k, v := range m.values {
		if strings.HasPrefix(k, prefix) {
			pairs = append(pairs, interfaces.KeyValuePair{Key: k, Value: v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return m.written[pairs[i].Key] > m.written[pairs[j].Key]
	})
	return pairs, nil
}

func (m *memKV) keys(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := []string{}
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func usable(id, name string, price float64) *models.FactSnapshot {
	return &models.FactSnapshot{
		ID:          id,
		Symbol:      id + ".TW",
		DisplayName: name,
		Price:       price,
		PriceSource: models.PriceSourceQuote,
		Usable:      true,
		Chart: models.ChartSeries{
			Dates:  []string{"2026-09", "2026-10"},
			Prices: []float64{price - 5, price},
		},
	}
}

func modelOutput() *models.ModelOutput {
	return &models.ModelOutput{
		Industry: models.Valid(models.Industry{Moat: "Scale", Position: "Leader", Outlook: "Stable"}),
	}
}

type harness struct {
	storage   *memStorage
	retriever *stubRetriever
	resolver  *stubResolver
	invoker   *stubInvoker
	kv        *memKV
}

func newHarness(prior []*models.Report, snapshots map[string]*models.FactSnapshot) *harness {
	return &harness{
		storage:   &memStorage{loaded: prior},
		retriever: &stubRetriever{snapshots: snapshots},
		resolver:  &stubResolver{candidates: []string{"model-high", "model-fast"}},
		invoker:   &stubInvoker{output: modelOutput(), model: "model-high"},
	}
}

func (h *harness) orchestrator(config common.RefreshConfig) *Orchestrator {
	if config.PacingDelay == "" {
		config.PacingDelay = "0s"
	}
	deps := Dependencies{
		Storage:   h.storage,
		Retriever: h.retriever,
		Resolver:  h.resolver,
		Invoker:   h.invoker,
		Merger:    report.NewMerger(func() time.Time { return fixedTime }, time.UTC),
		Prompts:   report.NewPromptBuilder("English"),
	}
	if h.kv != nil {
		deps.KV = h.kv
	}
	o := NewOrchestrator(deps, config, arbor.NewLogger())
	o.now = func() time.Time { return fixedTime }
	return o
}

func TestRun_AddsNewTickerAndCarriesOverFailure(t *testing.T) {
	prior := []*models.Report{{ID: "A", Name: "Alpha", Category: "tech", Memo: "watch", LastUpdated: "2026-10-01 09:00"}}
	h := newHarness(prior, map[string]*models.FactSnapshot{"B": usable("B", "Beta", 50)})

	summary, err := h.orchestrator(common.RefreshConfig{}).Run(context.Background(), " b ")
	require.NoError(t, err)

	require.Len(t, h.storage.saved, 2)
	fresh := h.storage.saved[0]
	assert.Equal(t, "B", fresh.ID)
	assert.Equal(t, "Beta", fresh.Name)
	assert.Equal(t, 50.0, fresh.BasicInfo.Price)
	assert.Equal(t, "model-high", fresh.Model)
	assert.Equal(t, models.DefaultCategory, fresh.Category)
	assert.Equal(t, "2026-10-15 09:30", fresh.LastUpdated)

	assert.Same(t, prior[0], h.storage.saved[1], "failed entity keeps its prior record unchanged")
	assert.Equal(t, "watch", h.storage.saved[1].Memo)
	assert.Equal(t, "2026-10-01 09:00", h.storage.saved[1].LastUpdated)

	assert.Equal(t, []string{"B"}, summary.Refreshed)
	assert.Equal(t, []string{"A"}, summary.CarriedOver)
	assert.Empty(t, summary.Dropped)
	assert.Equal(t, map[string]string{"B": "model-high"}, summary.Models)
	assert.Equal(t, 1, h.storage.saves)
}

func TestRun_RefreshKeepsUserOwnedFields(t *testing.T) {
	prior := []*models.Report{{ID: "A", Name: "Alpha", Category: "tech", Memo: "watch"}}
	h := newHarness(prior, map[string]*models.FactSnapshot{"A": usable("A", "Alpha Corp", 10)})

	_, err := h.orchestrator(common.RefreshConfig{}).Run(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, h.storage.saved, 1)
	assert.Equal(t, "tech", h.storage.saved[0].Category)
	assert.Equal(t, "watch", h.storage.saved[0].Memo)
	assert.Equal(t, "Scale", h.storage.saved[0].Industry.Moat)
	assert.Equal(t, 10.0, h.storage.saved[0].BasicInfo.Price)
}

func TestRun_DropsUnusableNewTicker(t *testing.T) {
	h := newHarness(nil, nil)

	summary, err := h.orchestrator(common.RefreshConfig{SeedIDs: []string{"S1"}}).Run(context.Background(), "X")
	require.NoError(t, err)

	assert.NotNil(t, h.storage.saved)
	assert.Empty(t, h.storage.saved)
	assert.Equal(t, []string{"X"}, summary.Dropped)
	assert.Equal(t, []string{"X"}, h.retriever.calls, "seeds are not used when a ticker is added")
}

func TestRun_SeedsEmptyCollectionOnLoadFailure(t *testing.T) {
	h := newHarness(nil, map[string]*models.FactSnapshot{"2330": usable("2330", "TSMC", 1015)})
	h.storage.loadErr = errors.New("corrupt file")

	summary, err := h.orchestrator(common.RefreshConfig{SeedIDs: []string{"2330", "2317", "2330"}}).Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"2330", "2317"}, h.retriever.calls)
	require.Len(t, h.storage.saved, 1)
	assert.Equal(t, "2330", h.storage.saved[0].ID)
	assert.Equal(t, []string{"2317"}, summary.Dropped)
}

func TestRun_CollapsesDuplicatePriorIDs(t *testing.T) {
	prior := []*models.Report{
		{ID: "A", Memo: "first"},
		nil,
		{ID: "", Memo: "anonymous"},
		{ID: "A", Memo: "second"},
		{ID: "B"},
	}
	h := newHarness(prior, nil)

	_, err := h.orchestrator(common.RefreshConfig{}).Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, h.retriever.calls)
	require.Len(t, h.storage.saved, 2)
	assert.Equal(t, "first", h.storage.saved[0].Memo)
	assert.Equal(t, "B", h.storage.saved[1].ID)
}

func TestRun_AddingTrackedIDKeepsOrder(t *testing.T) {
	prior := []*models.Report{{ID: "A"}, {ID: "B"}}
	h := newHarness(prior, nil)

	_, err := h.orchestrator(common.RefreshConfig{}).Run(context.Background(), "b")
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, h.retriever.calls)
	require.Len(t, h.storage.saved, 2)
}

func TestRun_ResolvesCandidatesOncePerRun(t *testing.T) {
	prior := []*models.Report{{ID: "A"}, {ID: "B"}, {ID: "C"}}
	h := newHarness(prior, map[string]*models.FactSnapshot{
		"A": usable("A", "Alpha", 10),
		"B": usable("B", "Beta", 20),
		"C": usable("C", "Gamma", 30),
	})

	summary, err := h.orchestrator(common.RefreshConfig{}).Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 1, h.resolver.calls)
	require.Len(t, h.invoker.seen, 3)
	for _, seen := range h.invoker.seen {
		assert.Equal(t, []string{"model-high", "model-fast"}, seen)
	}
	assert.Equal(t, []string{"model-high", "model-fast"}, summary.Candidates)
	assert.Equal(t, []string{"A", "B", "C"}, summary.Refreshed)
}

func TestRun_AllCandidatesFailingStillRefreshesFacts(t *testing.T) {
	prior := []*models.Report{{ID: "A", Category: "tech"}}
	h := newHarness(prior, map[string]*models.FactSnapshot{"A": usable("A", "Alpha", 10)})
	h.invoker.output = nil

	summary, err := h.orchestrator(common.RefreshConfig{}).Run(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, h.storage.saved, 1)
	assert.Equal(t, models.NoModel, h.storage.saved[0].Model)
	assert.Equal(t, 10.0, h.storage.saved[0].BasicInfo.Price)
	assert.Equal(t, "tech", h.storage.saved[0].Category)
	assert.Equal(t, models.NoModel, summary.Models["A"])
}

func TestRun_SaveFailureIsFatal(t *testing.T) {
	h := newHarness([]*models.Report{{ID: "A"}}, nil)
	h.storage.saveErr = errors.New("disk full")
	h.kv = &memKV{}

	summary, err := h.orchestrator(common.RefreshConfig{}).Run(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NotNil(t, summary)
	assert.True(t, summary.CompletedAt.IsZero())
	assert.Empty(t, h.kv.values, "no summary recorded for a failed run")
}

func TestRun_CancellationWritesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prior := []*models.Report{{ID: "A"}, {ID: "B"}}
	h := newHarness(prior, map[string]*models.FactSnapshot{"A": usable("A", "Alpha", 10)})
	h.retriever.onFetch = func(id string) { cancel() }

	_, err := h.orchestrator(common.RefreshConfig{}).Run(ctx, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, h.storage.saves)
	assert.Equal(t, []string{"A"}, h.retriever.calls)
}

func TestRun_RecordsRunSummary(t *testing.T) {
	h := newHarness([]*models.Report{{ID: "A"}}, map[string]*models.FactSnapshot{"A": usable("A", "Alpha", 10)})
	h.kv = &memKV{}

	summary, err := h.orchestrator(common.RefreshConfig{}).Run(context.Background(), "")
	require.NoError(t, err)

	raw, err := h.kv.Get(context.Background(), LastRunKey)
	require.NoError(t, err)

	var recorded models.RunSummary
	require.NoError(t, json.Unmarshal([]byte(raw), &recorded))
	assert.Equal(t, summary.RunID, recorded.RunID)
	assert.Equal(t, []string{"A"}, recorded.Refreshed)

	_, err = h.kv.Get(context.Background(), RunKeyPrefix+summary.RunID)
	assert.NoError(t, err)
}

func TestRun_PrunesRunHistoryBeyondDepth(t *testing.T) {
	h := newHarness([]*models.Report{{ID: "A"}}, map[string]*models.FactSnapshot{"A": usable("A", "Alpha", 10)})
	h.kv = &memKV{}
	o := h.orchestrator(common.RefreshConfig{HistoryDepth: 2})

	var runIDs []string
	for i := 0; i < 4; i++ {
		summary, err := o.Run(context.Background(), "")
		require.NoError(t, err)
		runIDs = append(runIDs, summary.RunID)
	}

	want := []string{RunKeyPrefix + runIDs[2], RunKeyPrefix + runIDs[3]}
	sort.Strings(want)
	assert.Equal(t, want, h.kv.keys(RunKeyPrefix))

	_, err := h.kv.Get(context.Background(), LastRunKey)
	assert.NoError(t, err, "last run pointer is outside the pruned prefix")
}

func TestRun_ZeroHistoryDepthKeepsAllRuns(t *testing.T) {
	h := newHarness([]*models.Report{{ID: "A"}}, nil)
	h.kv = &memKV{}
	o := h.orchestrator(common.RefreshConfig{})

	for i := 0; i < 3; i++ {
		_, err := o.Run(context.Background(), "")
		require.NoError(t, err)
	}
	assert.Len(t, h.kv.keys(RunKeyPrefix), 3)
}

func TestRun_PruneFailureDoesNotFailRun(t *testing.T) {
	h := newHarness([]*models.Report{{ID: "A"}}, nil)
	h.kv = &memKV{failDel: true}
	o := h.orchestrator(common.RefreshConfig{HistoryDepth: 1})

	for i := 0; i < 2; i++ {
		_, err := o.Run(context.Background(), "")
		require.NoError(t, err)
	}
	assert.Len(t, h.kv.keys(RunKeyPrefix), 2)
}

func TestRun_PacesBetweenEntities(t *testing.T) {
	prior := []*models.Report{{ID: "A"}, {ID: "B"}, {ID: "C"}}
	h := newHarness(prior, nil)

	start := time.Now()
	_, err := h.orchestrator(common.RefreshConfig{PacingDelay: "40ms"}).Run(context.Background(), "")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 75*time.Millisecond, "two gaps between three entities")
}
