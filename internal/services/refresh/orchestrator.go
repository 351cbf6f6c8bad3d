// -----------------------------------------------------------------------
// Orchestrator - One incremental refresh cycle over the collection
// LOAD_PRIOR -> BUILD_WORKING_SET -> (REFRESH | CARRY_OVER per id) -> PERSIST
// -----------------------------------------------------------------------

package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerbrief/internal/common"
	"github.com/ternarybob/tickerbrief/internal/interfaces"
	"github.com/ternarybob/tickerbrief/internal/models"
	"golang.org/x/time/rate"
)

const (
	// LastRunKey holds the summary of the most recent completed run
	LastRunKey = "refresh:last_run"
	// RunKeyPrefix prefixes the per-run summaries
	RunKeyPrefix = "refresh:run:"
)

// FactRetriever returns a snapshot for one id and never fails
type FactRetriever interface {
	Fetch(ctx context.Context, id string) *models.FactSnapshot
}

// CandidateResolver ranks the model candidates for a run
type CandidateResolver interface {
	Resolve(ctx context.Context) []string
}

// ModelInvoker runs a prompt through the candidates with fallback
type ModelInvoker interface {
	Invoke(ctx context.Context, prompt string, candidates []string) (*models.ModelOutput, string)
}

// RecordMerger combines facts, model output and the prior record
type RecordMerger interface {
	Merge(facts *models.FactSnapshot, output *models.ModelOutput, modelID string, prior *models.Report) *models.Report
}

// PromptBuilder renders the prompt for one snapshot
type PromptBuilder interface {
	Build(facts *models.FactSnapshot) string
}

// Dependencies are the collaborators of the orchestrator.
// KV is optional; when set, run summaries are recorded there.
type Dependencies struct {
	Storage   interfaces.CollectionStorage
	KV        interfaces.KeyValueStorage
	Retriever FactRetriever
	Resolver  CandidateResolver
	Invoker   ModelInvoker
	Merger    RecordMerger
	Prompts   PromptBuilder
}

// Orchestrator runs refresh cycles
type Orchestrator struct {
	deps         Dependencies
	pacing       time.Duration
	seedIDs      []string
	historyDepth int
	logger       arbor.ILogger
	now          func() time.Time
}

// NewOrchestrator creates an orchestrator using the [refresh] settings
func NewOrchestrator(deps Dependencies, config common.RefreshConfig, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{
		deps:         deps,
		pacing:       config.GetPacingDelay(),
		seedIDs:      config.SeedIDs,
		historyDepth: config.HistoryDepth,
		logger:       logger,
		now:          time.Now,
	}
}

// workItem is one id of the working set. placeholder marks ids with no
// stored record; they are dropped rather than carried over on failure.
type workItem struct {
	id          string
	prior       *models.Report
	placeholder bool
}

// Run performs one cycle. addID, when not already tracked, is prepended.
// Only a persistence failure or cancellation returns an error; nothing is
// written in either case unless the save itself partially ran.
func (o *Orchestrator) Run(ctx context.Context, addID string) (*models.RunSummary, error) {
	summary := models.NewRunSummary(uuid.New().String(), o.now())

	prior := o.loadPrior(ctx)
	work := o.buildWorkingSet(prior, addID)

	o.logger.Info().
		Str("run_id", summary.RunID).
		Int("prior", len(prior)).
		Int("working_set", len(work)).
		Str("add", addID).
		Msg("Refresh started")

	// Resolved once, shared read-only by every entity of this run
	summary.Candidates = o.deps.Resolver.Resolve(ctx)

	var limiter *rate.Limiter
	if o.pacing > 0 {
		limiter = rate.NewLimiter(rate.Every(o.pacing), 1)
	}

	results := make([]*models.Report, 0, len(work))
	for i, item := range work {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return summary, o.aborted(summary, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return summary, o.aborted(summary, err)
		}

		record, refreshed := o.refreshOne(ctx, item, summary.Candidates)
		if err := ctx.Err(); err != nil {
			return summary, o.aborted(summary, err)
		}

		switch {
		case refreshed:
			summary.Refreshed = append(summary.Refreshed, item.id)
			summary.Models[item.id] = record.Model
		case record != nil:
			summary.CarriedOver = append(summary.CarriedOver, item.id)
		default:
			summary.Dropped = append(summary.Dropped, item.id)
		}
		if record != nil {
			results = append(results, record)
		}

		o.logger.Debug().Int("index", i+1).Int("total", len(work)).Str("id", item.id).Bool("refreshed", refreshed).Msg("Entity processed")
	}

	if err := o.deps.Storage.Save(ctx, results); err != nil {
		o.logger.Error().Err(err).Str("run_id", summary.RunID).Msg("Failed to persist collection")
		return summary, fmt.Errorf("failed to persist collection: %w", err)
	}

	summary.CompletedAt = o.now()
	o.recordSummary(ctx, summary)

	o.logger.Info().
		Str("run_id", summary.RunID).
		Int("saved", len(results)).
		Strs("refreshed", summary.Refreshed).
		Strs("carried_over", summary.CarriedOver).
		Strs("dropped", summary.Dropped).
		Dur("elapsed", summary.CompletedAt.Sub(summary.StartedAt)).
		Msg("Refresh completed")

	return summary, nil
}

// refreshOne returns the record to emit and whether it is fresh.
// A nil record means nothing is emitted for this id.
func (o *Orchestrator) refreshOne(ctx context.Context, item workItem, candidates []string) (*models.Report, bool) {
	facts := o.deps.Retriever.Fetch(ctx, item.id)
	if facts == nil || !facts.Usable {
		if item.placeholder {
			o.logger.Warn().Str("id", item.id).Msg("No usable market data for new ticker, not added")
			return nil, false
		}
		o.logger.Warn().Str("id", item.id).Str("last_updated", item.prior.LastUpdated).Msg("No usable market data, keeping prior record")
		return item.prior, false
	}

	prompt := o.deps.Prompts.Build(facts)
	output, modelID := o.deps.Invoker.Invoke(ctx, prompt, candidates)
	if output == nil {
		o.logger.Warn().Str("id", item.id).Int("candidates", len(candidates)).Msg("All model candidates failed, using default commentary")
	}

	record := o.deps.Merger.Merge(facts, output, modelID, item.prior)
	o.logger.Info().
		Str("id", item.id).
		Float64("price", record.BasicInfo.Price).
		Float64("change_percent", record.BasicInfo.ChangePercent).
		Str("model", record.Model).
		Msg("Entity refreshed")
	return record, true
}

// loadPrior treats any load failure as an empty collection
func (o *Orchestrator) loadPrior(ctx context.Context) []*models.Report {
	prior, err := o.deps.Storage.Load(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("Failed to load prior collection, starting empty")
		return nil
	}
	return prior
}

// buildWorkingSet keeps prior order, collapses duplicate ids (first wins),
// prepends an untracked add request and falls back to the seed list.
func (o *Orchestrator) buildWorkingSet(prior []*models.Report, addID string) []workItem {
	work := make([]workItem, 0, len(prior)+1)
	seen := make(map[string]bool, len(prior))

	for _, r := range prior {
		if r == nil || r.ID == "" {
			o.logger.Warn().Msg("Skipping prior record without id")
			continue
		}
		if seen[r.ID] {
			o.logger.Warn().Str("id", r.ID).Msg("Duplicate id in prior collection, keeping first")
			continue
		}
		seen[r.ID] = true
		work = append(work, workItem{id: r.ID, prior: r})
	}

	add := common.NormalizeID(addID)
	switch {
	case add != "" && seen[add]:
		o.logger.Info().Str("id", add).Msg("Ticker already tracked")
	case add != "":
		work = append([]workItem{{id: add, prior: &models.Report{ID: add}, placeholder: true}}, work...)
	case len(work) == 0:
		for _, seed := range o.seedIDs {
			id := common.NormalizeID(seed)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			work = append(work, workItem{id: id, prior: &models.Report{ID: id}, placeholder: true})
		}
		if len(work) > 0 {
			o.logger.Info().Int("count", len(work)).Msg("Empty collection, using seed tickers")
		}
	}

	return work
}

func (o *Orchestrator) aborted(summary *models.RunSummary, err error) error {
	o.logger.Warn().Err(err).Str("run_id", summary.RunID).Msg("Refresh cancelled, collection not written")
	return fmt.Errorf("refresh cancelled: %w", err)
}

// recordSummary is best effort; the collection is already durable
func (o *Orchestrator) recordSummary(ctx context.Context, summary *models.RunSummary) {
	if o.deps.KV == nil {
		return
	}

	data, err := json.Marshal(summary)
	if err != nil {
		o.logger.Warn().Err(err).Msg("Failed to encode run summary")
		return
	}

	if err := o.deps.KV.Set(ctx, RunKeyPrefix+summary.RunID, string(data), "Refresh run summary"); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to record run summary")
		return
	}
	if err := o.deps.KV.Set(ctx, LastRunKey, string(data), "Most recent refresh run"); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to record last run")
	}

	o.pruneHistory(ctx)
}

// pruneHistory keeps the historyDepth newest run summaries; zero keeps all
func (o *Orchestrator) pruneHistory(ctx context.Context) {
	if o.historyDepth <= 0 {
		return
	}

	pairs, err := o.deps.KV.ListByPrefix(ctx, RunKeyPrefix)
	if err != nil {
		o.logger.Warn().Err(err).Msg("Failed to list run history")
		return
	}
	if len(pairs) <= o.historyDepth {
		return
	}

	pruned := 0
	for _, pair := range pairs[o.historyDepth:] {
		if err := o.deps.KV.Delete(ctx, pair.Key); err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
			o.logger.Warn().Err(err).Str("key", pair.Key).Msg("Failed to prune run summary")
			continue
		}
		pruned++
	}
	o.logger.Debug().Int("pruned", pruned).Int("kept", o.historyDepth).Msg("Run history pruned")
}
