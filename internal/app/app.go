// -----------------------------------------------------------------------
// Last Modified: Thursday, 15th October 2026 10:20:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerbrief/internal/common"
	"github.com/ternarybob/tickerbrief/internal/eodhd"
	"github.com/ternarybob/tickerbrief/internal/interfaces"
	"github.com/ternarybob/tickerbrief/internal/models"
	"github.com/ternarybob/tickerbrief/internal/services/facts"
	"github.com/ternarybob/tickerbrief/internal/services/llm"
	"github.com/ternarybob/tickerbrief/internal/services/refresh"
	"github.com/ternarybob/tickerbrief/internal/services/report"
	"github.com/ternarybob/tickerbrief/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Collaborators of the refresh cycle
	MarketData    interfaces.MarketDataProvider
	ModelProvider interfaces.ModelProvider
	Orchestrator  *refresh.Orchestrator
}

// New initializes storage, providers and the orchestrator
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info().
		Str("storage_type", cfg.Storage.Type).
		Str("llm_provider", string(cfg.LLM.DefaultProvider)).
		Str("default_exchange", cfg.Market.DefaultExchange).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return err
	}
	a.StorageManager = storageManager
	return nil
}

func (a *App) initServices(ctx context.Context) error {
	if a.Config.EODHD.APIKey == "" {
		return fmt.Errorf("eodhd api key is required (set EODHD_API_KEY or [eodhd] api_key)")
	}

	client := eodhd.NewClient(a.Config.EODHD.APIKey,
		eodhd.WithBaseURL(a.Config.EODHD.BaseURL),
		eodhd.WithTimeout(a.Config.EODHD.GetTimeout()),
		eodhd.WithRateLimit(a.Config.EODHD.RateLimit),
		eodhd.WithLogger(a.Logger),
	)
	a.MarketData = eodhd.NewMarketData(client)

	provider, err := llm.NewProvider(ctx, a.Config, a.Logger)
	if err != nil {
		return err
	}
	a.ModelProvider = provider

	deps := refresh.Dependencies{
		Storage:   a.StorageManager.CollectionStorage(),
		Retriever: facts.NewRetriever(a.MarketData, a.Config.Refresh, a.Logger),
		Resolver:  llm.NewResolver(provider, llm.PolicyFor(a.Config.LLM.DefaultProvider, a.Config.LLM), a.Logger),
		Invoker:   llm.NewInvoker(provider, a.Config.LLM.GetTimeout(), a.Logger),
		Merger:    report.NewMerger(time.Now, a.Config.Refresh.GetLocation()),
		Prompts:   report.NewPromptBuilder(a.Config.LLM.Language),
	}
	if kv := a.StorageManager.KeyValueStorage(); kv != nil {
		deps.KV = kv
	}
	a.Orchestrator = refresh.NewOrchestrator(deps, a.Config.Refresh, a.Logger)

	return nil
}

// Refresh runs one refresh cycle, optionally adding addID
func (a *App) Refresh(ctx context.Context, addID string) (*models.RunSummary, error) {
	return a.Orchestrator.Run(ctx, addID)
}

// Close releases providers and storage
func (a *App) Close() error {
	if a.ModelProvider != nil {
		if err := a.ModelProvider.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close model provider")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
			return err
		}
		a.Logger.Debug().Msg("Storage closed")
	}

	return nil
}
