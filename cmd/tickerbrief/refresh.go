package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/tickerbrief/internal/app"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh every tracked ticker and rewrite the collection",
	Long: `Runs one refresh cycle over the stored collection. With --add, the ticker is
added at the front of the collection if it is not already tracked.`,
	Args: cobra.NoArgs,
	RunE: runRefresh,
}

var addID string

func init() {
	refreshCmd.Flags().StringVar(&addID, "add", "", "Ticker to add before refreshing, e.g. 2330 or TW:2330")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		return err
	}
	defer application.Close()

	summary, err := application.Refresh(ctx, addID)
	if err != nil {
		logger.Error().Err(err).Msg("Refresh failed")
		return err
	}

	logger.Info().
		Str("run_id", summary.RunID).
		Int("refreshed", len(summary.Refreshed)).
		Int("carried_over", len(summary.CarriedOver)).
		Int("dropped", len(summary.Dropped)).
		Msg("Collection updated")

	return nil
}
