// -----------------------------------------------------------------------
// Last Modified: Thursday, 15th October 2026 10:45:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerbrief/internal/common"
)

var (
	// Command-line flags
	configFiles []string // Multiple -c flags supported, later files override earlier ones
	dataFile    string
	logLevel    string

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "tickerbrief",
	Short: "Per-ticker market briefs refreshed from market data and an LLM",
	Long: `Refreshes a collection of per-ticker reports: prices and charts come from
EODHD market data, qualitative commentary from the best available model.
Tickers that cannot be refreshed keep their previous report.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times)")
	rootCmd.PersistentFlags().StringVar(&dataFile, "data-file", "", "Collection file path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig runs the startup sequence (REQUIRED ORDER):
// config files -> .env/env -> CLI overrides -> logger -> banner
func loadConfig(cmd *cobra.Command, args []string) error {
	paths := configFiles
	if len(paths) == 0 {
		paths = discoverConfig()
	}

	var err error
	config, err = common.LoadFromFiles(paths...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	common.ApplyFlagOverrides(config, dataFile, logLevel)
	common.SetDefaultExchange(config.Market.DefaultExchange)

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Debug().
		Strs("config_files", paths).
		Str("environment", config.Environment).
		Str("storage_type", config.Storage.Type).
		Str("data_file", config.Storage.File.Path).
		Str("llm_provider", string(config.LLM.DefaultProvider)).
		Str("log_level", config.Logging.Level).
		Msg("Resolved configuration (sanitized)")

	return nil
}

// discoverConfig looks in the working directory, then deployments/local
func discoverConfig() []string {
	for _, candidate := range []string{"tickerbrief.toml", "deployments/local/tickerbrief.toml"} {
		if _, err := os.Stat(candidate); err == nil {
			return []string{candidate}
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
