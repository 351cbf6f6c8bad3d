package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/tickerbrief/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// No config or logger needed
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "TickerBrief version %s\n", common.GetFullVersion())
	},
}
