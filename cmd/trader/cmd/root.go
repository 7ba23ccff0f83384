package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/intraday/config"
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "Intraday decision and execution engine for A-share leading stocks",
	Long: `Trader evaluates a watch list of A-share stocks through the trading day,
applying ordered buy and sell criteria against point-in-time market data and
recording every decision and fill in a SQLite ledger.

It provides tools for:
  - Running the engine live against the wall clock
  - Replaying historical date ranges as simulations
  - Inspecting and reconciling the ledger
  - Seeding reference tables from CSV fixtures`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadEnv()
	},
}

var configPath string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "file", "f", "trader.yaml", "path to config file (YAML or JSON)")
}
