package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/intraday/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage engine configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  trader config init -o trader.yaml
  trader config validate -f trader.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings.

Example:
  trader config init -o trader.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  trader config validate -f trader.yaml`,
	RunE: runConfigValidate,
}

var configInitOutput string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "trader.yaml", "output config file path")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  trader simulate -f %s --start YYYY-MM-DD --end YYYY-MM-DD\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sessions, _ := cfg.Sessions()
	fmt.Printf("✓ Configuration valid: %s\n", configPath)
	fmt.Printf("  Account: %s / %s (%.2f initial cash)\n", cfg.Account.ID, cfg.Account.Strategy, cfg.Account.InitialCash)
	fmt.Printf("  Database: %s\n", cfg.Database.Path)
	fmt.Printf("  Schedule: every %s in %d windows\n", cfg.Interval(), len(sessions))
	for _, w := range sessions {
		fmt.Printf("    %s\n", w)
	}
	return nil
}
