package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/intraday/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load reference tables from CSV fixtures",
	Long: `Load <table>.csv files from a directory into the reference tables
(instruments, trading_calendar, watchlist, ticks, bars, momentum, themes).
Each file needs a header row naming the table's columns.

Example:
  trader seed -f trader.yaml --dir fixtures/`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

var seedDir string

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedDir, "dir", "fixtures", "directory of <table>.csv files")
}

func runSeed(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := store.SeedDir(cmd.Context(), rt.db, seedDir)
	if err != nil {
		return err
	}
	tables := make([]string, 0, len(res))
	for t := range res {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	fmt.Printf("✓ Seeded %s\n", seedDir)
	for _, t := range tables {
		fmt.Printf("  %-24s %d rows\n", t, res[t])
	}
	return nil
}
