package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/intraday/journal"
	"github.com/rustyeddy/intraday/market"
	"github.com/rustyeddy/intraday/pkg/id"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a historical date range through the engine",
	Long: `Replay every trading day in [start, end], ticking each session window at
schedule.interval, and write fills and evaluations to the ledger. A summary
of the run is stored and printed as an Org heading.

Example:
  trader simulate -f trader.yaml --start 2025-03-03 --end 2025-03-07`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

var (
	simStart string
	simEnd   string
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simStart, "start", "", "first date YYYY-MM-DD (required)")
	simulateCmd.Flags().StringVar(&simEnd, "end", "", "last date YYYY-MM-DD (required)")
	simulateCmd.MarkFlagRequired("start")
	simulateCmd.MarkFlagRequired("end")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	start, err := market.ParseDate(simStart, rt.loc)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	end, err := market.ParseDate(simEnd, rt.loc)
	if err != nil {
		return fmt.Errorf("end: %w", err)
	}

	ctx := cmd.Context()
	if err := rt.openAccount(ctx); err != nil {
		return err
	}
	startCash, err := rt.ledger.Cash(ctx)
	if err != nil {
		return err
	}
	sched, err := rt.newScheduler(nil)
	if err != nil {
		return err
	}

	sum, runErr := sched.RunSimulation(ctx, start, end)
	if runErr != nil {
		rt.logger.Error("simulation stopped", zap.Error(runErr))
	}

	endCash, err := rt.ledger.Cash(ctx)
	if err != nil {
		return err
	}
	run := journal.Run{
		RunID:     id.New(),
		Strategy:  rt.ledger.Strategy(),
		StartDate: market.DateOf(start),
		EndDate:   market.DateOf(end),
		Days:      sum.Days,
		Ticks:     sum.Ticks,
		Decisions: sum.Decisions,
		Buys:      sum.Buys,
		Sells:     sum.Sells,
		StartCash: startCash,
		EndCash:   endCash,
		Created:   time.Now().In(rt.loc),
	}
	if runErr == nil {
		if err := rt.ledger.RecordRun(ctx, run); err != nil {
			return err
		}
	}
	if err := run.WriteReport(os.Stdout); err != nil {
		return err
	}
	return runErr
}
