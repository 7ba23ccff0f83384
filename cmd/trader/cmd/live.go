package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/intraday/internal/metrics"
	"github.com/rustyeddy/intraday/scheduler"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Run the engine against the wall clock for today",
	Long: `Run today's sessions live. The engine ticks every schedule.interval inside
each window and exits after the last window closes, on SIGINT/SIGTERM, or
when a ledger write fails.

Example:
  trader live -f trader.yaml --metrics-addr :9102`,
	Args: cobra.NoArgs,
	RunE: runLive,
}

var liveMetricsAddr string

func init() {
	rootCmd.AddCommand(liveCmd)

	liveCmd.Flags().StringVar(&liveMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides metrics.addr)")
}

func runLive(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.openAccount(ctx); err != nil {
		return err
	}
	sched, err := rt.newScheduler(scheduler.WallClock())
	if err != nil {
		return err
	}

	addr := rt.cfg.Metrics.Addr
	if liveMetricsAddr != "" {
		addr = liveMetricsAddr
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, done := context.WithCancel(gctx)
	defer done()

	var sum scheduler.Summary
	g.Go(func() error {
		defer done()
		var err error
		sum, err = sched.RunLive(runCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if addr != "" {
		srv := metrics.NewServer(addr, rt.metrics, rt.logger)
		g.Go(func() error { return srv.Run(runCtx) })
	}

	if err := g.Wait(); err != nil {
		rt.logger.Error("live run stopped", zap.Error(err))
		return err
	}

	fmt.Printf("✓ Live session done: %d ticks, %d decisions, %d buys, %d sells\n",
		sum.Ticks, sum.Decisions, sum.Buys, sum.Sells)
	return nil
}
