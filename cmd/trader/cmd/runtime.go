package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/intraday/calendar"
	"github.com/rustyeddy/intraday/config"
	"github.com/rustyeddy/intraday/decision"
	"github.com/rustyeddy/intraday/internal/logging"
	"github.com/rustyeddy/intraday/internal/metrics"
	"github.com/rustyeddy/intraday/journal"
	"github.com/rustyeddy/intraday/pit"
	"github.com/rustyeddy/intraday/scheduler"
	"github.com/rustyeddy/intraday/store"
)

// runtime is everything a command needs, wired from one config.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *sql.DB
	ledger  *journal.Ledger
	metrics *metrics.Metrics
	loc     *time.Location
}

func loadRuntime() (*runtime, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	ledger, err := journal.Open(db, cfg.Account.Strategy, cfg.Account.ID)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &runtime{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		ledger:  ledger,
		metrics: metrics.New(),
		loc:     loc,
	}, nil
}

func (r *runtime) Close() {
	_ = r.logger.Sync()
	_ = r.db.Close()
}

// openAccount writes the initial balance if needed and reconciles the
// ledger before any trading.
func (r *runtime) openAccount(ctx context.Context) error {
	cash, err := r.ledger.OpenAccount(ctx, r.cfg.InitialCash(), time.Now().In(r.loc))
	if err != nil {
		return fmt.Errorf("open account: %w", err)
	}
	rep, err := r.ledger.Verify(ctx)
	if err != nil {
		if errors.Is(err, journal.ErrInconsistent) {
			r.logger.Error("ledger inconsistent", zap.String("problems", strings.Join(rep.Problems, "; ")))
		}
		return err
	}
	r.logger.Info("ledger verified",
		zap.String("account", r.cfg.Account.ID),
		zap.String("strategy", r.cfg.Account.Strategy),
		zap.String("cash", cash.StringFixed(2)),
		zap.Int("orders", rep.Orders))
	return nil
}

func (r *runtime) newScheduler(clock scheduler.Clock) (*scheduler.Scheduler, error) {
	sessions, err := r.cfg.Sessions()
	if err != nil {
		return nil, err
	}
	gate := calendar.NewGate(r.db, r.cfg.QueryTimeout())
	engine, err := decision.New(decision.Options{
		Store:            pit.New(r.db, r.cfg.QueryTimeout()),
		Ledger:           r.ledger,
		Gate:             gate,
		Params:           r.cfg.Params(),
		CriterionTimeout: r.cfg.CriterionTimeout(),
		Logger:           r.logger,
		Metrics:          r.metrics,
	})
	if err != nil {
		return nil, err
	}
	return scheduler.New(scheduler.Options{
		Gate:     gate,
		Decider:  engine,
		Sessions: sessions,
		Interval: r.cfg.Interval(),
		Location: r.loc,
		Clock:    clock,
		Logger:   r.logger,
		Metrics:  r.metrics,
	})
}
