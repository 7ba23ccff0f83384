// Package scheduler drives the decision engine across trading sessions,
// either against the wall clock or over a historical date range.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/intraday/calendar"
	"github.com/rustyeddy/intraday/decision"
	"github.com/rustyeddy/intraday/internal/metrics"
	"github.com/rustyeddy/intraday/market"
)

const (
	ModeLive       = "live"
	ModeSimulation = "simulation"

	DefaultInterval = 20 * time.Second
)

// Decider is the part of decision.Engine the scheduler drives.
type Decider interface {
	Universe(ctx context.Context, asOf time.Time) ([]string, error)
	Decide(ctx context.Context, code string, asOf time.Time) (decision.Decision, error)
}

type Gate interface {
	IsTradingDay(ctx context.Context, day time.Time) (bool, error)
	TradingDays(ctx context.Context, start, end time.Time) (days []time.Time, missing []string, err error)
}

type Options struct {
	Gate     Gate
	Decider  Decider
	Sessions calendar.Sessions
	Interval time.Duration
	Location *time.Location
	Clock    Clock
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Summary counts what a run did. Buys and Sells are executed fills.
type Summary struct {
	Days      int
	Ticks     int
	Decisions int
	Buys      int
	Sells     int
}

func (s *Summary) add(o Summary) {
	s.Days += o.Days
	s.Ticks += o.Ticks
	s.Decisions += o.Decisions
	s.Buys += o.Buys
	s.Sells += o.Sells
}

type Scheduler struct {
	gate     Gate
	decider  Decider
	sessions calendar.Sessions
	interval time.Duration
	loc      *time.Location
	clock    Clock
	logger   *zap.Logger
	metrics  *metrics.Metrics
	mode     string
}

func New(opts Options) (*Scheduler, error) {
	if opts.Gate == nil {
		return nil, errors.New("scheduler: calendar gate is required")
	}
	if opts.Decider == nil {
		return nil, errors.New("scheduler: decider is required")
	}
	if opts.Sessions == nil {
		opts.Sessions = calendar.DefaultSessions()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = WallClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scheduler{
		gate:     opts.Gate,
		decider:  opts.Decider,
		sessions: opts.Sessions,
		interval: opts.Interval,
		loc:      opts.Location,
		clock:    opts.Clock,
		logger:   opts.Logger.With(zap.String("component", "scheduler")),
		metrics:  opts.Metrics,
		mode:     ModeLive,
	}, nil
}

// Tick decides every instrument of the universe at asOf. Cancellation is
// checked between instruments; an instrument already started runs to
// completion. A non-nil error other than ctx.Err() means the engine halted.
func (s *Scheduler) Tick(ctx context.Context, asOf time.Time) (Summary, error) {
	sum := Summary{Ticks: 1}
	s.metrics.Tick(s.mode)

	codes, err := s.decider.Universe(ctx, asOf)
	if err != nil {
		s.logger.Warn("universe unavailable, skipping tick", zap.Time("as_of", asOf), zap.Error(err))
		return sum, nil
	}

	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		d, err := s.decider.Decide(context.WithoutCancel(ctx), code, asOf)
		if err != nil {
			return sum, fmt.Errorf("decide %s at %s: %w", code, asOf.Format(time.DateTime), err)
		}
		sum.Decisions++
		if d.Action == decision.Execute {
			switch d.Side {
			case market.Buy:
				sum.Buys++
			case market.Sell:
				sum.Sells++
			}
		}
	}
	return sum, nil
}

// RunSimulation replays every trading day in [start, end]. Each window is
// stepped from its start by Interval while the instant is before its end.
// Days the calendar does not know are skipped.
func (s *Scheduler) RunSimulation(ctx context.Context, start, end time.Time) (Summary, error) {
	s.mode = ModeSimulation
	defer func() { s.mode = ModeLive }()

	start, end = market.Midnight(start.In(s.loc)), market.Midnight(end.In(s.loc))
	days, missing, err := s.gate.TradingDays(ctx, start, end)
	if err != nil {
		return Summary{}, fmt.Errorf("simulation calendar: %w", err)
	}
	for _, d := range missing {
		s.metrics.CalendarSkip()
		s.logger.Warn("no calendar row, skipping day", zap.String("date", d))
	}

	var sum Summary
	for _, day := range days {
		s.logger.Info("simulating day", zap.String("date", market.DateOf(day)))
		for _, w := range s.sessions {
			from, to := w.On(day)
			for asOf := from; asOf.Before(to); asOf = asOf.Add(s.interval) {
				t, err := s.Tick(ctx, asOf)
				sum.add(t)
				if err != nil {
					return sum, err
				}
			}
		}
		sum.Days++
	}
	return sum, nil
}

// RunLive ticks through today's windows against the clock. It returns when
// today is not a trading day, after the last window closes, or when ctx is
// done.
func (s *Scheduler) RunLive(ctx context.Context) (Summary, error) {
	var sum Summary
	now := s.clock.Now().In(s.loc)

	open, err := s.gate.IsTradingDay(ctx, now)
	if err != nil {
		s.metrics.CalendarSkip()
		s.logger.Warn("calendar unavailable, not trading today", zap.String("date", market.DateOf(now)), zap.Error(err))
		return sum, nil
	}
	if !open {
		s.logger.Info("not a trading day", zap.String("date", market.DateOf(now)))
		return sum, nil
	}
	sum.Days = 1

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		now = s.clock.Now().In(s.loc)

		if s.sessions.Contains(now) {
			if err := s.liveTick(ctx, now, &sum); err != nil {
				return sum, err
			}
			if err := s.clock.Sleep(ctx, s.interval); err != nil {
				return sum, err
			}
			continue
		}

		next, ok := s.sessions.Next(now)
		if !ok {
			s.logger.Info("sessions closed", zap.Int("ticks", sum.Ticks), zap.Int("decisions", sum.Decisions))
			return sum, nil
		}
		s.logger.Info("waiting for window", zap.Time("start", next))
		if err := s.clock.Sleep(ctx, next.Sub(now)); err != nil {
			return sum, err
		}
	}
}

func (s *Scheduler) liveTick(ctx context.Context, now time.Time, sum *Summary) error {
	open, err := s.gate.IsTradingDay(ctx, now)
	if err != nil {
		s.metrics.CalendarSkip()
		s.logger.Warn("calendar unavailable, skipping tick", zap.Time("as_of", now), zap.Error(err))
		return nil
	}
	if !open {
		return nil
	}
	t, err := s.Tick(ctx, now)
	sum.add(t)
	return err
}
