// Package decision runs the sell and buy criteria for one instrument at one
// instant and applies the result to the ledger.
package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/timeout"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/intraday/criteria"
	"github.com/rustyeddy/intraday/internal/metrics"
	"github.com/rustyeddy/intraday/journal"
	"github.com/rustyeddy/intraday/market"
	"github.com/rustyeddy/intraday/pit"
)

var (
	// ErrHalted is returned by every call after a ledger write failed.
	ErrHalted = errors.New("engine halted")

	ErrCriterionPanic = errors.New("criterion panicked")
)

const DefaultCriterionTimeout = 2 * time.Second

// Gate names used in DecidedBy when no criterion ended the run.
const (
	GatePosition = "PositionLookup"
	GateRisk     = "PreTradeRisk"
	GatePrice    = "ExitPrice"
)

type Action string

const (
	Execute Action = "execute"
	Skip    Action = "skip"
)

// Decision is the terminal state of one Decide call.
type Decision struct {
	Code      string
	Name      string
	Side      market.Side
	Action    Action
	Qty       int64
	Price     decimal.Decimal
	DecidedBy string
	Summary   string
	Trace     []criteria.Outcome
	AsOf      time.Time
}

// Ledger is what the engine needs from journal.Ledger.
type Ledger interface {
	criteria.Positions
	LastBuyDate(ctx context.Context, code string) (string, error)
	Execute(ctx context.Context, f journal.Fill, ev journal.Evaluation) (journal.Position, error)
	RecordEvaluation(ctx context.Context, ev journal.Evaluation) error
}

// Gate answers whether a date is a trading day.
type Gate interface {
	IsTradingDay(ctx context.Context, day time.Time) (bool, error)
}

type Options struct {
	Store  *pit.Store
	Ledger Ledger
	Gate   Gate
	Params criteria.Params

	// Buy and Sell default to criteria.BuyCriteria and
	// criteria.SellCriteria.
	Buy  []criteria.Criterion
	Sell []criteria.Criterion

	CriterionTimeout time.Duration

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

type Engine struct {
	store   *pit.Store
	ledger  Ledger
	gate    Gate
	params  criteria.Params
	buy     []criteria.Criterion
	sell    []criteria.Criterion
	timeout timeout.Timeout[criteria.Outcome]
	logger  *zap.Logger
	metrics *metrics.Metrics

	halted  atomic.Bool
	haltErr error
}

func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("decision: store is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("decision: ledger is required")
	}
	if opts.Gate == nil {
		return nil, errors.New("decision: calendar gate is required")
	}
	if err := opts.Params.Sizing.Validate(); err != nil {
		return nil, fmt.Errorf("decision: %w", err)
	}
	if opts.Buy == nil {
		opts.Buy = criteria.BuyCriteria()
	}
	if opts.Sell == nil {
		opts.Sell = criteria.SellCriteria()
	}
	if opts.CriterionTimeout <= 0 {
		opts.CriterionTimeout = DefaultCriterionTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		store:   opts.Store,
		ledger:  opts.Ledger,
		gate:    opts.Gate,
		params:  opts.Params,
		buy:     opts.Buy,
		sell:    opts.Sell,
		timeout: timeout.New[criteria.Outcome](opts.CriterionTimeout),
		logger:  opts.Logger.With(zap.String("component", "decision")),
		metrics: opts.Metrics,
	}, nil
}

// Halted reports the ledger error that stopped the engine, if any.
func (e *Engine) Halted() error {
	if !e.halted.Load() {
		return nil
	}
	return e.haltErr
}

func (e *Engine) halt(err error) error {
	e.haltErr = err
	e.halted.Store(true)
	e.metrics.LedgerFailure()
	e.logger.Error("ledger write failed, halting", zap.Error(err))
	return fmt.Errorf("%w: %w", ErrHalted, err)
}

// Universe is the active watch list followed by any held codes not on it.
func (e *Engine) Universe(ctx context.Context, asOf time.Time) ([]string, error) {
	watched, err := e.store.At(asOf).Watchlist(ctx)
	if err != nil {
		return nil, fmt.Errorf("universe: %w", err)
	}
	held, err := e.ledger.HeldPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("universe: %w", err)
	}

	seen := make(map[string]bool, len(watched)+len(held))
	codes := make([]string, 0, len(watched)+len(held))
	for _, c := range watched {
		if !seen[c] {
			seen[c] = true
			codes = append(codes, c)
		}
	}
	for _, p := range held {
		if !seen[p.Code] {
			seen[p.Code] = true
			codes = append(codes, p.Code)
		}
	}
	return codes, nil
}

// run evaluates one criterion under the timeout policy. Timeouts, panics
// and cancellation all become Error outcomes.
func (e *Engine) run(ctx context.Context, c criteria.Criterion, env *criteria.Env) criteria.Outcome {
	out, err := failsafe.With[criteria.Outcome](e.timeout).WithContext(ctx).
		GetWithExecution(func(ex failsafe.Execution[criteria.Outcome]) (o criteria.Outcome, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", ErrCriterionPanic, r)
				}
			}()
			return c.Evaluate(ex.Context(), env), nil
		})
	if err != nil {
		out = criteria.Errorf(err, "%s did not complete", c.Name())
	}
	out.Criterion = c.Name()

	e.metrics.Criterion(out.Criterion, out.Verdict.String())
	if out.Verdict == criteria.VerdictError {
		e.logger.Warn("criterion error",
			zap.String("code", env.Code),
			zap.Time("as_of", env.AsOf),
			zap.String("criterion", out.Criterion),
			zap.String("reason", out.Reason),
			zap.String("error", out.Error))
	}
	return out
}

func summarize(trace []criteria.Outcome) string {
	parts := make([]string, 0, len(trace))
	for _, o := range trace {
		parts = append(parts, fmt.Sprintf("%s=%s", o.Criterion, o.Verdict))
	}
	return strings.Join(parts, " ")
}

func traceJSON(trace []criteria.Outcome) json.RawMessage {
	if len(trace) == 0 {
		return json.RawMessage("[]")
	}
	b, err := json.Marshal(trace)
	if err != nil {
		b, _ = json.Marshal([]map[string]string{{"error": err.Error()}})
	}
	return b
}
