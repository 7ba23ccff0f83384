package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/intraday/criteria"
	"github.com/rustyeddy/intraday/journal"
	"github.com/rustyeddy/intraday/market"
	"github.com/rustyeddy/intraday/risk"
)

// Decide evaluates code at asOf: the sell criteria first when a position
// may be sold, then the buy criteria. Exactly one evaluation row is
// written. The error is non-nil only when the ledger failed, after which
// the engine is halted.
func (e *Engine) Decide(ctx context.Context, code string, asOf time.Time) (Decision, error) {
	if e.halted.Load() {
		return Decision{}, fmt.Errorf("%w: %w", ErrHalted, e.haltErr)
	}

	view := e.store.At(asOf)
	env := &criteria.Env{
		Code:      code,
		AsOf:      asOf,
		View:      view,
		Positions: e.ledger,
		Params:    e.params,
	}
	if name, err := view.InstrumentName(ctx, code); err == nil {
		env.Name = name
	}

	d := Decision{Code: code, Name: env.Name, Side: market.Buy, Action: Skip, AsOf: asOf}

	pos, err := e.ledger.Position(ctx, code)
	if err != nil {
		d.DecidedBy, d.Summary = GatePosition, "position unavailable: "+err.Error()
		return e.record(ctx, d)
	}

	if pos.Held() && e.sellable(ctx, env, pos) {
		for _, c := range e.sell {
			o := e.run(ctx, c, env)
			env.Trace = append(env.Trace, o)
			switch o.Verdict {
			case criteria.VerdictFail:
				continue
			case criteria.VerdictError:
				d.Side, d.DecidedBy = market.Sell, o.Criterion
				d.Summary = "sell check errored: " + o.Reason
				d.Trace = env.Trace
				return e.record(ctx, d)
			}
			return e.sellAll(ctx, env, pos, o, d)
		}
	}

	for _, c := range e.buy {
		o := e.run(ctx, c, env)
		env.Trace = append(env.Trace, o)
		if !o.Passed() {
			d.DecidedBy = o.Criterion
			d.Summary = o.Reason
			d.Trace = env.Trace
			return e.record(ctx, d)
		}
	}
	return e.buyIn(ctx, env, d)
}

// sellable is the T+1 gate: the last buy was on an earlier session and
// today is a trading day. The gate itself is not part of the trace.
func (e *Engine) sellable(ctx context.Context, env *criteria.Env, pos journal.Position) bool {
	last, err := e.ledger.LastBuyDate(ctx, env.Code)
	if err != nil {
		e.logger.Warn("last buy date unavailable, not selling", zap.String("code", env.Code), zap.Error(err))
		return false
	}
	if last == "" {
		last = pos.LastBuyDate
	}
	if last >= env.Date() {
		return false
	}
	open, err := e.gate.IsTradingDay(ctx, env.AsOf)
	if err != nil {
		e.logger.Warn("calendar unavailable, not selling", zap.String("code", env.Code), zap.Error(err))
		e.metrics.CalendarSkip()
		return false
	}
	return open
}

func (e *Engine) sellAll(ctx context.Context, env *criteria.Env, pos journal.Position, by criteria.Outcome, d Decision) (Decision, error) {
	d.Side, d.DecidedBy, d.Trace = market.Sell, by.Criterion, env.Trace

	price, err := e.exitPrice(ctx, env)
	if err != nil {
		d.DecidedBy = GatePrice
		d.Summary = fmt.Sprintf("%s passed but no price: %v", by.Criterion, err)
		return e.record(ctx, d)
	}

	cash, err := e.ledger.Cash(ctx)
	if err != nil {
		d.DecidedBy, d.Summary = GateRisk, "cash unavailable: "+err.Error()
		return e.record(ctx, d)
	}
	last, err := e.ledger.LastBuyDate(ctx, env.Code)
	if err != nil {
		d.DecidedBy, d.Summary = GateRisk, "last buy date unavailable: "+err.Error()
		return e.record(ctx, d)
	}
	check := risk.Evaluate(e.params.Sizing,
		risk.TradeIntent{Code: env.Code, Side: market.Sell, Qty: pos.Quantity, Price: price, Date: env.Date()},
		risk.AccountSnapshot{Cash: cash, Held: pos.Quantity, LastBuyDate: last})
	if !check.Allowed {
		d.DecidedBy, d.Summary = GateRisk, check.String()
		return e.record(ctx, d)
	}

	d.Action, d.Qty, d.Price = Execute, pos.Quantity, price
	d.Summary = fmt.Sprintf("sell %d at %s: %s", d.Qty, price, by.Reason)
	return e.fill(ctx, d)
}

// exitPrice is the price of the latest tick at or before asOf.
func (e *Engine) exitPrice(ctx context.Context, env *criteria.Env) (decimal.Decimal, error) {
	if r, err := criteria.VolumeRatio(ctx, env); err == nil && r.Price.IsPositive() {
		return r.Price, nil
	}
	tick, err := env.View.LatestTick(ctx, env.Code)
	if err != nil {
		return decimal.Zero, err
	}
	return tick.Price(), nil
}

func (e *Engine) buyIn(ctx context.Context, env *criteria.Env, d Decision) (Decision, error) {
	d.Trace = env.Trace

	var sized criteria.SizingEvidence
	ok := false
	if n := len(env.Trace); n > 0 {
		sized, ok = criteria.Sizing(env.Trace[n-1])
	}
	if !ok {
		d.DecidedBy, d.Summary = criteria.NamePositionSizing, "no sized quantity"
		return e.record(ctx, d)
	}

	last, err := e.ledger.LastBuyDate(ctx, env.Code)
	if err != nil {
		d.DecidedBy, d.Summary = GateRisk, "last buy date unavailable: "+err.Error()
		return e.record(ctx, d)
	}
	pos, err := e.ledger.Position(ctx, env.Code)
	if err != nil {
		d.DecidedBy, d.Summary = GateRisk, "position unavailable: "+err.Error()
		return e.record(ctx, d)
	}
	check := risk.Evaluate(e.params.Sizing,
		risk.TradeIntent{Code: env.Code, Side: market.Buy, Qty: sized.Qty, Price: sized.Price, Date: env.Date()},
		risk.AccountSnapshot{Cash: sized.Cash, Held: pos.Quantity, LastBuyDate: last})
	if !check.Allowed {
		d.DecidedBy, d.Summary = GateRisk, check.String()
		return e.record(ctx, d)
	}

	d.Action, d.Qty, d.Price = Execute, sized.Qty, sized.Price
	d.DecidedBy = criteria.NamePositionSizing
	d.Summary = fmt.Sprintf("buy %d at %s: %s", d.Qty, d.Price, summarize(env.Trace))
	return e.fill(ctx, d)
}

func (e *Engine) evaluation(d Decision) journal.Evaluation {
	return journal.Evaluation{
		TradeDate:   market.DateOf(d.AsOf),
		Code:        d.Code,
		Name:        d.Name,
		Side:        d.Side,
		EvalHour:    d.AsOf.Hour(),
		WillExecute: d.Action == Execute,
		Summary:     d.Summary,
		ExecuteQty:  d.Qty,
		DecidedBy:   d.DecidedBy,
		Trace:       traceJSON(d.Trace),
		At:          d.AsOf,
	}
}

// record writes a Skip decision's evaluation row.
func (e *Engine) record(ctx context.Context, d Decision) (Decision, error) {
	e.metrics.Decision(string(d.Side), string(d.Action))
	e.logger.Debug("skip",
		zap.String("code", d.Code),
		zap.Time("as_of", d.AsOf),
		zap.String("side", string(d.Side)),
		zap.String("decided_by", d.DecidedBy),
		zap.String("summary", d.Summary))
	if err := e.ledger.RecordEvaluation(ctx, e.evaluation(d)); err != nil {
		return d, e.halt(err)
	}
	return d, nil
}

func (e *Engine) fill(ctx context.Context, d Decision) (Decision, error) {
	f := journal.Fill{
		Code:   d.Code,
		Name:   d.Name,
		Side:   d.Side,
		Qty:    d.Qty,
		Price:  d.Price,
		At:     d.AsOf,
		Reason: d.DecidedBy,
	}
	pos, err := e.ledger.Execute(ctx, f, e.evaluation(d))
	if err != nil {
		return d, e.halt(err)
	}
	e.metrics.Decision(string(d.Side), string(d.Action))
	e.metrics.Trade(string(d.Side))
	e.logger.Info("executed",
		zap.String("code", d.Code),
		zap.String("name", d.Name),
		zap.Time("as_of", d.AsOf),
		zap.String("side", string(d.Side)),
		zap.Int64("qty", d.Qty),
		zap.String("price", d.Price.String()),
		zap.Int64("position_after", pos.Quantity),
		zap.String("decided_by", d.DecidedBy))
	return d, nil
}
