package journal

import (
	"context"
	"fmt"
)

// RecordEvaluation upserts an evaluation row for a decision that did not
// trade.
func (l *Ledger) RecordEvaluation(ctx context.Context, ev Evaluation) error {
	if err := l.upsertEvaluation(ctx, l.db, ev); err != nil {
		return fmt.Errorf("%w: %w", ErrLedgerWrite, err)
	}
	return nil
}

func (l *Ledger) upsertEvaluation(ctx context.Context, q querier, ev Evaluation) error {
	trace := string(ev.Trace)
	if trace == "" {
		trace = "[]"
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO strategy_evaluations
		(strategy, trade_date, stock_code, stock_name, side, eval_hour, will_execute,
		 summary, execute_qty, decided_by, trace, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (strategy, trade_date, stock_code, side, eval_hour) DO UPDATE SET
			stock_name = excluded.stock_name,
			will_execute = excluded.will_execute,
			summary = excluded.summary,
			execute_qty = excluded.execute_qty,
			decided_by = excluded.decided_by,
			trace = excluded.trace,
			updated_at = excluded.updated_at`,
		l.strategy, ev.TradeDate, ev.Code, ev.Name, string(ev.Side), ev.EvalHour, ev.WillExecute,
		ev.Summary, ev.ExecuteQty, ev.DecidedBy, trace, ev.At, ev.At)
	if err != nil {
		return fmt.Errorf("upsert evaluation %s %s: %w", ev.Code, ev.Side, err)
	}
	return nil
}
