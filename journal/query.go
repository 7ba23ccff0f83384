package journal

import (
	"context"
	"fmt"

	"github.com/rustyeddy/intraday/market"
)

// Orders returns the blotter rows with deal_date in [from, to] in deal
// order. Empty bounds are open.
func (l *Ledger) Orders(ctx context.Context, from, to string) ([]Order, error) {
	q := `SELECT order_id, deal_date, deal_time, stock_code, stock_name, side, price, qty, amount,
		strategy, reason, position_after, cash_after
		FROM delivery_orders WHERE strategy = ?`
	args := []any{l.strategy}
	if from != "" {
		q += ` AND deal_date >= ?`
		args = append(args, from)
	}
	if to != "" {
		q += ` AND deal_date <= ?`
		args = append(args, to)
	}
	q += ` ORDER BY deal_date ASC, deal_time ASC, order_id ASC`

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		var side string
		if err := rows.Scan(&o.OrderID, &o.DealDate, &o.DealTime, &o.Code, &o.Name, &side,
			&o.Price, &o.Qty, &o.Amount, &o.Strategy, &o.Reason, &o.PositionAfter, &o.CashAfter); err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
		o.Side = market.Side(side)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Balances returns the account's balance log, oldest first.
func (l *Ledger) Balances(ctx context.Context) ([]Balance, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, account_id, strategy, cash_after, reason, created_at
		FROM account_balances
		WHERE account_id = ? AND strategy = ?
		ORDER BY id ASC`, l.accountID, l.strategy)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var out []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.ID, &b.AccountID, &b.Strategy, &b.CashAfter, &b.Reason, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("list balances: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Evaluations returns the audit rows of one trade date, or all rows when
// date is empty.
func (l *Ledger) Evaluations(ctx context.Context, date string) ([]Evaluation, error) {
	q := `SELECT trade_date, stock_code, stock_name, side, eval_hour, will_execute, summary,
		execute_qty, decided_by, trace, created_at, updated_at
		FROM strategy_evaluations WHERE strategy = ?`
	args := []any{l.strategy}
	if date != "" {
		q += ` AND trade_date = ?`
		args = append(args, date)
	}
	q += ` ORDER BY trade_date, eval_hour, stock_code, side`

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		var ev Evaluation
		var side, trace string
		if err := rows.Scan(&ev.TradeDate, &ev.Code, &ev.Name, &side, &ev.EvalHour, &ev.WillExecute,
			&ev.Summary, &ev.ExecuteQty, &ev.DecidedBy, &trace, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list evaluations: %w", err)
		}
		ev.Side = market.Side(side)
		ev.Trace = []byte(trace)
		ev.At = ev.UpdatedAt
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
