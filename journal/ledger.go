package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/intraday/market"
	"github.com/rustyeddy/intraday/pkg/id"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Ledger is bound to one strategy on one account.
type Ledger struct {
	db        *sql.DB
	strategy  string
	accountID string
}

// Open applies the ledger schema to db.
func Open(db *sql.DB, strategy, accountID string) (*Ledger, error) {
	if strategy == "" || accountID == "" {
		return nil, errors.New("strategy and account id are required")
	}
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return &Ledger{db: db, strategy: strategy, accountID: accountID}, nil
}

func (l *Ledger) Strategy() string  { return l.strategy }
func (l *Ledger) AccountID() string { return l.accountID }

// OpenAccount writes the initial balance row unless the account already
// has one. It returns the account's current cash either way.
func (l *Ledger) OpenAccount(ctx context.Context, initial decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	if !initial.IsPositive() {
		return decimal.Zero, fmt.Errorf("initial cash must be positive, got %s", initial)
	}
	cash, err := l.Cash(ctx)
	if err == nil {
		return cash, nil
	}
	if !errors.Is(err, ErrNoAccount) {
		return decimal.Zero, err
	}
	if err := l.appendBalance(ctx, l.db, initial, ReasonInitial, at); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrLedgerWrite, err)
	}
	return initial, nil
}

// Cash returns the cash_after of the latest balance row.
func (l *Ledger) Cash(ctx context.Context) (decimal.Decimal, error) {
	return l.cash(ctx, l.db)
}

func (l *Ledger) cash(ctx context.Context, q querier) (decimal.Decimal, error) {
	var cash decimal.Decimal
	err := q.QueryRowContext(ctx, `
		SELECT cash_after FROM account_balances
		WHERE account_id = ? AND strategy = ?
		ORDER BY id DESC LIMIT 1`, l.accountID, l.strategy).Scan(&cash)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s/%s", ErrNoAccount, l.accountID, l.strategy)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read cash: %w", err)
	}
	return cash, nil
}

const positionColumns = `strategy, stock_code, stock_name, quantity, avg_price, opened_date, last_buy_date, last_updated`

func scanPosition(s interface{ Scan(...any) error }) (Position, error) {
	var p Position
	err := s.Scan(&p.Strategy, &p.Code, &p.Name, &p.Quantity, &p.AvgPrice,
		&p.OpenedDate, &p.LastBuyDate, &p.LastUpdated)
	return p, err
}

// Position returns the position in code. A code never traded yields a
// zero position.
func (l *Ledger) Position(ctx context.Context, code string) (Position, error) {
	return l.position(ctx, l.db, code)
}

func (l *Ledger) position(ctx context.Context, q querier, code string) (Position, error) {
	p, err := scanPosition(q.QueryRowContext(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE strategy = ? AND stock_code = ?`,
		l.strategy, code))
	if errors.Is(err, sql.ErrNoRows) {
		return Position{Strategy: l.strategy, Code: code, AvgPrice: decimal.Zero}, nil
	}
	if err != nil {
		return Position{}, fmt.Errorf("read position %s: %w", code, err)
	}
	return p, nil
}

// HeldPositions returns positions with a positive quantity, by code.
func (l *Ledger) HeldPositions(ctx context.Context) ([]Position, error) {
	return l.positions(ctx, "quantity > 0")
}

// Positions returns every position row, including closed ones.
func (l *Ledger) Positions(ctx context.Context) ([]Position, error) {
	return l.positions(ctx, "1 = 1")
}

func (l *Ledger) positions(ctx context.Context, where string) ([]Position, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE strategy = ? AND `+where+` ORDER BY stock_code`,
		l.strategy)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var out []Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("list positions: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LastBuyDate is the deal date of the latest BUY of code, or "" if the
// strategy never bought it.
func (l *Ledger) LastBuyDate(ctx context.Context, code string) (string, error) {
	var d sql.NullString
	err := l.db.QueryRowContext(ctx, `
		SELECT MAX(deal_date) FROM delivery_orders
		WHERE strategy = ? AND stock_code = ? AND side = 'BUY'`, l.strategy, code).Scan(&d)
	if err != nil {
		return "", fmt.Errorf("last buy of %s: %w", code, err)
	}
	return d.String, nil
}

// Execute applies a fill and records its evaluation in one transaction.
// Any failure is wrapped in ErrLedgerWrite and nothing is written.
func (l *Ledger) Execute(ctx context.Context, f Fill, ev Evaluation) (Position, error) {
	p, err := l.execute(ctx, f, ev)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %s %s %d@%s: %w", ErrLedgerWrite, f.Side, f.Code, f.Qty, f.Price, err)
	}
	return p, nil
}

func (l *Ledger) execute(ctx context.Context, f Fill, ev Evaluation) (Position, error) {
	if !f.Side.Valid() || f.Qty <= 0 || !f.Price.IsPositive() || f.Code == "" {
		return Position{}, ErrBadFill
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Position{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cash, err := l.cash(ctx, tx)
	if err != nil {
		return Position{}, err
	}
	pos, err := l.position(ctx, tx, f.Code)
	if err != nil {
		return Position{}, err
	}

	date := market.DateOf(f.At)
	amount := f.Amount()
	next := pos
	next.Strategy, next.Code = l.strategy, f.Code
	if f.Name != "" {
		next.Name = f.Name
	}
	next.LastUpdated = f.At

	switch f.Side {
	case market.Buy:
		if amount.GreaterThan(cash) {
			return Position{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientCash, amount, cash)
		}
		next.Quantity = pos.Quantity + f.Qty
		next.AvgPrice = WeightedAverage(pos.Quantity, pos.AvgPrice, f.Qty, f.Price)
		if pos.Quantity == 0 {
			next.OpenedDate = date
		}
		next.LastBuyDate = date
		cash = cash.Sub(amount)
	case market.Sell:
		if f.Qty > pos.Quantity {
			return Position{}, fmt.Errorf("%w: hold %d, sell %d", ErrNegativePosition, pos.Quantity, f.Qty)
		}
		if pos.LastBuyDate >= date {
			return Position{}, fmt.Errorf("%w: bought %s", ErrSameDaySell, pos.LastBuyDate)
		}
		next.Quantity = pos.Quantity - f.Qty
		cash = cash.Add(amount)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO positions (`+positionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (strategy, stock_code) DO UPDATE SET
			stock_name = excluded.stock_name,
			quantity = excluded.quantity,
			avg_price = excluded.avg_price,
			opened_date = excluded.opened_date,
			last_buy_date = excluded.last_buy_date,
			last_updated = excluded.last_updated`,
		next.Strategy, next.Code, next.Name, next.Quantity, next.AvgPrice.String(),
		next.OpenedDate, next.LastBuyDate, next.LastUpdated); err != nil {
		return Position{}, fmt.Errorf("upsert position: %w", err)
	}

	reason := fmt.Sprintf("%s %s %d@%s", f.Side, f.Code, f.Qty, f.Price.StringFixed(2))
	if err := l.appendBalance(ctx, tx, cash, reason, f.At); err != nil {
		return Position{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO delivery_orders
		(order_id, deal_date, deal_time, stock_code, stock_name, side, price, qty, amount,
		 strategy, reason, position_after, cash_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.At(f.At), date, market.ClockOf(f.At), f.Code, next.Name, string(f.Side),
		f.Price.String(), f.Qty, amount.String(), l.strategy, f.Reason,
		next.Quantity, cash.String()); err != nil {
		return Position{}, fmt.Errorf("append order: %w", err)
	}

	if err := l.upsertEvaluation(ctx, tx, ev); err != nil {
		return Position{}, err
	}

	if err := tx.Commit(); err != nil {
		return Position{}, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

// WeightedAverage is the average cost after adding qty at price to a
// holding of held at avg.
func WeightedAverage(held int64, avg decimal.Decimal, qty int64, price decimal.Decimal) decimal.Decimal {
	total := held + qty
	if total == 0 {
		return decimal.Zero
	}
	cost := avg.Mul(decimal.NewFromInt(held)).Add(price.Mul(decimal.NewFromInt(qty)))
	return cost.Div(decimal.NewFromInt(total))
}

func (l *Ledger) appendBalance(ctx context.Context, q querier, cash decimal.Decimal, reason string, at time.Time) error {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO account_balances (account_id, strategy, cash_after, reason, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		l.accountID, l.strategy, cash.String(), reason, at); err != nil {
		return fmt.Errorf("append balance: %w", err)
	}
	return nil
}
