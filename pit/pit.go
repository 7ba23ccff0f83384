// Package pit serves market data as it was visible at one instant.
//
// Two visibility rules exist. Intraday granularities (ticks, 5-minute bars)
// are visible once their trade_date/trade_time is at or before the as-of
// instant. T+1 granularities (daily bars, momentum tags, theme ranks) are
// produced after the close, so only rows dated strictly before the as-of
// date are visible. Both rules live in this package and nowhere else.
package pit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/intraday/market"
)

// ErrNoData is returned when no visible row satisfies a request.
var ErrNoData = errors.New("no data")

// Store hands out Views over a shared database handle.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

// New returns a Store whose queries each run under timeout (0 disables it).
func New(db *sql.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

// At binds a View to asOf. asOf's location decides its date and clock.
func (s *Store) At(asOf time.Time) *View {
	return &View{
		s:     s,
		asOf:  asOf,
		date:  market.DateOf(asOf),
		clock: market.ClockOf(asOf),
	}
}

// View is a read-only window onto the reference tables at a fixed instant.
type View struct {
	s     *Store
	asOf  time.Time
	date  string
	clock string
}

func (v *View) AsOf() time.Time { return v.asOf }
func (v *View) Date() string    { return v.date }
func (v *View) Clock() string   { return v.clock }

func (v *View) query(ctx context.Context, q string, args ...any) (*sql.Rows, context.CancelFunc, error) {
	ctx, cancel := v.withTimeout(ctx)
	rows, err := v.s.db.QueryContext(ctx, q, args...)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return rows, cancel, nil
}

func (v *View) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, v.s.timeout)
}

// visible returns the WHERE fragment admitting rows of granularity g.
func (v *View) visible(g market.Granularity) (string, []any) {
	if g.Intraday() {
		return "(trade_date < ? OR (trade_date = ? AND trade_time <= ?))", []any{v.date, v.date, v.clock}
	}
	return "trade_date < ?", []any{v.date}
}

type barTable struct {
	name    string
	columns string
	// newest orders rows latest first; session orders one day's rows.
	newest  string
	session string
}

// All three tables are projected onto the same column order.
var barTables = map[market.Granularity]barTable{
	market.Tick: {
		name:    "stock_ticks",
		columns: "code, name, trade_date, trade_time, open, high, low, price, pre_close, volume, amount",
		newest:  "trade_date DESC, trade_time DESC",
		session: "trade_time ASC",
	},
	market.FiveMinute: {
		name:    "stock_bars_5min",
		columns: "code, '', trade_date, trade_time, open, high, low, close, '0', volume, '0'",
		newest:  "trade_date DESC, trade_time DESC",
		session: "trade_time ASC",
	},
	market.Daily: {
		name:    "stock_bars_daily",
		columns: "code, '', trade_date, '' AS trade_time, open, high, low, close, pre_close, volume, '0'",
		newest:  "trade_date DESC",
		session: "trade_date ASC",
	},
}

func tableFor(g market.Granularity) (barTable, error) {
	t, ok := barTables[g]
	if !ok {
		return barTable{}, fmt.Errorf("unsupported granularity %s", g)
	}
	return t, nil
}

func scanBars(rows *sql.Rows) ([]market.Bar, error) {
	defer rows.Close()
	var out []market.Bar
	for rows.Next() {
		var b market.Bar
		if err := rows.Scan(&b.Code, &b.Name, &b.Date, &b.Time, &b.Open, &b.High, &b.Low,
			&b.Close, &b.PreClose, &b.Volume, &b.Amount); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func reverse(bars []market.Bar) {
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
}
