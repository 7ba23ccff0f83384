package pit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rustyeddy/intraday/market"
)

// BarsBefore returns the latest limit visible bars of code in ascending
// time order. limit <= 0 returns every visible bar.
func (v *View) BarsBefore(ctx context.Context, code string, g market.Granularity, limit int) ([]market.Bar, error) {
	t, err := tableFor(g)
	if err != nil {
		return nil, err
	}
	pred, args := v.visible(g)
	if limit <= 0 {
		limit = -1
	}
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE code = ? AND %s
		ORDER BY %s LIMIT ?`, t.columns, t.name, pred, t.newest)

	rows, cancel, err := v.query(ctx, q, append(append([]any{code}, args...), limit)...)
	if err != nil {
		return nil, fmt.Errorf("%s bars for %s: %w", g, code, err)
	}
	defer cancel()
	bars, err := scanBars(rows)
	if err != nil {
		return nil, fmt.Errorf("%s bars for %s: %w", g, code, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s bars for %s: %w", g, code, ErrNoData)
	}
	reverse(bars)
	return bars, nil
}

// BarsOn returns the visible bars of one session in ascending order.
func (v *View) BarsOn(ctx context.Context, code, date string, g market.Granularity) ([]market.Bar, error) {
	t, err := tableFor(g)
	if err != nil {
		return nil, err
	}
	pred, args := v.visible(g)
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE code = ? AND trade_date = ? AND %s
		ORDER BY %s`, t.columns, t.name, pred, t.session)

	rows, cancel, err := v.query(ctx, q, append([]any{code, date}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("%s bars for %s on %s: %w", g, code, date, err)
	}
	defer cancel()
	bars, err := scanBars(rows)
	if err != nil {
		return nil, fmt.Errorf("%s bars for %s on %s: %w", g, code, date, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s bars for %s on %s: %w", g, code, date, ErrNoData)
	}
	return bars, nil
}

// LatestTick returns the most recent tick of the as-of session.
func (v *View) LatestTick(ctx context.Context, code string) (market.Bar, error) {
	return v.TickAtOrBefore(ctx, code, v.clock)
}

// TickAtOrBefore returns the last tick of the as-of session at or before
// clock. A clock later than the as-of time is clamped to it.
func (v *View) TickAtOrBefore(ctx context.Context, code, clock string) (market.Bar, error) {
	if clock > v.clock {
		clock = v.clock
	}
	t := barTables[market.Tick]
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE code = ? AND trade_date = ? AND trade_time <= ?
		ORDER BY trade_time DESC LIMIT 1`, t.columns, t.name)

	rows, cancel, err := v.query(ctx, q, code, v.date, clock)
	if err != nil {
		return market.Bar{}, fmt.Errorf("tick for %s at %s: %w", code, clock, err)
	}
	defer cancel()
	bars, err := scanBars(rows)
	if err != nil {
		return market.Bar{}, fmt.Errorf("tick for %s at %s: %w", code, clock, err)
	}
	if len(bars) == 0 {
		return market.Bar{}, fmt.Errorf("tick for %s at %s %s: %w", code, v.date, clock, ErrNoData)
	}
	return bars[0], nil
}

// PrevSessionDate returns the latest date before the as-of date on which
// code has bars of granularity g.
func (v *View) PrevSessionDate(ctx context.Context, code string, g market.Granularity) (string, error) {
	t, err := tableFor(g)
	if err != nil {
		return "", err
	}
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	var date sql.NullString
	q := fmt.Sprintf(`SELECT MAX(trade_date) FROM %s WHERE code = ? AND trade_date < ?`, t.name)
	if err := v.s.db.QueryRowContext(ctx, q, code, v.date).Scan(&date); err != nil {
		return "", fmt.Errorf("previous %s session for %s: %w", g, code, err)
	}
	if !date.Valid {
		return "", fmt.Errorf("previous %s session for %s: %w", g, code, ErrNoData)
	}
	return date.String, nil
}

// LatestDaily is the most recent visible daily bar, i.e. the prior session.
func (v *View) LatestDaily(ctx context.Context, code string) (market.Bar, error) {
	bars, err := v.BarsBefore(ctx, code, market.Daily, 1)
	if err != nil {
		return market.Bar{}, err
	}
	return bars[0], nil
}

// IsNoData reports whether err means the data simply is not there.
func IsNoData(err error) bool { return errors.Is(err, ErrNoData) }
