// Package calendar decides when the engine is allowed to act: which dates
// are trading days and which intraday windows are open.
package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/intraday/market"
)

// ErrUnavailable means the calendar could not answer for a date, either
// because the table has no row for it or because the query failed.
var ErrUnavailable = errors.New("calendar unavailable")

// Gate answers trading-day questions from the trading_calendar table.
type Gate struct {
	db      *sql.DB
	timeout time.Duration
}

func NewGate(db *sql.DB, timeout time.Duration) *Gate {
	return &Gate{db: db, timeout: timeout}
}

func (g *Gate) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

// IsTradingDay reports whether day's calendar date is an open session.
func (g *Gate) IsTradingDay(ctx context.Context, day time.Time) (bool, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()

	date := market.DateOf(day)
	var open int
	err := g.db.QueryRowContext(ctx,
		`SELECT is_open FROM trading_calendar WHERE cal_date = ?`, date).Scan(&open)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: no row for %s", ErrUnavailable, date)
	}
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrUnavailable, date, err)
	}
	return open == 1, nil
}

// TradingDays returns the open dates in [start, end] in ascending order.
// Dates in the range that have no calendar row are returned in missing so
// callers can log them.
func (g *Gate) TradingDays(ctx context.Context, start, end time.Time) (days []time.Time, missing []string, err error) {
	if end.Before(start) {
		return nil, nil, fmt.Errorf("end %s before start %s", market.DateOf(end), market.DateOf(start))
	}
	qctx, cancel := g.ctx(ctx)
	defer cancel()

	rows, err := g.db.QueryContext(qctx, `
		SELECT cal_date, is_open FROM trading_calendar
		WHERE cal_date >= ? AND cal_date <= ?
		ORDER BY cal_date ASC`, market.DateOf(start), market.DateOf(end))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	known := map[string]bool{}
	for rows.Next() {
		var date string
		var open int
		if err := rows.Scan(&date, &open); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		known[date] = open == 1
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	rows.Close()

	loc := start.Location()
	for d := market.Midnight(start); !d.After(market.Midnight(end)); d = d.AddDate(0, 0, 1) {
		date := market.DateOf(d)
		open, ok := known[date]
		switch {
		case !ok:
			missing = append(missing, date)
		case open:
			days = append(days, time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc))
		}
	}
	return days, missing, nil
}

// PrevTradingDay returns the latest open date strictly before day.
func (g *Gate) PrevTradingDay(ctx context.Context, day time.Time) (time.Time, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()

	var date string
	err := g.db.QueryRowContext(ctx, `
		SELECT cal_date FROM trading_calendar
		WHERE cal_date < ? AND is_open = 1
		ORDER BY cal_date DESC LIMIT 1`, market.DateOf(day)).Scan(&date)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%w: no trading day before %s", ErrUnavailable, market.DateOf(day))
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return market.ParseDate(date, day.Location())
}
