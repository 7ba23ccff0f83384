// Package fixture seeds reference tables for tests.
package fixture

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/intraday/market"
	"github.com/rustyeddy/intraday/store"
)

// DB is a throwaway SQLite database with the reference schema applied.
type DB struct {
	*sql.DB
	Path string
	t    testing.TB
}

func New(t testing.TB) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intraday.db")
	db, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &DB{DB: db, Path: path, t: t}
}

func (f *DB) exec(q string, args ...any) {
	f.t.Helper()
	_, err := f.Exec(q, args...)
	require.NoError(f.t, err)
}

// Open marks dates as trading days.
func (f *DB) Open(dates ...string) *DB {
	for _, d := range dates {
		f.exec(`INSERT OR REPLACE INTO trading_calendar (cal_date, is_open) VALUES (?, 1)`, d)
	}
	return f
}

// Closed marks dates as holidays.
func (f *DB) Closed(dates ...string) *DB {
	for _, d := range dates {
		f.exec(`INSERT OR REPLACE INTO trading_calendar (cal_date, is_open) VALUES (?, 0)`, d)
	}
	return f
}

func (f *DB) Instrument(code, name string) *DB {
	f.exec(`INSERT OR REPLACE INTO instruments (code, name) VALUES (?, ?)`, code, name)
	return f
}

func (f *DB) Watch(code string, active bool) *DB {
	f.exec(`INSERT OR REPLACE INTO watchlist (stock_code, is_active) VALUES (?, ?)`, code, active)
	return f
}

// Tick inserts one snapshot. High and low track max/min of open and price.
func (f *DB) Tick(code, date, clock, open, price, preClose string, volume int64) *DB {
	o, p := decimal.RequireFromString(open), decimal.RequireFromString(price)
	f.TickBar(market.Bar{
		Code: code, Date: date, Time: clock,
		Open: o, High: decimal.Max(o, p), Low: decimal.Min(o, p), Close: p,
		PreClose: decimal.RequireFromString(preClose), Volume: volume,
		Amount: p.Mul(decimal.NewFromInt(volume)),
	})
	return f
}

func (f *DB) TickBar(b market.Bar) *DB {
	f.exec(`INSERT OR REPLACE INTO stock_ticks
		(code, name, trade_date, trade_time, price, open, high, low, pre_close, volume, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Code, b.Name, b.Date, b.Time, b.Close.String(), b.Open.String(), b.High.String(),
		b.Low.String(), b.PreClose.String(), b.Volume, b.Amount.String())
	return f
}

// FiveMin inserts a flat 5-minute bar ending at clock.
func (f *DB) FiveMin(code, date, clock string, volume int64) *DB {
	f.exec(`INSERT OR REPLACE INTO stock_bars_5min
		(code, trade_date, trade_time, open, high, low, close, volume)
		VALUES (?, ?, ?, '10', '10', '10', '10', ?)`, code, date, clock, volume)
	return f
}

func (f *DB) Daily(code, date, open, high, low, close, preClose string, volume int64) *DB {
	f.exec(`INSERT OR REPLACE INTO stock_bars_daily
		(code, trade_date, open, high, low, close, pre_close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, code, date, open, high, low, close, preClose, volume)
	return f
}

func (f *DB) Momentum(code, date, clock string, action market.MainAction) *DB {
	f.exec(`INSERT INTO stock_intraday_momentum (code, trade_date, trade_time, main_action)
		VALUES (?, ?, ?, ?)`, code, date, clock, string(action))
	return f
}

func (f *DB) Themes(code, date string, themes ...string) *DB {
	f.exec(`INSERT OR REPLACE INTO stock_theme_rank (stock_code, trade_date, all_themes)
		VALUES (?, ?, ?)`, code, date, strings.Join(themes, ","))
	return f
}

// Leader seeds code so every default buy rule accepts it from 09:55 on
// date: rising daily volume over earlier and prev, two main-force lifts on
// prev, a peer at +9.9% in the auction and a 1.5x volume ratio. The latest
// tick prices it at 10.3.
func (f *DB) Leader(code, peer, date, prev string, earlier ...string) *DB {
	vol := int64(100000)
	for _, d := range append(earlier, prev) {
		f.Daily(code, d, "10", "10.3", "9.9", "10.1", "10", vol)
		vol += 20000
	}
	f.Themes(code, prev, "robotics", "chips").Themes(peer, prev, "robotics")
	f.Momentum(code, prev, "10:00:00", market.MainLift).Momentum(code, prev, "13:30:00", market.MainLift)
	f.FiveMin(code, prev, "09:35:00", 20000).FiveMin(code, prev, "10:00:00", 20000).FiveMin(code, prev, "10:30:00", 50000)
	f.Tick(peer, date, "09:25:00", "10.5", "10.99", "10", 80000)
	f.Tick(code, date, "09:25:00", "10.2", "10.2", "10.1", 5000)
	f.Tick(code, date, "09:55:00", "10.2", "10.3", "10.1", 60000)
	return f
}
