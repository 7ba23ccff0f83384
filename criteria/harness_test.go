package criteria

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/intraday/internal/fixture"
	"github.com/rustyeddy/intraday/journal"
	"github.com/rustyeddy/intraday/market"
	"github.com/rustyeddy/intraday/pit"
)

const (
	today = "2025-03-04"
	prev  = "2025-03-03"
)

var cst = time.FixedZone("CST", 8*3600)

type harness struct {
	db     *fixture.DB
	ledger *journal.Ledger
	store  *pit.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := fixture.New(t).Open("2025-02-27", "2025-02-28", prev, today)
	l, err := journal.Open(db.DB, "leader", "acct")
	require.NoError(t, err)
	_, err = l.OpenAccount(context.Background(), decimal.NewFromInt(100000), at(t, "2025-02-27", "09:00:00"))
	require.NoError(t, err)
	return &harness{db: db, ledger: l, store: pit.New(db.DB, time.Second)}
}

func at(t *testing.T, date, clock string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", date+" "+clock, cst)
	require.NoError(t, err)
	return ts
}

func (h *harness) env(t *testing.T, code, clock string) *Env {
	asOf := at(t, today, clock)
	return &Env{
		Code:      code,
		AsOf:      asOf,
		View:      h.store.At(asOf),
		Positions: h.ledger,
		Params:    DefaultParams(),
	}
}

func (h *harness) buy(t *testing.T, code, date string, qty int64) {
	t.Helper()
	f := journal.Fill{Code: code, Side: market.Buy, Qty: qty, Price: decimal.NewFromInt(10), At: at(t, date, "10:00:00")}
	_, err := h.ledger.Execute(context.Background(), f, journal.Evaluation{
		TradeDate: date, Code: code, Side: market.Buy, EvalHour: 10, DecidedBy: NamePositionSizing, At: f.At,
	})
	require.NoError(t, err)
}

// session seeds a prior session of 5-minute bars and today's auction and
// 09:40 ticks for code.
func (h *harness) session(code, open, price string, auctionVol, nowVol int64) {
	h.db.FiveMin(code, prev, "09:35:00", 1000).
		FiveMin(code, prev, "09:40:00", 2000).
		FiveMin(code, prev, "09:45:00", 3000).
		Tick(code, today, "09:25:00", open, open, "10", auctionVol).
		Tick(code, today, "09:40:00", open, price, "10", nowVol)
}
