package journal

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/intraday/internal/fixture"
	"github.com/rustyeddy/intraday/market"
)

var cst = time.FixedZone("CST", 8*3600)

func at(t *testing.T, date, clock string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", date+" "+clock, cst)
	require.NoError(t, err)
	return ts
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestLedger(t *testing.T, cash string) *Ledger {
	t.Helper()
	db := fixture.New(t)
	l, err := Open(db.DB, "leader", "acct-1")
	require.NoError(t, err)
	_, err = l.OpenAccount(context.Background(), dec(cash), at(t, "2025-03-03", "09:00:00"))
	require.NoError(t, err)
	return l
}

func evalFor(f Fill) Evaluation {
	return Evaluation{
		TradeDate:   market.DateOf(f.At),
		Code:        f.Code,
		Side:        f.Side,
		EvalHour:    f.At.Hour(),
		WillExecute: true,
		ExecuteQty:  f.Qty,
		DecidedBy:   "test",
		Summary:     "executed",
		At:          f.At,
	}
}

func execute(t *testing.T, l *Ledger, f Fill) (Position, error) {
	t.Helper()
	return l.Execute(context.Background(), f, evalFor(f))
}

func TestOpenAccountOnce(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, "100000")
	cash, err := l.OpenAccount(context.Background(), dec("5"), at(t, "2025-03-04", "09:00:00"))
	require.NoError(t, err)
	assert.True(t, dec("100000").Equal(cash))

	bals, err := l.Balances(context.Background())
	require.NoError(t, err)
	require.Len(t, bals, 1)
	assert.Equal(t, ReasonInitial, bals[0].Reason)

	_, err = l.OpenAccount(context.Background(), decimal.Zero, time.Now())
	assert.Error(t, err)
}

func TestCashWithoutAccount(t *testing.T) {
	t.Parallel()

	l, err := Open(fixture.New(t).DB, "leader", "acct-1")
	require.NoError(t, err)
	_, err = l.Cash(context.Background())
	assert.ErrorIs(t, err, ErrNoAccount)

	_, err = Open(fixture.New(t).DB, "", "acct-1")
	assert.Error(t, err)
}

func TestBuyThenSellNextDay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := newTestLedger(t, "100000")

	pos, err := execute(t, l, Fill{Code: "600001", Name: "Alpha", Side: market.Buy, Qty: 500,
		Price: dec("10.00"), At: at(t, "2025-03-03", "09:35:20")})
	require.NoError(t, err)
	assert.Equal(t, int64(500), pos.Quantity)
	assert.True(t, dec("10").Equal(pos.AvgPrice))
	assert.Equal(t, "2025-03-03", pos.OpenedDate)

	cash, err := l.Cash(ctx)
	require.NoError(t, err)
	assert.Equal(t, "95000.00", cash.StringFixed(2))

	last, err := l.LastBuyDate(ctx, "600001")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-03", last)

	pos, err = execute(t, l, Fill{Code: "600001", Side: market.Sell, Qty: 500,
		Price: dec("11.00"), At: at(t, "2025-03-04", "10:00:00")})
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos.Quantity)
	assert.True(t, dec("10").Equal(pos.AvgPrice))
	assert.Equal(t, "Alpha", pos.Name)

	cash, err = l.Cash(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100500.00", cash.StringFixed(2))

	held, err := l.HeldPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, held)

	all, err := l.Positions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	orders, err := l.Orders(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, market.Buy, orders[0].Side)
	assert.Equal(t, "09:35:20", orders[0].DealTime)
	assert.Equal(t, int64(500), orders[0].PositionAfter)
	assert.Equal(t, "5000.00", orders[0].Amount.StringFixed(2))
	assert.Equal(t, "100500.00", orders[1].CashAfter.StringFixed(2))

	rep, err := l.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, rep.OK())
	assert.Equal(t, 2, rep.Orders)
}

func TestWeightedAverage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := newTestLedger(t, "1000000")

	_, err := execute(t, l, Fill{Code: "600001", Side: market.Buy, Qty: 300, Price: dec("10.00"), At: at(t, "2025-03-03", "09:40:00")})
	require.NoError(t, err)
	pos, err := execute(t, l, Fill{Code: "600001", Side: market.Buy, Qty: 100, Price: dec("12.40"), At: at(t, "2025-03-04", "09:40:00")})
	require.NoError(t, err)

	// (300*10 + 100*12.4) / 400
	assert.Equal(t, "10.60", pos.AvgPrice.StringFixed(2))
	assert.Equal(t, "2025-03-03", pos.OpenedDate)
	assert.Equal(t, "2025-03-04", pos.LastBuyDate)

	pos, err = execute(t, l, Fill{Code: "600001", Side: market.Sell, Qty: 150, Price: dec("20"), At: at(t, "2025-03-05", "09:40:00")})
	require.NoError(t, err)
	assert.Equal(t, "10.60", pos.AvgPrice.StringFixed(2), "sell leaves average cost alone")
	assert.Equal(t, int64(250), pos.Quantity)

	stored, err := l.Position(ctx, "600001")
	require.NoError(t, err)
	assert.True(t, pos.AvgPrice.Equal(stored.AvgPrice))

	zero, err := l.Position(ctx, "600999")
	require.NoError(t, err)
	assert.False(t, zero.Held())
}

func TestWeightedAverageFormula(t *testing.T) {
	t.Parallel()

	tests := []struct {
		held  int64
		avg   string
		qty   int64
		price string
		want  string
	}{
		{0, "0", 100, "9.87", "9.87"},
		{100, "10", 100, "12", "11"},
		{200, "5.5", 600, "7.25", "6.8125"},
	}
	for _, tt := range tests {
		got := WeightedAverage(tt.held, dec(tt.avg), tt.qty, dec(tt.price))
		assert.True(t, dec(tt.want).Equal(got), "got %s want %s", got, tt.want)
	}
	assert.True(t, WeightedAverage(0, decimal.Zero, 0, dec("1")).IsZero())
}

func TestExecuteRejects(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, "1000")
	day1 := at(t, "2025-03-03", "10:00:00")

	_, err := execute(t, l, Fill{Code: "600001", Side: market.Buy, Qty: 200, Price: dec("10"), At: day1})
	assert.ErrorIs(t, err, ErrInsufficientCash)
	assert.ErrorIs(t, err, ErrLedgerWrite)

	_, err = execute(t, l, Fill{Code: "600001", Side: market.Sell, Qty: 100, Price: dec("10"), At: day1})
	assert.ErrorIs(t, err, ErrNegativePosition)

	_, err = execute(t, l, Fill{Code: "600001", Side: market.Buy, Qty: 100, Price: dec("5"), At: day1})
	require.NoError(t, err)
	_, err = execute(t, l, Fill{Code: "600001", Side: market.Sell, Qty: 100, Price: dec("5"), At: day1.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrSameDaySell)

	_, err = execute(t, l, Fill{Code: "600001", Side: market.Buy, Qty: 0, Price: dec("5"), At: day1})
	assert.ErrorIs(t, err, ErrBadFill)

	// Rejected fills leave no trace.
	orders, err := l.Orders(context.Background(), "", "")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	cash, err := l.Cash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "500.00", cash.StringFixed(2))
}

func TestExecuteIsAtomic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := newTestLedger(t, "100000")
	_, err := l.db.Exec(`DROP TABLE strategy_evaluations`)
	require.NoError(t, err)

	_, err = execute(t, l, Fill{Code: "600001", Side: market.Buy, Qty: 100, Price: dec("10"), At: at(t, "2025-03-03", "10:00:00")})
	assert.ErrorIs(t, err, ErrLedgerWrite)

	cash, err := l.Cash(ctx)
	require.NoError(t, err)
	assert.True(t, dec("100000").Equal(cash))
	pos, err := l.Position(ctx, "600001")
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos.Quantity)
	orders, err := l.Orders(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

// Random buy/sell sequences over several days must conserve cash exactly.
func TestCashConservation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	initial := dec("250000")
	l := newTestLedger(t, initial.String())
	rng := rand.New(rand.NewSource(7))
	codes := []string{"600001", "600002", "300003"}

	expected := initial
	day := at(t, "2025-03-03", "09:40:00")
	for i := 0; i < 60; i++ {
		if i%6 == 0 {
			day = day.AddDate(0, 0, 1)
		}
		code := codes[rng.Intn(len(codes))]
		price := decimal.NewFromInt(int64(500 + rng.Intn(1500))).Div(decimal.NewFromInt(100))
		pos, err := l.Position(ctx, code)
		require.NoError(t, err)

		f := Fill{Code: code, Price: price, At: day.Add(time.Duration(i) * time.Second)}
		if pos.Held() && pos.LastBuyDate < market.DateOf(day) && rng.Intn(2) == 0 {
			f.Side, f.Qty = market.Sell, pos.Quantity
		} else {
			f.Side, f.Qty = market.Buy, int64(100*(1+rng.Intn(3)))
		}

		_, err = execute(t, l, f)
		if f.Side == market.Buy && f.Amount().GreaterThan(expected) {
			assert.ErrorIs(t, err, ErrInsufficientCash)
			continue
		}
		require.NoError(t, err)
		if f.Side == market.Buy {
			expected = expected.Sub(f.Amount())
		} else {
			expected = expected.Add(f.Amount())
		}
	}

	cash, err := l.Cash(ctx)
	require.NoError(t, err)
	assert.True(t, expected.Equal(cash), "cash %s expected %s", cash, expected)

	rep, err := l.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, rep.ExpectedCash.Equal(cash))
}

func TestVerifyDetectsTampering(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := newTestLedger(t, "100000")
	_, err := execute(t, l, Fill{Code: "600001", Side: market.Buy, Qty: 100, Price: dec("10"), At: at(t, "2025-03-03", "10:00:00")})
	require.NoError(t, err)

	_, err = l.db.Exec(`UPDATE positions SET quantity = 300`)
	require.NoError(t, err)
	_, err = l.db.Exec(`INSERT INTO account_balances (account_id, strategy, cash_after, reason, created_at)
		VALUES ('acct-1', 'leader', '123', 'manual', ?)`, time.Now())
	require.NoError(t, err)

	rep, err := l.Verify(ctx)
	assert.ErrorIs(t, err, ErrInconsistent)
	assert.Len(t, rep.Problems, 2)
}

func TestOrdersDateRange(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, "100000")
	for _, d := range []string{"2025-03-03", "2025-03-04", "2025-03-05"} {
		_, err := execute(t, l, Fill{Code: "600001", Side: market.Buy, Qty: 100, Price: dec("10"), At: at(t, d, "10:00:00")})
		require.NoError(t, err)
	}

	orders, err := l.Orders(context.Background(), "2025-03-04", "2025-03-04")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "2025-03-04", orders[0].DealDate)

	orders, err = l.Orders(context.Background(), "2025-03-04", "")
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}
