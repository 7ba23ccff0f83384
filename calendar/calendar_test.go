package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/intraday/internal/fixture"
	"github.com/rustyeddy/intraday/market"
)

var shanghai = time.FixedZone("CST", 8*3600)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := market.ParseDate(s, shanghai)
	require.NoError(t, err)
	return d
}

func TestIsTradingDay(t *testing.T) {
	t.Parallel()

	db := fixture.New(t).Open("2025-03-03").Closed("2025-03-08")
	g := NewGate(db.DB, time.Second)
	ctx := context.Background()

	open, err := g.IsTradingDay(ctx, day(t, "2025-03-03").Add(10*time.Hour))
	require.NoError(t, err)
	assert.True(t, open)

	open, err = g.IsTradingDay(ctx, day(t, "2025-03-08"))
	require.NoError(t, err)
	assert.False(t, open)

	_, err = g.IsTradingDay(ctx, day(t, "2025-03-09"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTradingDays(t *testing.T) {
	t.Parallel()

	db := fixture.New(t).
		Open("2025-03-03", "2025-03-04", "2025-03-06").
		Closed("2025-03-05")
	g := NewGate(db.DB, time.Second)

	days, missing, err := g.TradingDays(context.Background(), day(t, "2025-03-03"), day(t, "2025-03-07"))
	require.NoError(t, err)

	var got []string
	for _, d := range days {
		got = append(got, market.DateOf(d))
	}
	assert.Equal(t, []string{"2025-03-03", "2025-03-04", "2025-03-06"}, got)
	assert.Equal(t, []string{"2025-03-07"}, missing)

	_, _, err = g.TradingDays(context.Background(), day(t, "2025-03-07"), day(t, "2025-03-03"))
	assert.Error(t, err)
}

func TestPrevTradingDay(t *testing.T) {
	t.Parallel()

	db := fixture.New(t).Open("2025-02-28", "2025-03-03").Closed("2025-03-01", "2025-03-02")
	g := NewGate(db.DB, time.Second)

	prev, err := g.PrevTradingDay(context.Background(), day(t, "2025-03-03"))
	require.NoError(t, err)
	assert.Equal(t, "2025-02-28", market.DateOf(prev))

	_, err = g.PrevTradingDay(context.Background(), day(t, "2025-02-28"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGateReportsQueryFailure(t *testing.T) {
	t.Parallel()

	db := fixture.New(t)
	require.NoError(t, db.Close())
	g := NewGate(db.DB, time.Second)

	_, err := g.IsTradingDay(context.Background(), day(t, "2025-03-03"))
	assert.ErrorIs(t, err, ErrUnavailable)
}
