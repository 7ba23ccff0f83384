package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLimitUp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		code     string
		title    string
		preClose string
		price    string
		limit    string
		up       bool
	}{
		{"main board", "600001", "Alpha", "10.00", "11.00", "11.00", true},
		{"main board one cent off", "600001", "Alpha", "10.00", "10.99", "11.00", true},
		{"main board below", "600001", "Alpha", "10.00", "10.98", "11.00", false},
		{"growth 300", "300123", "Beta", "10.00", "12.00", "12.00", true},
		{"star 688", "688001", "Gamma", "10.00", "11.00", "12.00", false},
		{"beijing", "830001", "Delta", "10.00", "13.00", "13.00", true},
		{"special treatment", "600002", "ST Epsilon", "10.00", "10.50", "10.50", true},
		{"rounding", "600003", "Zeta", "7.77", "8.55", "8.55", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, d(tt.limit).Equal(LimitUpPrice(tt.code, tt.title, d(tt.preClose))),
				"limit %s", LimitUpPrice(tt.code, tt.title, d(tt.preClose)))
			assert.Equal(t, tt.up, IsLimitUp(tt.code, tt.title, d(tt.price), d(tt.preClose)))
		})
	}

	assert.False(t, IsLimitUp("600001", "", d("1"), decimal.Zero))
}

func TestRise(t *testing.T) {
	t.Parallel()

	r, ok := Bar{Close: d("10.95"), PreClose: d("10")}.Rise()
	require.True(t, ok)
	assert.True(t, d("0.095").Equal(r))

	_, ok = Bar{Close: d("10")}.Rise()
	assert.False(t, ok)
}

func TestThemes(t *testing.T) {
	t.Parallel()

	th := ParseThemes(" robotics, chips ,,ai")
	assert.Equal(t, Themes{"robotics", "chips", "ai"}, th)
	assert.Equal(t, "robotics", th.Primary())
	assert.Equal(t, "chips", th.Secondary())
	assert.Equal(t, Themes{"robotics", "chips"}, th.Top2())
	assert.False(t, th.Top2().Has("ai"))
	assert.True(t, th.SharesTop2(Themes{"chips", "x"}))
	assert.False(t, th.SharesTop2(Themes{"x", "y", "ai"}))
	assert.Equal(t, "", Themes(nil).Primary())
	assert.False(t, th.Has(""))
}

func TestClockHelpers(t *testing.T) {
	t.Parallel()

	c, err := ParseClock("09:14:20")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+14*time.Minute+20*time.Second, c)
	assert.Equal(t, "09:14:20", FormatClock(c))

	_, err = ParseClock("9:14")
	assert.Error(t, err)

	loc := time.FixedZone("CST", 8*3600)
	day, err := ParseDate("2025-03-03", loc)
	require.NoError(t, err)
	ts := day.Add(c)
	assert.Equal(t, "2025-03-03", DateOf(ts))
	assert.Equal(t, "09:14:20", ClockOf(ts))
	assert.Equal(t, c, SinceMidnight(ts))
	assert.Equal(t, day, Midnight(ts))
}

func TestGranularity(t *testing.T) {
	t.Parallel()

	assert.True(t, Tick.Intraday())
	assert.True(t, FiveMinute.Intraday())
	assert.False(t, Daily.Intraday())
	assert.Equal(t, "daily", Daily.String())
	assert.True(t, Buy.Valid())
	assert.False(t, Side("HOLD").Valid())
}
