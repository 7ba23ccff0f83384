package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade or of a decision.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

func (s Side) Valid() bool { return s == Buy || s == Sell }

// Granularity selects a bar table. Tick and FiveMinute rows become visible
// intraday; Daily rows only exist once the session has been closed out.
type Granularity int

const (
	Tick Granularity = iota
	FiveMinute
	Daily
)

func (g Granularity) String() string {
	switch g {
	case Tick:
		return "tick"
	case FiveMinute:
		return "5min"
	case Daily:
		return "daily"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// Intraday reports whether rows of this granularity are published during
// the session they describe.
func (g Granularity) Intraday() bool { return g == Tick || g == FiveMinute }

// Bar is one row of any granularity. For ticks Close holds the last traded
// price, Open/High/Low the session values so far and Volume the cumulative
// session volume. Volumes are in shares.
type Bar struct {
	Code     string
	Name     string
	Date     string
	Time     string
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	PreClose decimal.Decimal
	Volume   int64
	Amount   decimal.Decimal
}

// Price is the last traded price of a tick.
func (b Bar) Price() decimal.Decimal { return b.Close }

// Rise returns (price - pre_close) / pre_close. ok is false when the
// previous close is missing or not positive.
func (b Bar) Rise() (rise decimal.Decimal, ok bool) {
	return RiseOver(b.Close, b.PreClose)
}

// RiseOver returns (price - base) / base.
func RiseOver(price, base decimal.Decimal) (decimal.Decimal, bool) {
	if !base.IsPositive() {
		return decimal.Zero, false
	}
	return price.Sub(base).Div(base), true
}

// Instrument is immutable reference data.
type Instrument struct {
	Code string
	Name string
}
