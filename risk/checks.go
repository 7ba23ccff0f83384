package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/intraday/market"
)

type Violation struct {
	Code string
	Msg  string
}

// Decision is the result of the pre-trade checks.
type Decision struct {
	Allowed    bool
	Violations []Violation
	Cost       decimal.Decimal
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

func (d Decision) String() string {
	if d.Allowed {
		return "allowed"
	}
	s := ""
	for i, v := range d.Violations {
		if i > 0 {
			s += "; "
		}
		s += v.Code + ": " + v.Msg
	}
	return s
}

type TradeIntent struct {
	Code  string
	Side  market.Side
	Qty   int64
	Price decimal.Decimal
	Date  string
}

type AccountSnapshot struct {
	Cash        decimal.Decimal
	Held        int64
	LastBuyDate string
}

// Evaluate runs the checks the ledger would otherwise fail on, so a bad
// intent is skipped instead of halting the engine.
func Evaluate(p Policy, intent TradeIntent, acct AccountSnapshot) Decision {
	d := Decision{Allowed: true}

	if !intent.Side.Valid() {
		d.add("BAD_SIDE", fmt.Sprintf("side %q", intent.Side))
		return d
	}
	if !intent.Price.IsPositive() {
		d.add("NO_PRICE", "price must be positive")
		return d
	}
	if intent.Qty <= 0 {
		d.add("NO_QTY", "quantity must be positive")
		return d
	}
	d.Cost = Cost(intent.Qty, intent.Price)

	switch intent.Side {
	case market.Buy:
		if p.LotSize > 0 && intent.Qty%p.LotSize != 0 {
			d.add("NOT_LOT_MULTIPLE", fmt.Sprintf("quantity %d is not a multiple of %d", intent.Qty, p.LotSize))
		}
		if d.Cost.GreaterThan(acct.Cash) {
			d.add("INSUFFICIENT_CASH", fmt.Sprintf("cost %s exceeds cash %s", d.Cost.StringFixed(2), acct.Cash.StringFixed(2)))
		}
	case market.Sell:
		if intent.Qty > acct.Held {
			d.add("NEGATIVE_POSITION", fmt.Sprintf("sell %d exceeds held %d", intent.Qty, acct.Held))
		}
		if acct.LastBuyDate != "" && acct.LastBuyDate >= intent.Date {
			d.add("SAME_DAY_SELL", fmt.Sprintf("last buy %s is not before %s", acct.LastBuyDate, intent.Date))
		}
	}
	return d
}
