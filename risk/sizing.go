package risk

import "github.com/shopspring/decimal"

type Inputs struct {
	Cash  decimal.Decimal
	Price decimal.Decimal
	Peers int
}

type Result struct {
	Fraction decimal.Decimal
	Budget   decimal.Decimal
	Qty      int64
}

// Size commits Fraction(peers) of cash and rounds the share count down to
// whole lots. A zero Qty means the budget does not buy one lot.
func (p Policy) Size(in Inputs) Result {
	r := Result{Fraction: p.Fraction(in.Peers)}
	if !in.Cash.IsPositive() || !in.Price.IsPositive() || p.LotSize <= 0 {
		return r
	}
	r.Budget = in.Cash.Mul(r.Fraction)
	lots := r.Budget.Div(in.Price).Div(decimal.NewFromInt(p.LotSize)).Floor()
	r.Qty = lots.IntPart() * p.LotSize
	return r
}

// Cost is qty shares at price.
func Cost(qty int64, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(qty))
}
