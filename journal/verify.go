package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/intraday/market"
)

// Report is the outcome of a reconciliation pass.
type Report struct {
	InitialCash  decimal.Decimal
	ExpectedCash decimal.Decimal
	Cash         decimal.Decimal
	Orders       int
	Problems     []string
}

func (r Report) OK() bool { return len(r.Problems) == 0 }

// Verify rebuilds cash and quantities from the blotter and compares them
// with the balance log and the position table. It returns ErrInconsistent
// when they disagree.
func (l *Ledger) Verify(ctx context.Context) (Report, error) {
	var rep Report

	balances, err := l.Balances(ctx)
	if err != nil {
		return rep, err
	}
	if len(balances) == 0 {
		return rep, nil
	}
	if balances[0].Reason != ReasonInitial {
		rep.Problems = append(rep.Problems, fmt.Sprintf("first balance row is %q, not %s", balances[0].Reason, ReasonInitial))
	}
	rep.InitialCash = balances[0].CashAfter
	rep.Cash = balances[len(balances)-1].CashAfter

	orders, err := l.Orders(ctx, "", "")
	if err != nil {
		return rep, err
	}
	rep.Orders = len(orders)

	expected := rep.InitialCash
	qty := map[string]int64{}
	for _, o := range orders {
		if !o.Amount.Equal(o.Price.Mul(decimal.NewFromInt(o.Qty))) {
			rep.Problems = append(rep.Problems, fmt.Sprintf("order %s amount %s != %d x %s", o.OrderID, o.Amount, o.Qty, o.Price))
		}
		switch o.Side {
		case market.Buy:
			expected = expected.Sub(o.Amount)
			qty[o.Code] += o.Qty
		case market.Sell:
			expected = expected.Add(o.Amount)
			qty[o.Code] -= o.Qty
		}
		if qty[o.Code] < 0 {
			rep.Problems = append(rep.Problems, fmt.Sprintf("%s goes negative at order %s", o.Code, o.OrderID))
		}
		if qty[o.Code] != o.PositionAfter {
			rep.Problems = append(rep.Problems, fmt.Sprintf("order %s position_after %d, replay gives %d", o.OrderID, o.PositionAfter, qty[o.Code]))
		}
		if !expected.Equal(o.CashAfter) {
			rep.Problems = append(rep.Problems, fmt.Sprintf("order %s cash_after %s, replay gives %s", o.OrderID, o.CashAfter, expected))
		}
	}
	rep.ExpectedCash = expected
	if !expected.Equal(rep.Cash) {
		rep.Problems = append(rep.Problems, fmt.Sprintf("cash %s, replay gives %s", rep.Cash, expected))
	}

	positions, err := l.Positions(ctx)
	if err != nil {
		return rep, err
	}
	seen := map[string]bool{}
	for _, p := range positions {
		seen[p.Code] = true
		if p.Quantity < 0 {
			rep.Problems = append(rep.Problems, fmt.Sprintf("%s has negative quantity %d", p.Code, p.Quantity))
		}
		if p.Quantity != qty[p.Code] {
			rep.Problems = append(rep.Problems, fmt.Sprintf("%s quantity %d, orders give %d", p.Code, p.Quantity, qty[p.Code]))
		}
	}
	for code, q := range qty {
		if !seen[code] && q != 0 {
			rep.Problems = append(rep.Problems, fmt.Sprintf("%s has orders for %d shares but no position row", code, q))
		}
	}

	if !rep.OK() {
		return rep, fmt.Errorf("%w: %s", ErrInconsistent, strings.Join(rep.Problems, "; "))
	}
	return rep, nil
}
