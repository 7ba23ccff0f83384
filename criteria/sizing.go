package criteria

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/intraday/risk"
)

type SizingEvidence struct {
	Peers    int             `json:"peers"`
	Cash     decimal.Decimal `json:"cash"`
	Fraction decimal.Decimal `json:"fraction"`
	Price    decimal.Decimal `json:"price"`
	Qty      int64           `json:"qty"`
}

// PositionSizing turns cash, price and peer strength into a lot-rounded
// quantity. It fails when the budget does not buy a single lot.
type PositionSizing struct{}

func (PositionSizing) Name() string { return NamePositionSizing }

func (PositionSizing) Evaluate(ctx context.Context, env *Env) Outcome {
	quote, ok := evidenceOf[Quote](env, NamePreopenRiseBound)
	if !ok {
		tick, err := env.View.LatestTick(ctx, env.Code)
		if err != nil {
			return fromErr(err, "latest tick")
		}
		quote.Price = tick.Price()
	}
	peers := 0
	if ps, ok := evidenceOf[PeerStrength](env, NameSectorPeerStrength); ok {
		peers = ps.Count()
	}
	cash, err := env.Positions.Cash(ctx)
	if err != nil {
		return Errorf(err, "reading cash")
	}

	r := env.Params.Sizing.Size(risk.Inputs{Cash: cash, Price: quote.Price, Peers: peers})
	ev := SizingEvidence{Peers: peers, Cash: cash, Fraction: r.Fraction, Price: quote.Price, Qty: r.Qty}
	if r.Qty <= 0 {
		return Fail(fmt.Sprintf("%s of %s cash buys no lot at %s", r.Fraction, cash.StringFixed(2), quote.Price), ev)
	}
	return Pass(fmt.Sprintf("%d shares at %s (%s of cash, %d peers)", r.Qty, quote.Price, r.Fraction, peers), ev)
}

// Sizing extracts the sized quantity and price from a passed outcome.
func Sizing(o Outcome) (SizingEvidence, bool) {
	ev, ok := o.Evidence.(SizingEvidence)
	return ev, ok && o.Passed()
}
