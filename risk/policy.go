package risk

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Tier maps a minimum peer-strength count to the fraction of current cash
// committed to one entry.
type Tier struct {
	MinPeers int             `json:"min_peers" yaml:"min_peers"`
	Fraction decimal.Decimal `json:"fraction" yaml:"fraction"`
}

type Policy struct {
	Tiers   []Tier
	LotSize int64 // 100 shares on the A-share boards
}

// DefaultPolicy is three tenths of cash below three strong peers, five
// tenths up to six and seven tenths from seven.
func DefaultPolicy() Policy {
	return Policy{
		Tiers: []Tier{
			{MinPeers: 0, Fraction: decimal.RequireFromString("0.3")},
			{MinPeers: 3, Fraction: decimal.RequireFromString("0.5")},
			{MinPeers: 7, Fraction: decimal.RequireFromString("0.7")},
		},
		LotSize: 100,
	}
}

// Validate requires tiers sorted by MinPeers, starting at zero, with
// fractions in (0, 1] that never decrease.
func (p Policy) Validate() error {
	if p.LotSize <= 0 {
		return fmt.Errorf("lot size must be positive")
	}
	if len(p.Tiers) == 0 {
		return fmt.Errorf("at least one sizing tier is required")
	}
	if !sort.SliceIsSorted(p.Tiers, func(i, j int) bool { return p.Tiers[i].MinPeers < p.Tiers[j].MinPeers }) {
		return fmt.Errorf("sizing tiers must be sorted by min_peers")
	}
	if p.Tiers[0].MinPeers != 0 {
		return fmt.Errorf("first sizing tier must start at 0 peers")
	}
	one := decimal.NewFromInt(1)
	for i, t := range p.Tiers {
		if !t.Fraction.IsPositive() || t.Fraction.GreaterThan(one) {
			return fmt.Errorf("tier %d fraction %s must be in (0, 1]", i, t.Fraction)
		}
		if i > 0 {
			if t.MinPeers == p.Tiers[i-1].MinPeers {
				return fmt.Errorf("duplicate tier for %d peers", t.MinPeers)
			}
			if t.Fraction.LessThan(p.Tiers[i-1].Fraction) {
				return fmt.Errorf("tier %d fraction %s is below the previous tier", i, t.Fraction)
			}
		}
	}
	return nil
}

// Fraction returns the cash fraction for a peer-strength count.
func (p Policy) Fraction(peers int) decimal.Decimal {
	f := decimal.Zero
	for _, t := range p.Tiers {
		if peers >= t.MinPeers {
			f = t.Fraction
		}
	}
	return f
}
