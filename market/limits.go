package market

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Daily price-limit ratios by board.
var (
	mainBoardLimit = decimal.RequireFromString("1.10")
	growthLimit    = decimal.RequireFromString("1.20")
	beijingLimit   = decimal.RequireFromString("1.30")
	specialLimit   = decimal.RequireFromString("1.05")
	limitTolerance = decimal.RequireFromString("0.01")
)

// LimitRatio returns the multiplier of the previous close that bounds the
// day's price for an instrument.
func LimitRatio(code, name string) decimal.Decimal {
	switch {
	case strings.HasPrefix(code, "300"), strings.HasPrefix(code, "301"), strings.HasPrefix(code, "688"):
		return growthLimit
	case strings.HasPrefix(code, "8"), strings.HasPrefix(code, "4"):
		return beijingLimit
	case strings.Contains(name, "ST"):
		return specialLimit
	default:
		return mainBoardLimit
	}
}

// LimitUpPrice rounds pre_close * ratio to the cent.
func LimitUpPrice(code, name string, preClose decimal.Decimal) decimal.Decimal {
	if !preClose.IsPositive() {
		return decimal.Zero
	}
	return preClose.Mul(LimitRatio(code, name)).Round(2)
}

// IsLimitUp treats any price within one cent of the limit as locked.
func IsLimitUp(code, name string, price, preClose decimal.Decimal) bool {
	limit := LimitUpPrice(code, name, preClose)
	if limit.IsZero() {
		return false
	}
	return price.GreaterThanOrEqual(limit.Sub(limitTolerance))
}
