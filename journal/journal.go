// Package journal is the ledger: positions, the cash balance log, the
// delivery-order blotter and the strategy evaluation audit log. It is the
// only writer of trading state.
package journal

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/intraday/market"
)

var (
	// ErrLedgerWrite wraps every failed write. The persisted state may no
	// longer match reality, so callers must stop trading.
	ErrLedgerWrite      = errors.New("ledger write failed")
	ErrNegativePosition = errors.New("position would go negative")
	ErrInsufficientCash = errors.New("insufficient cash")
	ErrSameDaySell      = errors.New("sell on the day of the last buy")
	ErrNoAccount        = errors.New("account has no balance")
	ErrInconsistent     = errors.New("ledger inconsistent")
	ErrBadFill          = errors.New("invalid fill")
)

// Reason recorded on the first balance row of an account.
const ReasonInitial = "INITIAL"

type Position struct {
	Strategy    string
	Code        string
	Name        string
	Quantity    int64
	AvgPrice    decimal.Decimal
	OpenedDate  string
	LastBuyDate string
	LastUpdated time.Time
}

// Held reports whether the position has shares.
func (p Position) Held() bool { return p.Quantity > 0 }

// Fill is an executed trade at the engine's as-of instant.
type Fill struct {
	Code   string
	Name   string
	Side   market.Side
	Qty    int64
	Price  decimal.Decimal
	At     time.Time
	Reason string
}

func (f Fill) Amount() decimal.Decimal {
	return f.Price.Mul(decimal.NewFromInt(f.Qty))
}

type Order struct {
	OrderID       string
	DealDate      string
	DealTime      string
	Code          string
	Name          string
	Side          market.Side
	Price         decimal.Decimal
	Qty           int64
	Amount        decimal.Decimal
	Strategy      string
	Reason        string
	PositionAfter int64
	CashAfter     decimal.Decimal
}

type Balance struct {
	ID        int64
	AccountID string
	Strategy  string
	CashAfter decimal.Decimal
	Reason    string
	CreatedAt time.Time
}

// Evaluation is one audit row. Rows are unique per (strategy, trade date,
// code, side, hour) and later writes in the same hour replace earlier ones.
type Evaluation struct {
	TradeDate   string
	Code        string
	Name        string
	Side        market.Side
	EvalHour    int
	WillExecute bool
	Summary     string
	ExecuteQty  int64
	DecidedBy   string
	Trace       json.RawMessage
	At          time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
