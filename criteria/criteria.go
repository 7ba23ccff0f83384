// Package criteria holds the buy and sell rules of the leading-stock
// strategy. Each rule reads market data only through a pit.View and
// reports a three-state Outcome.
package criteria

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/intraday/journal"
	"github.com/rustyeddy/intraday/pit"
)

type Verdict int

const (
	VerdictPass Verdict = iota
	VerdictFail
	VerdictError
)

func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "pass"
	case VerdictFail:
		return "fail"
	case VerdictError:
		return "error"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

func (v Verdict) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *Verdict) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pass":
		*v = VerdictPass
	case "fail":
		*v = VerdictFail
	case "error":
		*v = VerdictError
	default:
		return fmt.Errorf("unknown verdict %q", b)
	}
	return nil
}

// Outcome is what one criterion concluded. Evidence is kept in the audit
// trace and may be read by later criteria of the same run.
type Outcome struct {
	Criterion string  `json:"criterion"`
	Verdict   Verdict `json:"verdict"`
	Reason    string  `json:"reason,omitempty"`
	Evidence  any     `json:"evidence,omitempty"`
	Error     string  `json:"error,omitempty"`
	Err       error   `json:"-"`
}

func Pass(reason string, evidence any) Outcome {
	return Outcome{Verdict: VerdictPass, Reason: reason, Evidence: evidence}
}

func Fail(reason string, evidence any) Outcome {
	return Outcome{Verdict: VerdictFail, Reason: reason, Evidence: evidence}
}

func Errorf(err error, format string, args ...any) Outcome {
	reason := fmt.Sprintf(format, args...)
	return Outcome{Verdict: VerdictError, Reason: reason, Error: err.Error(), Err: err}
}

// fromErr maps a data error: missing data fails the criterion, anything
// else is a computation error.
func fromErr(err error, what string) Outcome {
	if errors.Is(err, pit.ErrNoData) {
		return Fail(what+" unavailable", nil)
	}
	return Errorf(err, "reading %s", what)
}

func (o Outcome) Passed() bool { return o.Verdict == VerdictPass }

type Criterion interface {
	Name() string
	Evaluate(ctx context.Context, env *Env) Outcome
}

// Positions is the read side of the ledger.
type Positions interface {
	Cash(ctx context.Context) (decimal.Decimal, error)
	Position(ctx context.Context, code string) (journal.Position, error)
	HeldPositions(ctx context.Context) ([]journal.Position, error)
}

// Env is the input of one instrument's evaluation at one instant.
type Env struct {
	Code      string
	Name      string
	AsOf      time.Time
	View      *pit.View
	Positions Positions
	Params    Params

	// Trace holds the outcomes produced so far in this run, oldest first.
	Trace []Outcome

	ratio    *RatioEvidence
	ratioErr error
}

// Date is the as-of trading date.
func (e *Env) Date() string { return e.View.Date() }

// Find returns the latest outcome of the named criterion in the trace.
func (e *Env) Find(name string) (Outcome, bool) {
	for i := len(e.Trace) - 1; i >= 0; i-- {
		if e.Trace[i].Criterion == name {
			return e.Trace[i], true
		}
	}
	return Outcome{}, false
}

func evidenceOf[T any](e *Env, name string) (T, bool) {
	var zero T
	o, ok := e.Find(name)
	if !ok {
		return zero, false
	}
	v, ok := o.Evidence.(T)
	return v, ok
}
