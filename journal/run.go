package journal

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
)

// Run is the summary row of one simulation.
type Run struct {
	RunID     string
	Strategy  string
	StartDate string
	EndDate   string
	Days      int
	Ticks     int
	Decisions int
	Buys      int
	Sells     int
	StartCash decimal.Decimal
	EndCash   decimal.Decimal
	Created   time.Time
}

func (r Run) NetPL() decimal.Decimal { return r.EndCash.Sub(r.StartCash) }

// ReturnPct is the cash return in percent.
func (r Run) ReturnPct() decimal.Decimal {
	if r.StartCash.IsZero() {
		return decimal.Zero
	}
	return r.NetPL().Div(r.StartCash).Mul(decimal.NewFromInt(100))
}

// RecordRun stores a simulation summary.
func (l *Ledger) RecordRun(ctx context.Context, r Run) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO simulation_runs
		(run_id, strategy, start_date, end_date, days, ticks, decisions, buys, sells,
		 start_cash, end_cash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, l.strategy, r.StartDate, r.EndDate, r.Days, r.Ticks, r.Decisions, r.Buys, r.Sells,
		r.StartCash.String(), r.EndCash.String(), r.Created)
	if err != nil {
		return fmt.Errorf("%w: record run %s: %w", ErrLedgerWrite, r.RunID, err)
	}
	return nil
}

func (l *Ledger) GetRun(ctx context.Context, runID string) (Run, error) {
	var r Run
	err := l.db.QueryRowContext(ctx, `
		SELECT run_id, strategy, start_date, end_date, days, ticks, decisions, buys, sells,
		       start_cash, end_cash, created_at
		FROM simulation_runs WHERE run_id = ?`, runID).Scan(
		&r.RunID, &r.Strategy, &r.StartDate, &r.EndDate, &r.Days, &r.Ticks, &r.Decisions,
		&r.Buys, &r.Sells, &r.StartCash, &r.EndCash, &r.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %q not found", runID)
	}
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

var runFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var runTemplate = template.Must(template.New("run").Funcs(runFuncs).Parse(RunOrgTemplate))

// WriteReport renders the run as an Org heading.
func (r Run) WriteReport(w io.Writer) error {
	buf := new(bytes.Buffer)
	if err := runTemplate.Execute(buf, r); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

const RunOrgTemplate = `* SIMULATION: {{.Strategy}} {{.StartDate}} .. {{.EndDate}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.Strategy}}
:START_DATE:  {{.StartDate}}
:END_DATE:    {{.EndDate}}
:START_CASH:  {{money .StartCash}}
:END_CASH:    {{money .EndCash}}
:NET_PL:      {{money .NetPL}}
:RETURN_PCT:  {{money .ReturnPct}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Activity
| Metric    | Count |
|-----------+-------|
| Days      | {{.Days}} |
| Ticks     | {{.Ticks}} |
| Decisions | {{.Decisions}} |
| Buys      | {{.Buys}} |
| Sells     | {{.Sells}} |
`
