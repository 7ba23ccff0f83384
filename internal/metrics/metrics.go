// Package metrics holds the engine's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is registered on its own registry so tests and multiple engines
// never collide on the global one.
type Metrics struct {
	Registry *prometheus.Registry

	Ticks             *prometheus.CounterVec
	Decisions         *prometheus.CounterVec
	CriterionOutcomes *prometheus.CounterVec
	Trades            *prometheus.CounterVec
	LedgerFailures    prometheus.Counter
	CalendarSkips     prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intraday_ticks_total",
			Help: "Scheduler ticks processed.",
		}, []string{"mode"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intraday_decisions_total",
			Help: "Per-instrument decisions by side and action.",
		}, []string{"side", "action"}),
		CriterionOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intraday_criterion_outcomes_total",
			Help: "Criterion evaluations by verdict.",
		}, []string{"criterion", "verdict"}),
		Trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intraday_trades_total",
			Help: "Executed fills by side.",
		}, []string{"side"}),
		LedgerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intraday_ledger_failures_total",
			Help: "Ledger writes that failed and halted the engine.",
		}),
		CalendarSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intraday_calendar_skips_total",
			Help: "Days or ticks skipped because the calendar could not answer.",
		}),
	}
	m.Registry.MustRegister(m.Ticks, m.Decisions, m.CriterionOutcomes, m.Trades, m.LedgerFailures, m.CalendarSkips)
	return m
}

// The helpers below accept a nil receiver so callers can run without
// metrics.

func (m *Metrics) Tick(mode string) {
	if m != nil {
		m.Ticks.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) Decision(side, action string) {
	if m != nil {
		m.Decisions.WithLabelValues(side, action).Inc()
	}
}

func (m *Metrics) Criterion(name, verdict string) {
	if m != nil {
		m.CriterionOutcomes.WithLabelValues(name, verdict).Inc()
	}
}

func (m *Metrics) Trade(side string) {
	if m != nil {
		m.Trades.WithLabelValues(side).Inc()
	}
}

func (m *Metrics) LedgerFailure() {
	if m != nil {
		m.LedgerFailures.Inc()
	}
}

func (m *Metrics) CalendarSkip() {
	if m != nil {
		m.CalendarSkips.Inc()
	}
}
