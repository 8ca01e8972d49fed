// Package metrics registers the Prometheus instruments exposed on
// /metrics. Counters are package-level and registered once via
// promauto, so repositories and services can record without threading a
// metrics handle through every constructor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConfirmationsTotal counts confirm-engine outcomes by action
	// (created, updated, unchanged, removed).
	ConfirmationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_confirmations_total",
		Help: "Total confirmation engine transitions by action",
	}, []string{"action"})

	// ReconcileRowsTotal counts bulk reconciliation row outcomes
	// (created, updated, skipped, error).
	ReconcileRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_reconcile_rows_total",
		Help: "Total bulk reconciliation rows by outcome",
	}, []string{"outcome"})

	// InvariantViolationsTotal counts ledger operations that would have
	// driven a counter below zero. Any increase means counters drifted
	// from the confirmation records and should page someone.
	InvariantViolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registration_ledger_invariant_violations_total",
		Help: "Total capacity counter mutations rejected for breaking the zero floor",
	})

	// OverbookedConfirmationsTotal counts increments that pushed a
	// counter past its capacity while lenient enforcement was active.
	OverbookedConfirmationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registration_ledger_overbooked_total",
		Help: "Total confirmations admitted beyond configured capacity",
	})
)
