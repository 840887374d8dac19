// Package metrics collects the Prometheus instrumentation shared by
// runtime, eventbus, and persistence (SPEC_FULL.md's domain-stack
// allocation of github.com/prometheus/client_golang): dispatch latency,
// append-phase round counts, event bus drops, and persistence append/
// snapshot/health activity. None of the retrieved repos ship usable
// instrumentation source for this library (it only appears in their
// go.mod manifests), so the collectors below follow the client_golang
// package's own idiomatic construction (NewCounter/NewHistogram plus
// MustRegister) rather than any specific example file.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles every metric this module exports. The zero value is
// not usable; build one with New and share it across a Runtime/Writer
// pair that belong to the same document.
type Collector struct {
	DispatchDuration   prometheus.Histogram
	AppendPhaseRounds  prometheus.Histogram
	TransactionsFiltered prometheus.Counter
	EventsDropped      prometheus.Counter

	PersistenceAppends  prometheus.Counter
	PersistenceSnapshots prometheus.Counter
	PersistenceHealthErrors prometheus.Counter
}

// New builds a Collector and registers every metric with reg. Passing
// prometheus.NewRegistry() (rather than the global DefaultRegisterer)
// keeps metrics scoped to one Collector, so multiple documents in the
// same process don't collide on metric names.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docweave_dispatch_duration_seconds",
			Help:    "Time spent in one Runtime.dispatch call, including middleware and the append-phase fixed point.",
			Buckets: prometheus.DefBuckets,
		}),
		AppendPhaseRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docweave_append_phase_rounds",
			Help:    "Number of append-phase passes a single dispatch needed to reach its fixed point.",
			Buckets: prometheus.LinearBuckets(0, 1, 16),
		}),
		TransactionsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docweave_transactions_filtered_total",
			Help: "Transactions rejected by a plugin's FilterTransaction.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docweave_events_dropped_total",
			Help: "Event bus deliveries dropped to a slow subscriber's queue overflow.",
		}),
		PersistenceAppends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docweave_persistence_appends_total",
			Help: "Log records appended by a persistence Writer.",
		}),
		PersistenceSnapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docweave_persistence_snapshots_total",
			Help: "Snapshots written by a persistence Writer.",
		}),
		PersistenceHealthErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docweave_persistence_health_errors_total",
			Help: "HealthEvents carrying a non-nil error.",
		}),
	}
	reg.MustRegister(
		c.DispatchDuration,
		c.AppendPhaseRounds,
		c.TransactionsFiltered,
		c.EventsDropped,
		c.PersistenceAppends,
		c.PersistenceSnapshots,
		c.PersistenceHealthErrors,
	)
	return c
}

// Noop is a Collector whose metrics are never registered or observed, used
// as the default when a Runtime or Writer isn't given one explicitly.
var Noop = &Collector{
	DispatchDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Name: "docweave_noop_dispatch_duration_seconds"}),
	AppendPhaseRounds:       prometheus.NewHistogram(prometheus.HistogramOpts{Name: "docweave_noop_append_phase_rounds"}),
	TransactionsFiltered:    prometheus.NewCounter(prometheus.CounterOpts{Name: "docweave_noop_transactions_filtered_total"}),
	EventsDropped:           prometheus.NewCounter(prometheus.CounterOpts{Name: "docweave_noop_events_dropped_total"}),
	PersistenceAppends:      prometheus.NewCounter(prometheus.CounterOpts{Name: "docweave_noop_persistence_appends_total"}),
	PersistenceSnapshots:    prometheus.NewCounter(prometheus.CounterOpts{Name: "docweave_noop_persistence_snapshots_total"}),
	PersistenceHealthErrors: prometheus.NewCounter(prometheus.CounterOpts{Name: "docweave_noop_persistence_health_errors_total"}),
}
