package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersEveryMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, mfs, 7)

	require.NotPanics(t, func() {
		c.DispatchDuration.Observe(0.01)
		c.AppendPhaseRounds.Observe(1)
		c.TransactionsFiltered.Inc()
		c.EventsDropped.Inc()
		c.PersistenceAppends.Inc()
		c.PersistenceSnapshots.Inc()
		c.PersistenceHealthErrors.Inc()
	})
}

func TestNewPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	require.Panics(t, func() {
		New(reg)
	})
}

func TestNoopObservationsDontPanic(t *testing.T) {
	require.NotPanics(t, func() {
		Noop.DispatchDuration.Observe(1)
		Noop.AppendPhaseRounds.Observe(3)
		Noop.TransactionsFiltered.Inc()
		Noop.EventsDropped.Inc()
		Noop.PersistenceAppends.Inc()
		Noop.PersistenceSnapshots.Inc()
		Noop.PersistenceHealthErrors.Inc()
	})
}
