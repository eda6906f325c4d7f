package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	require.NoError(t, metrics.Track("po_dispatch").End(nil))
	err := errors.New("webhook down")
	require.ErrorIs(t, metrics.Track("po_dispatch").End(err), err)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("po_dispatch", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("po_dispatch", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("po_dispatch")))
}

func TestObserveDispatch(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	metrics.ObserveDispatch("transmitted")
	metrics.ObserveDispatch("transmitted")
	metrics.ObserveDispatch("")

	require.Equal(t, 2.0, testutil.ToFloat64(metrics.dispatches.WithLabelValues("transmitted")))
}

func TestNilMetricsTracker(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveDispatch("failed")
	err := errors.New("boom")
	require.Equal(t, err, metrics.Track("po_dispatch").End(err))
}
