package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	if err := m.Track("ledger:periods:recalc").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	if err := m.Track("ledger:periods:recalc").End(boom); !errors.Is(err, boom) {
		t.Fatalf("expected error to pass through, got %v", err)
	}

	if got := testutil.ToFloat64(m.runs.WithLabelValues("ledger:periods:recalc", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("ledger:periods:recalc")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestDriftAndRowCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddDrifts("account", 0, 2)
	m.AddDrifts("account", 0, 0)
	m.AddDrifts("period", 7, 1)
	m.SetRebuiltRows(7, 12)

	if got := testutil.ToFloat64(m.drifts.WithLabelValues("account", "all")); got != 2 {
		t.Fatalf("expected 2 account drifts, got %v", got)
	}
	if got := testutil.ToFloat64(m.drifts.WithLabelValues("period", "7")); got != 1 {
		t.Fatalf("expected 1 period drift, got %v", got)
	}
	if got := testutil.ToFloat64(m.rebuilt.WithLabelValues("7")); got != 12 {
		t.Fatalf("expected 12 rows, got %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddDrifts("account", 1, 3)
	m.SetRebuiltRows(1, 3)
	if err := m.Track("job").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
