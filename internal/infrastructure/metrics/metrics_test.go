package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistererRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewWithRegisterer(registry)

	if m.Mutations == nil || m.HTTPRequests == nil || m.FeesCollected == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.Mutations.WithLabelValues("debit", "succeeded").Inc()
	m.AccountsCreated.Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}

	if got := testutil.ToFloat64(m.Mutations.WithLabelValues("debit", "succeeded")); got != 1 {
		t.Fatalf("expected mutation counter 1, got %v", got)
	}
}

func TestNewWithRegistererIsolatedRegistries(t *testing.T) {
	// Two registries must not conflict on metric names.
	_ = NewWithRegisterer(prometheus.NewRegistry())
	_ = NewWithRegisterer(prometheus.NewRegistry())
}
