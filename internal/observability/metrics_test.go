package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_RegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	metrics.SaveCounter.WithLabelValues("worldcup_creation", "saved").Inc()
	metrics.SaveCounter.WithLabelValues("worldcup_creation", "saved").Inc()
	metrics.DraftOpCounter.WithLabelValues("delete", "success").Inc()

	if got := testutil.ToFloat64(metrics.SaveCounter.WithLabelValues("worldcup_creation", "saved")); got != 2 {
		t.Errorf("save counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.DraftOpCounter.WithLabelValues("delete", "success")); got != 1 {
		t.Errorf("draft op counter = %v, want 1", got)
	}
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	// Two instances must not collide when each gets its own registry.
	a := NewMetrics(prometheus.NewRegistry())
	b := NewMetrics(prometheus.NewRegistry())

	a.SaveAttempts.WithLabelValues("worldcup_play").Observe(3)
	if a == b {
		t.Fatal("expected distinct metric sets")
	}
}
