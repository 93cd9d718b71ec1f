package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterAndRecord(t *testing.T) {
	if err := Register(prometheus.NewRegistry()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// Repeat registration is a no-op.
	if err := Register(prometheus.NewRegistry()); err != nil {
		t.Fatalf("second Register: %v", err)
	}

	IncStart("svc")
	IncStop("svc")
	IncStartFailure("svc", "timeout")
	ObserveReadinessWait("svc", 0.5)
	RecordStateTransition("svc", "starting", "running")
	SetCurrentState("svc", "running", true)

	if got := testutil.ToFloat64(serviceStarts.WithLabelValues("svc")); got < 1 {
		t.Fatalf("starts_total = %v, want >= 1", got)
	}
	if got := testutil.ToFloat64(startFailures.WithLabelValues("svc", "timeout")); got < 1 {
		t.Fatalf("start_failures_total = %v, want >= 1", got)
	}
	if got := testutil.ToFloat64(currentState.WithLabelValues("svc", "running")); got != 1 {
		t.Fatalf("current_state = %v, want 1", got)
	}
	SetCurrentState("svc", "running", false)
	if got := testutil.ToFloat64(currentState.WithLabelValues("svc", "running")); got != 0 {
		t.Fatalf("current_state after clear = %v, want 0", got)
	}
}
