package prom

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/NetPo4ki/crscope/flow"
	"github.com/NetPo4ki/crscope/scope"
)

func TestMetricsTracksScopeAndJobLifecycle(t *testing.T) {
	m := New("")

	s := scope.New(context.Background(), scope.FailFast, scope.WithObserver(m))
	handle := scope.Launch(context.Background(), s, func(context.Context) error {
		return nil
	})
	<-handle.Job().Done()
	_ = s.JoinAll(context.Background())

	if got := testutil.ToFloat64(m.jobsStarted); got != 1 {
		t.Fatalf("jobsStarted = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.scopesCreated); got != 1 {
		t.Fatalf("scopesCreated = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.jobsByState.WithLabelValues("Completed")); got != 1 {
		t.Fatalf("jobsByState{Completed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.jobsActive); got != 0 {
		t.Fatalf("jobsActive = %v, want 0 after completion", got)
	}
}

func TestMetricsIncFlowEmissionViaOnEach(t *testing.T) {
	m := New("")

	instrumented := flow.OnEach(flow.FromSlice([]int{1, 2, 3}), func(_ context.Context, _ int) error {
		m.IncFlowEmission("numbers")
		return nil
	})
	if _, err := flow.ToSlice(context.Background(), instrumented); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := testutil.ToFloat64(m.flowEmissions.WithLabelValues("numbers")); got != 3 {
		t.Fatalf("flowEmissions{numbers} = %v, want 3", got)
	}
}

func TestMetricsChannelDepthGauge(t *testing.T) {
	m := New("")
	m.ObserveChannelDepth("orders", 2)
	if got := testutil.ToFloat64(m.channelDepth.WithLabelValues("orders")); got != 2 {
		t.Fatalf("channelDepth{orders} = %v, want 2", got)
	}
}

func TestMetricsJoinDurationHistogram(t *testing.T) {
	m := New("")
	m.ScopeJoined(context.Background(), 50*time.Millisecond)

	if testutil.CollectAndCount(m, "crscope_scope_join_seconds") != 1 {
		t.Fatal("expected one observation recorded in the join duration histogram")
	}
}
