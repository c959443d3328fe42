// Package prom wires crscope's lifecycle events into Prometheus, replacing
// a hand-rolled atomic-counter struct with a real prometheus.Collector
// built on github.com/prometheus/client_golang.
package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/NetPo4ki/crscope/job"
	"github.com/NetPo4ki/crscope/scope"
)

// Metrics is a prometheus.Collector that also implements scope.Observer:
// scope.WithObserver(m) keeps its Job/Scope counters current, and
// registering m with a prometheus.Registerer exposes them for scraping.
// Channel and Flow deliberately carry no built-in instrumentation hook (it
// would cost an interface call on every Send/emit on packages meant to stay
// allocation-light), so ObserveChannelDepth and IncFlowEmission are exposed
// for callers to drive from a thin wrapper or a flow.OnEach callback.
type Metrics struct {
	jobsActive      prometheus.Gauge
	jobsStarted     prometheus.Counter
	jobsByState     *prometheus.CounterVec
	scopesCreated   prometheus.Counter
	scopesCancelled prometheus.Counter
	joinDuration    prometheus.Histogram
	channelDepth    *prometheus.GaugeVec
	flowEmissions   *prometheus.CounterVec
}

// New constructs a Metrics collector. namespace follows the usual
// prometheus.Opts convention and may be empty.
func New(namespace string) *Metrics {
	return &Metrics{
		jobsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "crscope_jobs_active",
			Help:      "Number of Jobs currently in the Active state.",
		}),
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crscope_jobs_started_total",
			Help:      "Total number of Jobs started via Launch or Async.",
		}),
		jobsByState: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crscope_jobs_completed_total",
			Help:      "Total number of Jobs that reached a terminal state, by state.",
		}, []string{"state"}),
		scopesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crscope_scopes_created_total",
			Help:      "Total number of Scopes created.",
		}),
		scopesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crscope_scopes_cancelled_total",
			Help:      "Total number of Scopes explicitly cancelled.",
		}),
		joinDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crscope_scope_join_seconds",
			Help:      "Wall time spent in Scope.JoinAll.",
			Buckets:   prometheus.DefBuckets,
		}),
		channelDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "crscope_channel_depth",
			Help:      "Values enqueued but not yet dequeued, by channel name.",
		}, []string{"channel"}),
		flowEmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crscope_flow_emissions_total",
			Help:      "Total values emitted by a Flow, by flow name.",
		}, []string{"flow"}),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.jobsActive.Describe(ch)
	m.jobsStarted.Describe(ch)
	m.jobsByState.Describe(ch)
	m.scopesCreated.Describe(ch)
	m.scopesCancelled.Describe(ch)
	m.joinDuration.Describe(ch)
	m.channelDepth.Describe(ch)
	m.flowEmissions.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.jobsActive.Collect(ch)
	m.jobsStarted.Collect(ch)
	m.jobsByState.Collect(ch)
	m.scopesCreated.Collect(ch)
	m.scopesCancelled.Collect(ch)
	m.joinDuration.Collect(ch)
	m.channelDepth.Collect(ch)
	m.flowEmissions.Collect(ch)
}

// ScopeCreated implements scope.Observer.
func (m *Metrics) ScopeCreated(_ context.Context) { m.scopesCreated.Inc() }

// ScopeCancelled implements scope.Observer.
func (m *Metrics) ScopeCancelled(_ context.Context, _ error) { m.scopesCancelled.Inc() }

// ScopeJoined implements scope.Observer.
func (m *Metrics) ScopeJoined(_ context.Context, wait time.Duration) {
	m.joinDuration.Observe(wait.Seconds())
}

// JobStarted implements scope.Observer.
func (m *Metrics) JobStarted(_ context.Context) {
	m.jobsActive.Inc()
	m.jobsStarted.Inc()
}

// JobCompleted implements scope.Observer.
func (m *Metrics) JobCompleted(_ context.Context, state job.State, _ error) {
	m.jobsActive.Dec()
	m.jobsByState.WithLabelValues(state.String()).Inc()
}

// ObserveChannelDepth records the number of values enqueued but not yet
// dequeued on the channel named name.
func (m *Metrics) ObserveChannelDepth(name string, depth int) {
	m.channelDepth.WithLabelValues(name).Set(float64(depth))
}

// IncFlowEmission records one value emitted by the flow named name. A
// natural call site is flow.OnEach(f, func(ctx context.Context, v T) error {
// metrics.IncFlowEmission("orders"); return nil }).
func (m *Metrics) IncFlowEmission(name string) {
	m.flowEmissions.WithLabelValues(name).Inc()
}

var (
	_ prometheus.Collector = (*Metrics)(nil)
	_ scope.Observer       = (*Metrics)(nil)
)
