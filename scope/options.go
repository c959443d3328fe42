package scope

import (
	"context"
	"time"

	"github.com/NetPo4ki/crscope/dispatcher"
	"github.com/NetPo4ki/crscope/job"
)

// Policy selects a Scope's propagation policy, re-exported from package
// job.
type Policy = job.Policy

const (
	// FailFast is the structured-concurrency default: any child's
	// cancellation or failure cancels the whole scope.
	FailFast Policy = job.Default
	// Supervisor isolates children from one another's failures.
	Supervisor Policy = job.Supervisor
)

// Observer receives Scope and Job lifecycle events across the job tree.
type Observer interface {
	ScopeCreated(ctx context.Context)
	ScopeCancelled(ctx context.Context, cause error)
	ScopeJoined(ctx context.Context, wait time.Duration)
	JobStarted(ctx context.Context)
	JobCompleted(ctx context.Context, state job.State, err error)
}

// Option configures a Scope at construction.
type Option func(*Options)

// Options holds the resolved configuration for a Scope.
type Options struct {
	Dispatcher     dispatcher.Dispatcher
	Observer       Observer
	MaxConcurrency int
	Name           string
}

func defaultOptions() Options { return Options{} }

// WithDispatcherOption sets the Scope's dispatcher explicitly. Without it, a
// Scope builds a Pooled dispatcher sized by WithMaxConcurrency.
func WithDispatcherOption(d dispatcher.Dispatcher) Option {
	return func(o *Options) { o.Dispatcher = d }
}

// WithObserver attaches an Observer to the Scope.
func WithObserver(obs Observer) Option {
	return func(o *Options) { o.Observer = obs }
}

// WithMaxConcurrency bounds the Scope's default Pooled dispatcher; ignored
// if WithDispatcherOption supplies an explicit dispatcher.
func WithMaxConcurrency(n int) Option {
	return func(o *Options) { o.MaxConcurrency = n }
}

// WithName attaches a human-readable name for logging; it never affects
// scheduling.
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// Start selects whether launch/async dispatch immediately or wait for a
// manual Start call.
type Start int

const (
	StartDefault Start = iota
	StartLazy
)

type launchConfig struct {
	dispatcher dispatcher.Dispatcher
	start      Start
	policy     job.Policy
}

// LaunchOption configures a single launch/async call.
type LaunchOption func(*launchConfig)

// WithDispatcher overrides the dispatcher for this one launch/async call.
func WithDispatcher(d dispatcher.Dispatcher) LaunchOption {
	return func(c *launchConfig) { c.dispatcher = d }
}

// WithStart selects Default (immediate) or Lazy (manual) start.
func WithStart(s Start) LaunchOption {
	return func(c *launchConfig) { c.start = s }
}

// Lazy is shorthand for WithStart(StartLazy).
func Lazy() LaunchOption { return WithStart(StartLazy) }

// WithChildPolicy sets the propagation policy of the launched Job itself
// (relevant only to Jobs it in turn parents), default job.Default.
func WithChildPolicy(p job.Policy) LaunchOption {
	return func(c *launchConfig) { c.policy = p }
}
