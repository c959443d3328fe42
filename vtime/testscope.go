package vtime

import (
	"context"
	"sync"
	"time"

	"github.com/NetPo4ki/crscope"
	"github.com/NetPo4ki/crscope/job"
	"github.com/NetPo4ki/crscope/scope"
)

// TestScope is a normal Scope wired to a TestDispatcher, with the ambient
// time source swapped for a Clock for the scope's lifetime. It tracks the
// active-job count via the same Observer hooks a production Scope would
// report through, so isIdle/runUntilIdle can answer "is there still
// something to do" without peeking at job internals.
type TestScope struct {
	scope      *scope.Scope
	dispatcher *TestDispatcher
	clock      *Clock
	restore    func()
	inner      scope.Observer
	strict     bool

	mu         sync.Mutex
	activeJobs int64
}

// Option configures a TestScope at construction.
type Option func(*TestScope)

// WithObserver chains obs alongside TestScope's own active-job bookkeeping;
// obs is called in addition to, not instead of, the internal counters.
func WithObserver(obs scope.Observer) Option {
	return func(ts *TestScope) { ts.inner = obs }
}

// WithStrictRunUntilIdle disables the stuck-detector's silent force-advance:
// RunUntilIdle returns false instead of nudging virtual time past what
// looks like an unreachable future.
func WithStrictRunUntilIdle() Option {
	return func(ts *TestScope) { ts.strict = true }
}

// New creates a TestScope rooted with the given propagation policy. The
// ambient time source is swapped for a fresh virtual Clock for as long as
// the TestScope lives; call Dispose to restore it.
func New(policy scope.Policy, opts ...Option) *TestScope {
	ts := &TestScope{}
	for _, fn := range opts {
		fn(ts)
	}
	ts.clock = NewClock()
	ts.dispatcher = NewTestDispatcher()
	ts.restore = crscope.SetTimeSource(ts.clock)
	ts.scope = scope.New(context.Background(), policy,
		scope.WithDispatcherOption(ts.dispatcher),
		scope.WithObserver(ts),
	)
	return ts
}

// Scope returns the underlying Scope, for use with scope.Launch/Async/
// WithContext.
func (ts *TestScope) Scope() *scope.Scope { return ts.scope }

// Clock returns the virtual clock driving this TestScope.
func (ts *TestScope) Clock() *Clock { return ts.clock }

// Dispatcher returns the TestDispatcher driving this TestScope.
func (ts *TestScope) Dispatcher() *TestDispatcher { return ts.dispatcher }

func (ts *TestScope) activeJobCount() int64 {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.activeJobs
}

// AdvanceTimeBy advances the virtual clock by d, running whatever actions
// that wakes.
func (ts *TestScope) AdvanceTimeBy(d time.Duration) {
	ts.clock.AdvanceBy(d)
}

// IsIdle reports whether no job is active and no dispatcher work is
// outstanding.
func (ts *TestScope) IsIdle() bool {
	return ts.activeJobCount() == 0 && !ts.dispatcher.Pending()
}

// RunUntilIdle repeatedly advances virtual time in small steps until IsIdle
// or timeout wall-clock time has elapsed, whichever comes first. A zero
// timeout means no wall-clock bound. If no job makes progress for many
// consecutive steps, RunUntilIdle force-advances time by a larger jump to
// unstick a task waiting on a far-future timer, unless
// WithStrictRunUntilIdle was set, in which case it gives up and returns
// false instead.
func (ts *TestScope) RunUntilIdle(timeout time.Duration) bool {
	const step = 10 * time.Millisecond
	const stuckThreshold = 100
	const stuckJump = 100 * time.Millisecond

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	lastActive := int64(-1)
	noProgress := 0
	for !ts.IsIdle() {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return false
		}

		ts.clock.AdvanceBy(step)
		// Let goroutines woken by the clock tick actually run before the
		// next idle check; runtime.Gosched alone doesn't guarantee that on
		// a multi-core GOMAXPROCS, so a short real sleep is used instead.
		time.Sleep(time.Millisecond)

		active := ts.activeJobCount()
		if active == lastActive {
			noProgress++
		} else {
			noProgress = 0
		}
		lastActive = active

		if noProgress >= stuckThreshold {
			if ts.strict {
				return false
			}
			ts.clock.AdvanceBy(stuckJump)
			noProgress = 0
		}
	}
	return true
}

// Dispose restores the previous ambient time source, cancels the scope, and
// closes the dispatcher so no further work is accepted.
func (ts *TestScope) Dispose() {
	ts.scope.Cancel(crscope.ErrDisposed)
	_ = ts.dispatcher.Close()
	ts.restore()
}

func (ts *TestScope) ScopeCreated(ctx context.Context) {
	if ts.inner != nil {
		ts.inner.ScopeCreated(ctx)
	}
}

func (ts *TestScope) ScopeCancelled(ctx context.Context, cause error) {
	if ts.inner != nil {
		ts.inner.ScopeCancelled(ctx, cause)
	}
}

func (ts *TestScope) ScopeJoined(ctx context.Context, wait time.Duration) {
	if ts.inner != nil {
		ts.inner.ScopeJoined(ctx, wait)
	}
}

func (ts *TestScope) JobStarted(ctx context.Context) {
	ts.mu.Lock()
	ts.activeJobs++
	ts.mu.Unlock()
	if ts.inner != nil {
		ts.inner.JobStarted(ctx)
	}
}

func (ts *TestScope) JobCompleted(ctx context.Context, state job.State, err error) {
	ts.mu.Lock()
	ts.activeJobs--
	ts.mu.Unlock()
	if ts.inner != nil {
		ts.inner.JobCompleted(ctx, state, err)
	}
}

var _ scope.Observer = (*TestScope)(nil)
