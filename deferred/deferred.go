package deferred

import (
	"context"
	"sync"
	"time"

	"github.com/NetPo4ki/crscope"
	"github.com/NetPo4ki/crscope/job"
)

// Deferred is a future-like handle for a scope-launched, result-bearing
// task. Its lifecycle is entirely delegated to the underlying Job;
// Deferred itself only holds the produced value.
type Deferred[T any] struct {
	j *job.Job

	mu    sync.Mutex
	value T

	startOnce sync.Once
	trigger   func()
}

// New wraps j, the Job created for this task, as a Deferred[T]. Scope is
// the only intended caller; the result is populated with SetResult before
// j transitions to a terminal state.
func New[T any](j *job.Job) *Deferred[T] {
	return &Deferred[T]{j: j}
}

// Job returns the underlying Job.
func (d *Deferred[T]) Job() *job.Job { return d.j }

// SetResult records the produced value. Scope's exception-translation
// envelope calls this before marking the Job Completed, so the value is
// visible to any Await once the Job's completion signal fires.
func (d *Deferred[T]) SetResult(v T) {
	d.mu.Lock()
	d.value = v
	d.mu.Unlock()
}

// BindStart wires the dispatch trigger for a Lazy deferred. Calling Start
// more than once is a no-op.
func (d *Deferred[T]) BindStart(trigger func()) {
	d.trigger = trigger
}

// Start triggers the first dispatch of a Lazy deferred. A no-op for an
// eagerly-started deferred or on any call after the first.
func (d *Deferred[T]) Start() {
	if d.trigger == nil {
		return
	}
	d.startOnce.Do(d.trigger)
}

// Await suspends until the result is ready, re-raising the Job's failure or
// cancellation as an error.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	if err := d.j.Join(ctx); err != nil {
		var zero T
		return zero, err
	}
	d.mu.Lock()
	v := d.value
	d.mu.Unlock()
	return v, nil
}

// AwaitTimeout races Await against timeout, reporting crscope.ErrTimeout if
// the timeout wins.
func (d *Deferred[T]) AwaitTimeout(ctx context.Context, timeout time.Duration) (T, error) {
	reached, err := d.j.JoinTimeout(ctx, timeout)
	if !reached {
		var zero T
		if err == nil {
			err = crscope.ErrTimeout
		}
		return zero, err
	}
	if err != nil {
		var zero T
		return zero, err
	}
	d.mu.Lock()
	v := d.value
	d.mu.Unlock()
	return v, nil
}

// TryGetResult is a non-blocking Await: it only succeeds once the Job has
// completed successfully.
func (d *Deferred[T]) TryGetResult() (T, bool) {
	select {
	case <-d.j.Done():
	default:
		var zero T
		return zero, false
	}
	if d.j.State() != job.Completed {
		var zero T
		return zero, false
	}
	d.mu.Lock()
	v := d.value
	d.mu.Unlock()
	return v, true
}

// GetException peeks at the failure without throwing; nil unless the Job
// ended Faulted.
func (d *Deferred[T]) GetException() error {
	if d.j.State() != job.Faulted {
		return nil
	}
	return d.j.Err()
}

// Cancel forwards to the underlying Job.
func (d *Deferred[T]) Cancel(reason error) bool {
	return d.j.Cancel(reason)
}
