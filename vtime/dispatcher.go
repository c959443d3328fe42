package vtime

import (
	"context"
	"sync/atomic"

	"github.com/NetPo4ki/crscope/dispatcher"
)

// TestDispatcher is a deterministic dispatcher for virtual-time tests. Work
// still runs on its own goroutine, so a dispatched task genuinely blocks at
// a suspension point (a virtual timer, a channel operation) the same way it
// would under Pooled, rather than freezing the caller of Dispatch until the
// whole task finishes. What TestDispatcher adds over Pooled is a live count
// of outstanding work, which TestScope's isIdle/runUntilIdle read to decide
// whether the harness has anything left to do; deterministic ordering comes
// not from the dispatcher but from the virtual Clock's priority queue, which
// fires wakeups in (when, insertion-order) order regardless of which
// goroutine happens to run first.
type TestDispatcher struct {
	active int64
	closed atomic.Bool
}

// NewTestDispatcher creates an idle TestDispatcher.
func NewTestDispatcher() *TestDispatcher {
	return &TestDispatcher{}
}

func (d *TestDispatcher) Dispatch(ctx context.Context, work dispatcher.Work) *dispatcher.Handle {
	h := dispatcher.NewHandle()

	if d.closed.Load() {
		h.Complete(dispatcher.ErrDispatcherClosed)
		return h
	}

	select {
	case <-ctx.Done():
		h.Complete(ctx.Err())
		return h
	default:
	}

	atomic.AddInt64(&d.active, 1)
	go func() {
		defer atomic.AddInt64(&d.active, -1)
		h.Complete(dispatcher.RunProtected(ctx, work))
	}()
	return h
}

// Pending reports whether any dispatched work is still outstanding.
func (d *TestDispatcher) Pending() bool {
	return atomic.LoadInt64(&d.active) > 0
}

// Close marks the dispatcher closed; further Dispatch calls fail
// immediately. In-flight goroutines still run to completion, honoring
// whatever ctx they were dispatched under, matching Pooled's Close contract.
func (d *TestDispatcher) Close() error {
	d.closed.Store(true)
	return nil
}

var _ dispatcher.Dispatcher = (*TestDispatcher)(nil)
