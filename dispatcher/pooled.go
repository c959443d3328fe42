package dispatcher

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pooled is the default dispatcher: work runs on goroutines drawn from an
// implicit worker pool, optionally bounded to maxConcurrency simultaneous
// Work executions. Bounded pools use golang.org/x/sync/semaphore.Weighted
// rather than a hand-rolled buffered-channel limiter.
type Pooled struct {
	sem    *semaphore.Weighted
	closed closedFlag
}

// NewPooled returns a Pooled dispatcher. maxConcurrency <= 0 means
// unbounded (a fresh goroutine per Work).
func NewPooled(maxConcurrency int64) *Pooled {
	p := &Pooled{}
	if maxConcurrency > 0 {
		p.sem = semaphore.NewWeighted(maxConcurrency)
	}
	return p
}

func (p *Pooled) Dispatch(ctx context.Context, work Work) *Handle {
	h := newHandle()

	select {
	case <-ctx.Done():
		h.complete(ctx.Err())
		return h
	default:
	}

	if p.closed.isSet() {
		h.complete(ErrDispatcherClosed)
		return h
	}

	go func() {
		if p.sem != nil {
			if err := p.sem.Acquire(ctx, 1); err != nil {
				h.complete(err)
				return
			}
			defer p.sem.Release(1)
		}

		select {
		case <-ctx.Done():
			h.complete(ctx.Err())
			return
		default:
		}

		h.complete(runProtected(ctx, work))
	}()

	return h
}

// Close marks Pooled closed so later Dispatch calls fail with
// ErrDispatcherClosed. There is no owned worker to shut down: in-flight
// goroutines keep running and honor ctx themselves.
func (p *Pooled) Close() error {
	p.closed.set()
	return nil
}
