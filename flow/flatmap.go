package flow

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// FlatMapConcat sequentially flattens: f(x) is fully drained before the
// next x is taken from upstream.
func FlatMapConcat[A, B any](upstream *Flow[A], f func(context.Context, A) *Flow[B]) *Flow[B] {
	return New(func(ctx context.Context, emit Collector[B]) error {
		return upstream.Collect(ctx, func(ctx context.Context, v A) error {
			return f(ctx, v).Collect(ctx, emit)
		})
	})
}

// DefaultFlatMapConcurrency is the default concurrency bound for
// FlatMapMerge.
const DefaultFlatMapConcurrency = 16

// FlatMapMerge concurrently flattens f(x) for every x from upstream,
// bounded by a semaphore.Weighted of size concurrency; emissions from
// different inner flows interleave. concurrency <= 0 selects
// DefaultFlatMapConcurrency.
func FlatMapMerge[A, B any](upstream *Flow[A], f func(context.Context, A) *Flow[B], concurrency int64) *Flow[B] {
	if concurrency <= 0 {
		concurrency = DefaultFlatMapConcurrency
	}
	return New(func(ctx context.Context, emit Collector[B]) error {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		sem := semaphore.NewWeighted(concurrency)
		g, gctx := errgroup.WithContext(cctx)
		var emitMu sync.Mutex

		upstreamErr := upstream.Collect(gctx, func(_ context.Context, v A) error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			g.Go(func() error {
				defer sem.Release(1)
				return f(gctx, v).Collect(gctx, func(ctx context.Context, b B) error {
					emitMu.Lock()
					defer emitMu.Unlock()
					return emit(ctx, b)
				})
			})
			return nil
		})

		if waitErr := g.Wait(); waitErr != nil {
			return waitErr
		}
		return upstreamErr
	})
}
