package flow

import (
	"context"
	"errors"
	"time"

	"github.com/NetPo4ki/crscope"
)

// Catch catches an exception from upstream and continues with the flow
// handler(e) returns. It does not catch a cancellation of ctx itself: a
// cancelled Flow should stop, not recover.
func Catch[T any](upstream *Flow[T], handler func(error) *Flow[T]) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		err := upstream.Collect(ctx, emit)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, crscope.ErrCancelled) {
			return err
		}
		recovered := handler(err)
		if recovered == nil {
			return err
		}
		return recovered.Collect(ctx, emit)
	})
}

// RetryWhen restarts upstream from scratch on failure as long as predicate
// returns true for the current (1-indexed) attempt and the error that
// caused it, waiting delay(attempt) between attempts. delay may be nil for
// no backoff.
func RetryWhen[T any](upstream *Flow[T], predicate func(attempt int, err error) bool, delay func(attempt int) time.Duration) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		attempt := 0
		for {
			err := upstream.Collect(ctx, emit)
			if err == nil {
				return nil
			}
			attempt++
			if predicate == nil || !predicate(attempt, err) {
				return err
			}
			var wait time.Duration
			if delay != nil {
				wait = delay(attempt)
			}
			if wait <= 0 {
				continue
			}
			timer := crscope.Time().NewTimer(wait)
			select {
			case <-timer.C():
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	})
}

// Retry restarts upstream up to n-1 additional times on failure, with
// exponential backoff starting at 100ms and doubling each attempt.
func Retry[T any](upstream *Flow[T], n int) *Flow[T] {
	return RetryWhen(upstream,
		func(attempt int, _ error) bool { return attempt < n },
		func(attempt int) time.Duration {
			return (100 * time.Millisecond) << uint(attempt-1)
		},
	)
}
