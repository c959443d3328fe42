package flow

import (
	"context"
	"time"

	"github.com/NetPo4ki/crscope"
)

// Debounce suppresses emission until no new upstream element has arrived
// for d; it then emits the last seen value. Timing is measured against the ambient
// crscope.Time() source, so it runs on the virtual clock under the
// virtual-time harness and on the real monotonic clock otherwise. d <= 0
// means immediate: Debounce degenerates to a pass-through.
func Debounce[T any](upstream *Flow[T], d time.Duration) *Flow[T] {
	if d <= 0 {
		return upstream
	}
	return New(func(ctx context.Context, emit Collector[T]) error {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		updates := make(chan T)
		done := make(chan error, 1)
		go func() {
			err := upstream.Collect(cctx, func(ctx context.Context, v T) error {
				select {
				case updates <- v:
					return nil
				case <-cctx.Done():
					return cctx.Err()
				}
			})
			done <- err
		}()

		var timer crscope.Timer
		var timerC <-chan time.Time
		var pending T
		has := false

		for {
			select {
			case v := <-updates:
				pending, has = v, true
				if timer != nil {
					timer.Stop()
				}
				timer = crscope.Time().NewTimer(d)
				timerC = timer.C()
			case <-timerC:
				timerC = nil
				if has {
					if err := emit(ctx, pending); err != nil {
						cancel()
						return err
					}
					has = false
				}
			case err := <-done:
				if has {
					select {
					case <-timerC:
					case <-ctx.Done():
						return ctx.Err()
					}
					if e := emit(ctx, pending); e != nil {
						return e
					}
				}
				return err
			case <-ctx.Done():
				cancel()
				return ctx.Err()
			}
		}
	})
}

// Sample emits the latest-seen upstream element on every periodic tick of
// d, skipping ticks with no new element since the last one.
func Sample[T any](upstream *Flow[T], d time.Duration) *Flow[T] {
	if d <= 0 {
		return upstream
	}
	return New(func(ctx context.Context, emit Collector[T]) error {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		updates := make(chan T)
		done := make(chan error, 1)
		go func() {
			err := upstream.Collect(cctx, func(ctx context.Context, v T) error {
				select {
				case updates <- v:
					return nil
				case <-cctx.Done():
					return cctx.Err()
				}
			})
			done <- err
		}()

		var latest T
		has := false
		timer := crscope.Time().NewTimer(d)

		for {
			select {
			case v := <-updates:
				latest, has = v, true
			case <-timer.C():
				if has {
					if err := emit(ctx, latest); err != nil {
						cancel()
						return err
					}
					has = false
				}
				timer = crscope.Time().NewTimer(d)
			case err := <-done:
				return err
			case <-ctx.Done():
				cancel()
				return ctx.Err()
			}
		}
	})
}
