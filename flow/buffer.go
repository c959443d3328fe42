package flow

import (
	"context"
	"sync"

	"github.com/NetPo4ki/crscope/channel"
)

// Buffer decouples producer and consumer with an n-slot channel: the
// upstream producer runs ahead of the consumer and blocks once n unread
// values have accumulated.
func Buffer[T any](upstream *Flow[T], n int) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		ch := channel.New[T](channel.Bounded(n))
		go func() {
			err := upstream.Collect(cctx, func(ctx context.Context, v T) error {
				return ch.Send(ctx, v)
			})
			ch.Close(err)
		}()

		for {
			v, ok, err := ch.Receive(ctx)
			if !ok {
				return err
			}
			if err := emit(ctx, v); err != nil {
				cancel()
				return err
			}
		}
	})
}

// Conflate is a single-slot buffer that drops older unread values, keeping
// only the latest.
func Conflate[T any](upstream *Flow[T]) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var mu sync.Mutex
		var latest T
		have := false
		notify := make(chan struct{}, 1)
		done := make(chan error, 1)

		push := func() {
			select {
			case notify <- struct{}{}:
			default:
			}
		}

		go func() {
			err := upstream.Collect(cctx, func(_ context.Context, v T) error {
				mu.Lock()
				latest, have = v, true
				mu.Unlock()
				push()
				return nil
			})
			done <- err
			push()
		}()

		take := func() (T, bool) {
			mu.Lock()
			defer mu.Unlock()
			v, ok := latest, have
			have = false
			return v, ok
		}

		for {
			select {
			case <-notify:
				if v, ok := take(); ok {
					if err := emit(ctx, v); err != nil {
						cancel()
						return err
					}
				}
			case err := <-done:
				if v, ok := take(); ok {
					if e := emit(ctx, v); e != nil {
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
