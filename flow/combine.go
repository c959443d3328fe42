package flow

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/NetPo4ki/crscope/channel"
)

// toChannel drains f into a rendezvous channel.Channel on a background
// goroutine tied to ctx, recording f's outcome as the channel's close
// cause so a subsequent Receive reports it once drained. Grounded on
// chanx.Zip/chanx.Merge's "one goroutine per source, tied to ctx" shape,
// adapted to drive a Flow producer instead of a bare channel send.
func toChannel[T any](ctx context.Context, f *Flow[T]) *channel.Channel[T] {
	ch := channel.New[T](channel.Rendezvous)
	go func() {
		err := f.Collect(ctx, func(ctx context.Context, v T) error {
			return ch.Send(ctx, v)
		})
		ch.Close(err)
	}()
	return ch
}

// Zip emits combine(a[i], b[i]) in lockstep, ending as soon as either
// upstream ends.
func Zip[A, B, C any](a *Flow[A], b *Flow[B], combine func(A, B) C) *Flow[C] {
	return New(func(ctx context.Context, emit Collector[C]) error {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		cha := toChannel(cctx, a)
		chb := toChannel(cctx, b)

		for {
			va, ok, err := cha.Receive(ctx)
			if !ok {
				return err
			}
			vb, ok, err := chb.Receive(ctx)
			if !ok {
				return err
			}
			if err := emit(ctx, combine(va, vb)); err != nil {
				return err
			}
		}
	})
}

type combineEvent[A, B any] struct {
	isA bool
	a   A
	b   B
}

// Combine emits combine(latestA, latestB) every time either upstream
// produces a new element, but only once both have emitted at least once;
// it terminates as soon as either upstream ends.
func Combine[A, B, C any](a *Flow[A], b *Flow[B], combine func(A, B) C) *Flow[C] {
	return New(func(ctx context.Context, emit Collector[C]) error {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		events := make(chan combineEvent[A, B])
		done := make(chan error, 2)

		go func() {
			err := a.Collect(cctx, func(ctx context.Context, v A) error {
				select {
				case events <- combineEvent[A, B]{isA: true, a: v}:
					return nil
				case <-cctx.Done():
					return cctx.Err()
				}
			})
			done <- err
		}()
		go func() {
			err := b.Collect(cctx, func(ctx context.Context, v B) error {
				select {
				case events <- combineEvent[A, B]{isA: false, b: v}:
					return nil
				case <-cctx.Done():
					return cctx.Err()
				}
			})
			done <- err
		}()

		var curA A
		var curB B
		haveA, haveB := false, false

		for {
			select {
			case ev := <-events:
				if ev.isA {
					curA, haveA = ev.a, true
				} else {
					curB, haveB = ev.b, true
				}
				if haveA && haveB {
					if err := emit(ctx, combine(curA, curB)); err != nil {
						return err
					}
				}
			case err := <-done:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}

// Merge interleaves emissions from every source; order across sources is
// unspecified, order within a source is preserved. Fan-in is driven by
// golang.org/x/sync/errgroup, the same first-error fan-out primitive
// interop/errgroup wraps around Scope.
func Merge[T any](sources ...*Flow[T]) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g, gctx := errgroup.WithContext(cctx)
		events := make(chan T)

		for _, src := range sources {
			src := src
			g.Go(func() error {
				return src.Collect(gctx, func(ctx context.Context, v T) error {
					select {
					case events <- v:
						return nil
					case <-gctx.Done():
						return gctx.Err()
					}
				})
			})
		}

		done := make(chan error, 1)
		go func() {
			done <- g.Wait()
			close(events)
		}()

		for {
			select {
			case v, ok := <-events:
				if !ok {
					return <-done
				}
				if err := emit(ctx, v); err != nil {
					cancel()
					return err
				}
			case <-ctx.Done():
				cancel()
				return ctx.Err()
			}
		}
	})
}
