package flow

import (
	"context"
)

// Collector is the sink a Flow's producer emits values into. Returning an
// error from a Collector aborts the collection; the error propagates out
// of the terminal Collect call.
type Collector[T any] func(ctx context.Context, value T) error

// Producer is the function a Flow wraps: it runs once per Collect call and
// emits zero or more values through emit before returning.
type Producer[T any] func(ctx context.Context, emit Collector[T]) error

// Flow is a lazy, restartable sequence built from a Producer. It holds no
// state of its own; every Collect invocation re-runs the Producer from
// scratch.
type Flow[T any] struct {
	produce Producer[T]
}

// New wraps produce as a Flow. produce is not invoked until Collect is
// called; a Flow is inert until collected.
func New[T any](produce Producer[T]) *Flow[T] {
	return &Flow[T]{produce: produce}
}

// Collect runs the Flow's producer, forwarding every emitted value to
// collect. An error from the producer or from collect propagates out of
// Collect; ctx cancellation cancels the producer at its next suspension
// point.
func (f *Flow[T]) Collect(ctx context.Context, collect Collector[T]) error {
	if f == nil || f.produce == nil {
		return nil
	}
	return f.produce(ctx, collect)
}

// ToSlice is the terminal operator that collects every emitted value into
// a slice.
func ToSlice[T any](ctx context.Context, f *Flow[T]) ([]T, error) {
	var out []T
	err := f.Collect(ctx, func(_ context.Context, v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// ForEach is the terminal operator that runs action for every emitted
// value; it is Collect under a name matching the rest of the operator
// table's vocabulary.
func ForEach[T any](ctx context.Context, f *Flow[T], action func(T) error) error {
	return f.Collect(ctx, func(_ context.Context, v T) error {
		return action(v)
	})
}

// First returns the first value the Flow emits, cancelling the producer
// immediately afterward. Returns ok=false if the Flow completes with no
// emission.
func First[T any](ctx context.Context, f *Flow[T]) (value T, ok bool, err error) {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	found := false
	err = f.Collect(cctx, func(_ context.Context, v T) error {
		value = v
		found = true
		return errStop
	})
	if err == errStop {
		err = nil
	}
	return value, found, err
}

// FromSlice builds a Flow that emits each element of items in order, then
// completes.
func FromSlice[T any](items []T) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		for _, v := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := emit(ctx, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Just builds a Flow that emits a single value then completes.
func Just[T any](v T) *Flow[T] {
	return FromSlice([]T{v})
}

// Empty builds a Flow that completes immediately without emitting.
func Empty[T any]() *Flow[T] {
	return FromSlice[T](nil)
}

// FromChannel builds a Flow that emits every value received from ch until
// ch closes. Useful for adapting channel.Channel[T].ReceiveAll or a plain
// Go channel into a Flow pipeline.
func FromChannel[T any](ch <-chan T) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		for {
			select {
			case v, open := <-ch:
				if !open {
					return nil
				}
				if err := emit(ctx, v); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}

// FromFunc builds a Flow from a raw Producer; equivalent to New but named
// to read well at a call site alongside FromSlice/FromChannel.
func FromFunc[T any](produce Producer[T]) *Flow[T] {
	return New(produce)
}
