package flow

import "context"

// Map applies f to every value the upstream Flow emits, preserving order
// and error timing 1:1. Map is a package-level function rather than a
// method because Go does not support generic methods on generic types.
func Map[A, B any](upstream *Flow[A], f func(context.Context, A) (B, error)) *Flow[B] {
	return New(func(ctx context.Context, emit Collector[B]) error {
		return upstream.Collect(ctx, func(ctx context.Context, v A) error {
			b, err := f(ctx, v)
			if err != nil {
				return err
			}
			return emit(ctx, b)
		})
	})
}

// Filter drops elements where p(x) is false.
func Filter[T any](upstream *Flow[T], p func(T) bool) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		return upstream.Collect(ctx, func(ctx context.Context, v T) error {
			if !p(v) {
				return nil
			}
			return emit(ctx, v)
		})
	})
}

// Scan emits init, then each progressive accumulation f(acc, x).
func Scan[A, B any](upstream *Flow[A], init B, f func(B, A) B) *Flow[B] {
	return New(func(ctx context.Context, emit Collector[B]) error {
		acc := init
		if err := emit(ctx, acc); err != nil {
			return err
		}
		return upstream.Collect(ctx, func(ctx context.Context, v A) error {
			acc = f(acc, v)
			return emit(ctx, acc)
		})
	})
}

// Fold is the terminal accumulator: it returns the final acc after
// upstream completes.
func Fold[A, B any](ctx context.Context, upstream *Flow[A], init B, f func(B, A) B) (B, error) {
	acc := init
	err := upstream.Collect(ctx, func(_ context.Context, v A) error {
		acc = f(acc, v)
		return nil
	})
	return acc, err
}

// Take emits at most n elements then completes, cancelling upstream
// collection as soon as n is reached. Take(0) yields an empty sequence
// immediately.
func Take[T any](upstream *Flow[T], n int) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		if n <= 0 {
			return nil
		}
		count := 0
		err := upstream.Collect(ctx, func(ctx context.Context, v T) error {
			if err := emit(ctx, v); err != nil {
				return err
			}
			count++
			if count >= n {
				return errStop
			}
			return nil
		})
		if err == errStop {
			return nil
		}
		return err
	})
}

// Drop skips the first n elements, then emits everything else.
func Drop[T any](upstream *Flow[T], n int) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		dropped := 0
		return upstream.Collect(ctx, func(ctx context.Context, v T) error {
			if dropped < n {
				dropped++
				return nil
			}
			return emit(ctx, v)
		})
	})
}

// TakeWhile emits elements until p(x) is false, then completes without
// consuming any further upstream elements.
func TakeWhile[T any](upstream *Flow[T], p func(T) bool) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		err := upstream.Collect(ctx, func(ctx context.Context, v T) error {
			if !p(v) {
				return errStop
			}
			return emit(ctx, v)
		})
		if err == errStop {
			return nil
		}
		return err
	})
}

// DropWhile skips elements while p(x) is true, then emits everything from
// the first element for which p is false onward.
func DropWhile[T any](upstream *Flow[T], p func(T) bool) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		dropping := true
		return upstream.Collect(ctx, func(ctx context.Context, v T) error {
			if dropping {
				if p(v) {
					return nil
				}
				dropping = false
			}
			return emit(ctx, v)
		})
	})
}

// DistinctUntilChanged emits only when the new element differs from the
// immediately preceding one; the first element from upstream is always
// emitted.
func DistinctUntilChanged[T comparable](upstream *Flow[T]) *Flow[T] {
	return DistinctUntilChangedFunc(upstream, func(a, b T) bool { return a == b })
}

// DistinctUntilChangedFunc is DistinctUntilChanged with a caller-supplied
// equality function, for element types that aren't comparable.
func DistinctUntilChangedFunc[T any](upstream *Flow[T], equal func(prev, next T) bool) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		first := true
		var prev T
		return upstream.Collect(ctx, func(ctx context.Context, v T) error {
			if !first && equal(prev, v) {
				return nil
			}
			first = false
			prev = v
			return emit(ctx, v)
		})
	})
}
