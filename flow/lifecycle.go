package flow

import "context"

// OnStart runs action before upstream collection begins; an error from
// action aborts collection before the producer ever runs.
func OnStart[T any](upstream *Flow[T], action func(context.Context) error) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		if action != nil {
			if err := action(ctx); err != nil {
				return err
			}
		}
		return upstream.Collect(ctx, emit)
	})
}

// OnEach runs action for every value before it is forwarded downstream.
func OnEach[T any](upstream *Flow[T], action func(context.Context, T) error) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		return upstream.Collect(ctx, func(ctx context.Context, v T) error {
			if action != nil {
				if err := action(ctx, v); err != nil {
					return err
				}
			}
			return emit(ctx, v)
		})
	})
}

// OnCompletion runs action once collection finishes, successfully or not;
// action receives the terminating error, or nil on success.
func OnCompletion[T any](upstream *Flow[T], action func(context.Context, error)) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		err := upstream.Collect(ctx, emit)
		if action != nil {
			action(ctx, err)
		}
		return err
	})
}

// OnEmpty runs action, and emits whatever it emits, only if upstream
// completed successfully without emitting any element.
func OnEmpty[T any](upstream *Flow[T], action Producer[T]) *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		saw := false
		err := upstream.Collect(ctx, func(ctx context.Context, v T) error {
			saw = true
			return emit(ctx, v)
		})
		if err == nil && !saw && action != nil {
			return action(ctx, emit)
		}
		return err
	})
}
