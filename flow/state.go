package flow

import (
	"context"
	"sync"
)

// StateFlow is a SharedFlow plus a single slot holding the current value,
// replayed synchronously to every new subscriber before it attaches.
//
// Known race, deliberately not "fixed": Subscribe first invokes
// collect(currentValue) synchronously, then attaches the subscription. A
// concurrent Set/Update between those two steps emits while the subscriber
// is not yet attached, so that subscriber never sees the new value: it
// observes the older replayed value and then only later emissions.
type StateFlow[T any] struct {
	shared *SharedFlow[T]
	mu     sync.Mutex
	value  T
}

// NewState creates a StateFlow holding initial.
func NewState[T any](initial T) *StateFlow[T] {
	return &StateFlow[T]{shared: NewShared[T](), value: initial}
}

// Value returns the current value. Get/set is atomic.
func (s *StateFlow[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set stores v and emits it via the underlying SharedFlow. Concurrent
// Set/Update calls are serialized on the mutex, and the emit happens before
// the mutex is released, so emission order matches serialization order.
func (s *StateFlow[T]) Set(ctx context.Context, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.shared.Emit(ctx, v)
}

// Update performs a read-modify-write and emits the new value, all under
// the lock, so two concurrent Updates can't emit out of order with their
// serialized writes.
func (s *StateFlow[T]) Update(ctx context.Context, transform func(T) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = transform(s.value)
	v := s.value
	s.shared.Emit(ctx, v)
	return v
}

// Subscribe first invokes collect with the current value synchronously,
// then attaches the subscription.
func (s *StateFlow[T]) Subscribe(ctx context.Context, collect Collector[T]) *Subscription {
	current := s.Value()
	_ = safeCollect(ctx, collect, current)
	return s.shared.Subscribe(collect)
}

// SubscriberCount reports the number of currently attached subscribers.
func (s *StateFlow[T]) SubscriberCount() int { return s.shared.SubscriberCount() }

// AsFlow adapts the StateFlow into a cold Flow that replays the current
// value on collection and then forwards subsequent updates.
func (s *StateFlow[T]) AsFlow() *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		errc := make(chan error, 1)
		sub := s.Subscribe(ctx, func(ctx context.Context, v T) error {
			if err := emit(ctx, v); err != nil {
				select {
				case errc <- err:
				default:
				}
			}
			return nil
		})
		defer sub.Dispose()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
