package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/NetPo4ki/crscope"
)

// Subscription is the handle SharedFlow.Subscribe returns; Dispose removes
// the collector from the subscriber map.
type Subscription struct {
	dispose func()
	once    sync.Once
}

// Dispose removes the subscription. Idempotent.
func (s *Subscription) Dispose() {
	s.once.Do(s.dispose)
}

// SharedFlow is a hot broadcast holder: a set of subscriber callbacks
// keyed by a strictly increasing subscription id. Emit invokes each
// subscriber synchronously in turn; a subscriber's own error or panic is
// routed to the ambient uncaught handler rather than stopping the
// broadcast, so one slow or broken subscriber never prevents the others
// from observing the value.
type SharedFlow[T any] struct {
	mu     sync.Mutex
	subs   map[int64]Collector[T]
	nextID int64
}

// NewShared creates an empty SharedFlow.
func NewShared[T any]() *SharedFlow[T] {
	return &SharedFlow[T]{subs: make(map[int64]Collector[T])}
}

// Subscribe attaches collect as a subscriber and returns a Subscription
// whose Dispose detaches it.
func (s *SharedFlow[T]) Subscribe(collect Collector[T]) *Subscription {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = collect
	s.mu.Unlock()

	return &Subscription{dispose: func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}}
}

// SubscriberCount reports the number of currently attached subscribers.
func (s *SharedFlow[T]) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Emit invokes every current subscriber with v, in turn, over a stable
// snapshot of the subscriber set taken at the start of the call. A
// subscriber's error or panic is reported to the ambient uncaught handler
// and does not block or skip subsequent subscribers.
func (s *SharedFlow[T]) Emit(ctx context.Context, v T) {
	s.mu.Lock()
	snapshot := make([]Collector[T], 0, len(s.subs))
	for _, c := range s.subs {
		snapshot = append(snapshot, c)
	}
	s.mu.Unlock()

	for _, c := range snapshot {
		if err := safeCollect(ctx, c, v); err != nil {
			crscope.ReportUncaught(ctx, err)
		}
	}
}

// AsFlow adapts the SharedFlow into a cold Flow: collecting it subscribes
// for the lifetime of the Collect call and forwards every emission until
// ctx is cancelled or the downstream collector fails.
func (s *SharedFlow[T]) AsFlow() *Flow[T] {
	return New(func(ctx context.Context, emit Collector[T]) error {
		errc := make(chan error, 1)
		sub := s.Subscribe(func(ctx context.Context, v T) error {
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

func safeCollect[T any](ctx context.Context, c Collector[T], v T) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("flow: subscriber panic: %v", p)
		}
	}()
	return c(ctx, v)
}
