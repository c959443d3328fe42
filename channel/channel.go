package channel

import (
	"context"
	"sync"

	"github.com/NetPo4ki/crscope"
)

// Capacity selects one of the three Channel variants: Unbounded,
// Bounded(n), or Rendezvous (capacity zero).
type Capacity int

const (
	// Rendezvous models a zero-buffer handoff: Send suspends until a
	// receiver is ready to take the value directly.
	Rendezvous Capacity = 0
)

// Bounded returns the Capacity for a channel holding at most n values.
func Bounded(n int) Capacity { return Capacity(n) }

// Unbounded is the sentinel Capacity for an unbounded Channel; Send never
// suspends waiting for space.
const Unbounded Capacity = -1

// Channel is a closeable FIFO with backpressure. It is built directly on
// native Go channels for the Bounded/Rendezvous variants — an unbuffered Go
// channel already is a true zero-capacity handoff, and a buffered one
// already blocks senders on full/receivers on empty — and on a buffering
// forwarder goroutine for the Unbounded variant, grounded on the
// producer/consumer decoupling pattern in chanx.Buffer (a goroutine feeding
// a native channel from a growable backing slice). For Bounded/Rendezvous,
// end-of-stream is signalled through the separate closed channel rather
// than by closing c.out directly, since a sender can be blocked on c.out <-
// value at close time and closing a channel with a pending send panics.
type Channel[T any] struct {
	out    chan T
	closed chan struct{}
	once   sync.Once

	mu       sync.Mutex
	closeErr error

	// unbounded-only state
	queue  []T
	notify chan struct{}
}

// New creates a Channel with the given Capacity.
func New[T any](cap Capacity) *Channel[T] {
	c := &Channel[T]{closed: make(chan struct{})}
	if cap < 0 {
		c.out = make(chan T)
		c.notify = make(chan struct{}, 1)
		go c.forward()
		return c
	}
	c.out = make(chan T, int(cap))
	return c
}

func (c *Channel[T]) isUnbounded() bool { return c.notify != nil }

// forward is the Unbounded variant's backing goroutine: it moves queued
// values into c.out one at a time, so receivers always read from the same
// native channel regardless of variant.
func (c *Channel[T]) forward() {
	for {
		c.mu.Lock()
		for len(c.queue) == 0 {
			closed := c.isClosedLocked()
			c.mu.Unlock()
			if closed {
				close(c.out)
				return
			}
			<-c.notify
			c.mu.Lock()
		}
		v := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()
		c.out <- v
	}
}

func (c *Channel[T]) isClosedLocked() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Send appends value to the channel, suspending if the channel is full
// (bounded) or until a receiver is ready (rendezvous); ctx cancellation
// returns early without enqueueing. Sending on a closed channel fails with
// crscope.ErrClosed.
func (c *Channel[T]) Send(ctx context.Context, value T) error {
	if c.isUnbounded() {
		c.mu.Lock()
		if c.isClosedLocked() {
			c.mu.Unlock()
			return crscope.ErrClosed
		}
		c.queue = append(c.queue, value)
		c.mu.Unlock()
		select {
		case c.notify <- struct{}{}:
		default:
		}
		return nil
	}

	select {
	case c.out <- value:
		return nil
	case <-c.closed:
		return crscope.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend is a non-blocking Send; accepted reports whether the value was
// enqueued.
func (c *Channel[T]) TrySend(value T) (accepted bool) {
	if c.isUnbounded() {
		c.mu.Lock()
		if c.isClosedLocked() {
			c.mu.Unlock()
			return false
		}
		c.queue = append(c.queue, value)
		c.mu.Unlock()
		select {
		case c.notify <- struct{}{}:
		default:
		}
		return true
	}

	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.out <- value:
		return true
	default:
		return false
	}
}

// Receive takes the next value, suspending until one is available, the
// channel closes, or ctx is cancelled. ok is false when the channel is
// closed and fully drained (err is then the close cause, or nil) and when
// ctx is cancelled first (err is then ctx.Err()).
func (c *Channel[T]) Receive(ctx context.Context) (value T, ok bool, err error) {
	if c.isUnbounded() {
		select {
		case v, open := <-c.out:
			if !open {
				return value, false, c.closeCause()
			}
			return v, true, nil
		case <-ctx.Done():
			return value, false, ctx.Err()
		}
	}

	// c.out is never closed for Bounded/Rendezvous (a blocked sender would
	// panic); end-of-stream is driven off c.closed instead, draining
	// whatever is still buffered before reporting the stream drained.
	select {
	case v := <-c.out:
		return v, true, nil
	case <-c.closed:
		select {
		case v := <-c.out:
			return v, true, nil
		default:
			return value, false, c.closeCause()
		}
	case <-ctx.Done():
		return value, false, ctx.Err()
	}
}

// ReceiveAll returns a channel of values that closes once Channel is closed
// and drained, exposed as an idiomatic Go range-over-channel surface. If
// the channel was closed with a cause, the
// cause is delivered via the returned error channel after the value stream
// closes.
func (c *Channel[T]) ReceiveAll(ctx context.Context) (<-chan T, <-chan error) {
	values := make(chan T)
	errc := make(chan error, 1)
	go func() {
		defer close(values)
		for {
			v, ok, err := c.Receive(ctx)
			if !ok {
				if err != nil {
					errc <- err
				}
				return
			}
			select {
			case values <- v:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return values, errc
}

func (c *Channel[T]) closeCause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}

// Close marks the channel closed; cause, if non-nil, is re-raised to the
// first subsequent receiver that observes end-of-stream. Close is
// idempotent, mirroring chanx.Closable's panic-safe double-close handling.
// For Bounded/Rendezvous, c.out itself is never closed — a sender can be
// blocked on it at close time, and closing a channel with a pending send
// panics — so a blocked Send instead wakes via the closed channel and
// returns crscope.ErrClosed, and Receive drains c.out through the same
// signal. The Unbounded variant's forward goroutine closes c.out itself,
// but only after its queue has drained and no sender is waiting on it.
func (c *Channel[T]) Close(cause error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.closeErr = cause
		c.mu.Unlock()
		close(c.closed)
		if c.isUnbounded() {
			select {
			case c.notify <- struct{}{}:
			default:
			}
		}
	})
}

// Done returns a channel closed as soon as Close is called (not once
// drained — use ReceiveAll's end-of-stream signal to detect full drain).
func (c *Channel[T]) Done() <-chan struct{} { return c.closed }
