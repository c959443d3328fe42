package channel

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/NetPo4ki/crscope"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBoundedSendReceive(t *testing.T) {
	t.Parallel()
	c := New[int](Bounded(1))
	ctx := context.Background()
	if err := c.Send(ctx, 1); err != nil {
		t.Fatalf("Send() err = %v", err)
	}
	if ok := c.TrySend(2); ok {
		t.Fatal("TrySend() succeeded on a full bounded(1) channel")
	}
	v, ok, err := c.Receive(ctx)
	if err != nil || !ok || v != 1 {
		t.Fatalf("Receive() = (%d, %v, %v), want (1, true, nil)", v, ok, err)
	}
}

func TestBoundedCapacityNeverExceeded(t *testing.T) {
	t.Parallel()
	c := New[int](Bounded(2))
	ctx := context.Background()
	if err := c.Send(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := c.Send(ctx, 2); err != nil {
		t.Fatal(err)
	}
	blocked := make(chan error, 1)
	go func() { blocked <- c.Send(ctx, 3) }()

	select {
	case <-blocked:
		t.Fatal("third Send on a bounded(2) channel should suspend")
	case <-time.After(20 * time.Millisecond):
	}

	if _, _, err := c.Receive(ctx); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-blocked:
		if err != nil {
			t.Fatalf("Send() err = %v", err)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("third Send did not unblock after a Receive freed capacity")
	}
}

func TestRendezvousSendWaitsForReceiver(t *testing.T) {
	t.Parallel()
	c := New[int](Rendezvous)
	ctx := context.Background()
	sent := make(chan error, 1)
	go func() { sent <- c.Send(ctx, 7) }()

	select {
	case <-sent:
		t.Fatal("rendezvous Send completed before any receiver arrived")
	case <-time.After(20 * time.Millisecond):
	}

	v, ok, err := c.Receive(ctx)
	if err != nil || !ok || v != 7 {
		t.Fatalf("Receive() = (%d, %v, %v), want (7, true, nil)", v, ok, err)
	}
	if err := <-sent; err != nil {
		t.Fatalf("Send() err = %v", err)
	}
}

func TestUnboundedSendNeverBlocks(t *testing.T) {
	t.Parallel()
	c := New[int](Unbounded)
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		if err := c.Send(ctx, i); err != nil {
			t.Fatalf("Send(%d) err = %v", i, err)
		}
	}
	for i := 0; i < 1000; i++ {
		v, ok, err := c.Receive(ctx)
		if err != nil || !ok || v != i {
			t.Fatalf("Receive() = (%d, %v, %v), want (%d, true, nil)", v, ok, err, i)
		}
	}
	c.Close(nil)
}

func TestSendOnClosedChannelFails(t *testing.T) {
	t.Parallel()
	c := New[int](Bounded(1))
	c.Close(nil)
	if err := c.Send(context.Background(), 1); !errors.Is(err, crscope.ErrClosed) {
		t.Fatalf("Send() err = %v, want ErrClosed", err)
	}
	if ok := c.TrySend(1); ok {
		t.Fatal("TrySend() succeeded on a closed channel")
	}
}

func TestCloseWakesBlockedSenderWithoutPanic(t *testing.T) {
	t.Parallel()
	c := New[int](Bounded(1))
	ctx := context.Background()
	if err := c.Send(ctx, 1); err != nil {
		t.Fatal(err)
	}

	blocked := make(chan error, 1)
	go func() { blocked <- c.Send(ctx, 2) }()

	select {
	case <-blocked:
		t.Fatal("second Send on a full bounded(1) channel should suspend")
	case <-time.After(20 * time.Millisecond):
	}

	c.Close(nil)

	select {
	case err := <-blocked:
		if !errors.Is(err, crscope.ErrClosed) {
			t.Fatalf("blocked Send() err = %v, want ErrClosed", err)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Close did not wake the blocked Send")
	}
}

func TestCloseWithCauseReachesFirstReceiverAfterDrain(t *testing.T) {
	t.Parallel()
	c := New[int](Bounded(2))
	ctx := context.Background()
	_ = c.Send(ctx, 1)
	boom := errors.New("boom")
	c.Close(boom)

	v, ok, err := c.Receive(ctx)
	if err != nil || !ok || v != 1 {
		t.Fatalf("Receive() (buffered item) = (%d, %v, %v), want (1, true, nil)", v, ok, err)
	}
	_, ok, err = c.Receive(ctx)
	if ok || !errors.Is(err, boom) {
		t.Fatalf("Receive() after drain = (ok=%v, err=%v), want (false, %v)", ok, err, boom)
	}
}

func TestReceiveAllDrainsThenCloses(t *testing.T) {
	t.Parallel()
	c := New[int](Unbounded)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = c.Send(ctx, i)
	}
	c.Close(nil)

	values, errc := c.ReceiveAll(ctx)
	var got []int
	for v := range values {
		got = append(got, v)
	}
	if len(got) != 5 {
		t.Fatalf("ReceiveAll drained %d values, want 5", len(got))
	}
	select {
	case err := <-errc:
		t.Fatalf("unexpected error on clean close: %v", err)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestReceiveAllCancellation(t *testing.T) {
	t.Parallel()
	c := New[int](Rendezvous)
	ctx, cancel := context.WithCancel(context.Background())
	values, errc := c.ReceiveAll(ctx)
	cancel()
	for range values {
	}
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("errc = %v, want context.Canceled", err)
	}
}
