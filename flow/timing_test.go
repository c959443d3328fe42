package flow

import (
	"context"
	"testing"
	"time"

	"github.com/NetPo4ki/crscope"
	"github.com/NetPo4ki/crscope/vtime"
)

func TestDebounceUsesVirtualClock(t *testing.T) {
	clock := vtime.NewClock()
	restore := crscope.SetTimeSource(clock)
	defer restore()

	ch := make(chan int)
	debounced := Debounce(FromChannel(ch), 100*time.Millisecond)

	got := make(chan []int, 1)
	go func() {
		values, _ := ToSlice(context.Background(), debounced)
		got <- values
	}()

	// Give the producer goroutine a moment to subscribe before emitting.
	time.Sleep(20 * time.Millisecond)
	ch <- 1
	time.Sleep(20 * time.Millisecond)
	ch <- 2 // resets the debounce window
	time.Sleep(20 * time.Millisecond)

	clock.AdvanceBy(100 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(ch)

	values := <-got
	if len(values) != 1 || values[0] != 2 {
		t.Fatalf("expected a single debounced emission of 2, got %v", values)
	}
}

func TestSampleSkipsQuietTicks(t *testing.T) {
	clock := vtime.NewClock()
	restore := crscope.SetTimeSource(clock)
	defer restore()

	ch := make(chan int)
	sampled := Sample(FromChannel(ch), 50*time.Millisecond)

	got := make(chan []int, 1)
	go func() {
		values, _ := ToSlice(context.Background(), sampled)
		got <- values
	}()

	time.Sleep(20 * time.Millisecond)
	ch <- 1
	time.Sleep(10 * time.Millisecond)
	clock.AdvanceBy(50 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	// Quiet tick: nothing new emitted upstream.
	clock.AdvanceBy(50 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(ch)

	values := <-got
	if len(values) != 1 || values[0] != 1 {
		t.Fatalf("expected exactly one sampled emission, got %v", values)
	}
}
