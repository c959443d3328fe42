package flow

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFlowIsColdPerCollect(t *testing.T) {
	t.Parallel()
	invocations := 0
	f := New(func(ctx context.Context, emit Collector[int]) error {
		invocations++
		return emit(ctx, invocations)
	})

	first, err := ToSlice(context.Background(), f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ToSlice(context.Background(), f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invocations != 2 {
		t.Fatalf("expected producer invoked twice, got %d", invocations)
	}
	if first[0] == second[0] {
		t.Fatalf("expected no shared state between collections, got %v and %v", first, second)
	}
}

func TestFromSliceToSlice(t *testing.T) {
	t.Parallel()
	got, err := ToSlice(context.Background(), FromSlice([]int{1, 2, 3}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestFirst(t *testing.T) {
	t.Parallel()
	v, ok, err := First(context.Background(), FromSlice([]int{7, 8, 9}))
	if err != nil || !ok || v != 7 {
		t.Fatalf("First = %v, %v, %v", v, ok, err)
	}

	_, ok, err = First(context.Background(), Empty[int]())
	if err != nil || ok {
		t.Fatalf("First on empty flow = %v, %v", ok, err)
	}
}

func TestFlowPropagatesProducerError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	f := New(func(ctx context.Context, emit Collector[int]) error {
		if err := emit(ctx, 1); err != nil {
			return err
		}
		return boom
	})
	_, err := ToSlice(context.Background(), f)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestFromChannel(t *testing.T) {
	t.Parallel()
	ch := make(chan string, 3)
	ch <- "a"
	ch <- "b"
	close(ch)
	got, err := ToSlice(context.Background(), FromChannel(ch))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("got %v", got)
	}
}
