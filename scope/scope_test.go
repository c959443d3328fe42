package scope

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/NetPo4ki/crscope"
	"github.com/NetPo4ki/crscope/job"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLaunchJoinAllSuccess(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), FailFast)
	done := atomic.Int32{}
	Launch(context.Background(), s, func(_ context.Context) error {
		done.Add(1)
		return nil
	})
	if err := s.JoinAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := done.Load(); got != 1 {
		t.Fatalf("expected task to run once, got %d", got)
	}
}

func TestCancelIdempotent(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), FailFast)
	stop := errors.New("stop")
	handle := Launch(context.Background(), s, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	first := s.Cancel(stop)
	second := s.Cancel(nil)
	if !first || second {
		t.Fatalf("Cancel idempotency: first=%v second=%v, want true/false", first, second)
	}
	err := handle.Job().Join(context.Background())
	if !errors.Is(err, stop) {
		t.Fatalf("Join() err = %v, want wrapping %v", err, stop)
	}
}

func TestFailFastCancelsSiblings(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), FailFast)
	blocked := make(chan struct{})

	Launch(context.Background(), s, func(ctx context.Context) error {
		select {
		case <-time.After(200 * time.Millisecond):
			t.Error("sibling was not cancelled by fail-fast")
			return nil
		case <-ctx.Done():
			close(blocked)
			return ctx.Err()
		}
	})
	Launch(context.Background(), s, func(_ context.Context) error {
		time.Sleep(30 * time.Millisecond)
		return errors.New("boom")
	})

	select {
	case <-blocked:
	case <-time.After(400 * time.Millisecond):
		t.Fatal("sibling did not observe cancellation in time")
	}
	if err := s.JoinAll(context.Background()); err == nil {
		t.Fatal("expected error from fail-fast scope")
	}
}

func TestSupervisorDoesNotCancelSiblings(t *testing.T) {
	t.Parallel()
	remove := crscope.AddUncaughtHandler(func(any, error) {})
	defer remove()

	s := New(context.Background(), Supervisor)
	done := make(chan struct{})
	Launch(context.Background(), s, func(_ context.Context) error {
		time.Sleep(40 * time.Millisecond)
		close(done)
		return nil
	})
	Launch(context.Background(), s, func(_ context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return errors.New("err")
	})

	select {
	case <-done:
	case <-time.After(250 * time.Millisecond):
		t.Fatal("sibling should not be cancelled under Supervisor policy")
	}
	_ = s.JoinAll(context.Background())
}

func TestPanicIsConvertedToFault(t *testing.T) {
	t.Parallel()
	remove := crscope.AddUncaughtHandler(func(any, error) {})
	defer remove()

	s := New(context.Background(), FailFast)
	handle := Launch(context.Background(), s, func(ctx context.Context) error {
		panic("panic-value")
	})
	_ = handle.Job().Join(context.Background())
	if handle.Job().State() != job.Faulted {
		t.Fatalf("job state = %v, want Faulted", handle.Job().State())
	}
	if err := handle.Job().Err(); err == nil || err.Error() == "panic-value" {
		t.Fatalf("expected converted panic error, got %v", err)
	}
}

func TestChildScopeCancelledWithParent(t *testing.T) {
	t.Parallel()
	parent := New(context.Background(), FailFast)
	child := parent.Child(FailFast)
	cancelObserved := make(chan struct{})
	Launch(context.Background(), child, func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelObserved)
		return ctx.Err()
	})
	parent.Cancel(errors.New("stop"))

	select {
	case <-cancelObserved:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("child did not observe parent's cancellation")
	}
}

func TestAsyncAwaitReturnsValue(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), FailFast)
	d := Async(context.Background(), s, func(_ context.Context) (int, error) {
		return 42, nil
	})
	v, err := d.Await(context.Background())
	if err != nil {
		t.Fatalf("Await() err = %v", err)
	}
	if v != 42 {
		t.Fatalf("Await() = %d, want 42", v)
	}
}

func TestAsyncFailureDoesNotDoubleReport(t *testing.T) {
	var reports atomic.Int64
	remove := crscope.AddUncaughtHandler(func(any, error) { reports.Add(1) })
	defer remove()

	s := New(context.Background(), FailFast)
	boom := errors.New("boom")
	d := Async(context.Background(), s, func(_ context.Context) (int, error) {
		return 0, boom
	})
	_, err := d.Await(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Await() err = %v, want %v", err, boom)
	}
	time.Sleep(10 * time.Millisecond)
	if reports.Load() != 0 {
		t.Fatalf("uncaught reports = %d, want 0 (Async failures are carried by Deferred, not reported)", reports.Load())
	}
}

func TestLaunchFailureIsReportedUncaught(t *testing.T) {
	var reports atomic.Int64
	remove := crscope.AddUncaughtHandler(func(any, error) { reports.Add(1) })
	defer remove()

	s := New(context.Background(), Supervisor)
	handle := Launch(context.Background(), s, func(_ context.Context) error {
		return errors.New("boom")
	})
	_ = handle.Job().Join(context.Background())
	time.Sleep(10 * time.Millisecond)
	if reports.Load() != 1 {
		t.Fatalf("uncaught reports = %d, want 1", reports.Load())
	}
}

func TestLazyLaunchDoesNotRunUntilStart(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), FailFast)
	ran := make(chan struct{})
	handle := Launch(context.Background(), s, func(_ context.Context) error {
		close(ran)
		return nil
	}, Lazy())

	select {
	case <-ran:
		t.Fatal("lazy launch ran before Start")
	case <-time.After(20 * time.Millisecond):
	}

	handle.Start()
	handle.Start()

	select {
	case <-ran:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("lazy launch did not run after Start")
	}
}

func TestWithContextJoinsSynchronously(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), FailFast)
	ran := false
	err := WithContext(context.Background(), s, s.Dispatcher(), func(_ context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("WithContext() err = %v", err)
	}
	if !ran {
		t.Fatal("WithContext block did not run")
	}
}

func TestDisposeRejectsFurtherLaunches(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), FailFast)
	s.Dispose()
	if !s.Disposed() {
		t.Fatal("Disposed() = false after Dispose")
	}
	handle := Launch(context.Background(), s, func(_ context.Context) error {
		t.Error("block should not run on a disposed scope")
		return nil
	})
	err := handle.Job().Join(context.Background())
	if !errors.Is(err, crscope.ErrDisposed) {
		t.Fatalf("Join() err = %v, want ErrDisposed", err)
	}
}

type countObserver struct {
	started  atomic.Int64
	finished atomic.Int64
	joined   atomic.Int64
	cancel   atomic.Int64
}

func (o *countObserver) ScopeCreated(_ context.Context)                    {}
func (o *countObserver) ScopeCancelled(_ context.Context, _ error)         { o.cancel.Add(1) }
func (o *countObserver) ScopeJoined(_ context.Context, _ time.Duration)    { o.joined.Add(1) }
func (o *countObserver) JobStarted(_ context.Context)                     { o.started.Add(1) }
func (o *countObserver) JobCompleted(_ context.Context, _ job.State, _ error) {
	o.finished.Add(1)
}

func TestObserverHooks(t *testing.T) {
	t.Parallel()
	obs := &countObserver{}
	s := New(context.Background(), FailFast, WithObserver(obs))
	Launch(context.Background(), s, func(_ context.Context) error { return nil })
	Launch(context.Background(), s, func(_ context.Context) error { return nil })
	if err := s.JoinAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if obs.started.Load() != 2 || obs.finished.Load() != 2 || obs.joined.Load() != 1 {
		t.Fatalf("unexpected observer counts: started=%d finished=%d joined=%d",
			obs.started.Load(), obs.finished.Load(), obs.joined.Load())
	}
}
