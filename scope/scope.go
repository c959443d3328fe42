package scope

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NetPo4ki/crscope"
	"github.com/NetPo4ki/crscope/dispatcher"
	"github.com/NetPo4ki/crscope/job"
)

var scopeIDs atomic.Int64

// Scope binds a Job (its root) to a Dispatcher and exposes the structured
// entry points launch/async/withContext/joinAll/cancel. It is one node of
// the job tree.
type Scope struct {
	root       *job.Job
	dispatcher dispatcher.Dispatcher
	opts       Options
	id         int64

	mu       sync.Mutex
	disposed bool

	activeJobCount atomic.Int64
}

// New creates a root Scope. parent, if non-nil and cancellable, has its
// cancellation translated into the Scope's root Job cancellation by a
// watcher goroutine that waits on parent.Done().
func New(parent context.Context, policy Policy, opts ...Option) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	d := o.Dispatcher
	if d == nil {
		d = dispatcher.NewPooled(int64(o.MaxConcurrency))
	}

	s := &Scope{
		root:       job.New(nil, policy),
		dispatcher: d,
		opts:       o,
		id:         scopeIDs.Add(1),
	}

	if o.Observer != nil {
		o.Observer.ScopeCreated(parent)
	}
	s.watchExternalContext(parent)
	return s
}

// Child creates a nested Scope whose root Job is a child of s's root.
// Options not overridden by opts are inherited from s, including the
// dispatcher.
func (s *Scope) Child(policy Policy, opts ...Option) *Scope {
	o := s.opts
	for _, fn := range opts {
		fn(&o)
	}
	d := o.Dispatcher
	if d == nil {
		d = s.dispatcher
	}

	cs := &Scope{
		root:       job.New(s.root, policy),
		dispatcher: d,
		opts:       o,
		id:         scopeIDs.Add(1),
	}
	if o.Observer != nil {
		o.Observer.ScopeCreated(context.Background())
	}
	return cs
}

func (s *Scope) watchExternalContext(parent context.Context) {
	if parent.Done() == nil {
		return
	}
	go func() {
		select {
		case <-parent.Done():
			s.root.Cancel(parent.Err())
		case <-s.root.Done():
		}
	}()
}

// Root returns the Scope's root Job.
func (s *Scope) Root() *job.Job { return s.root }

// Dispatcher returns the Scope's default dispatcher.
func (s *Scope) Dispatcher() dispatcher.Dispatcher { return s.dispatcher }

// ID returns the Scope's monotonically increasing id; it never affects
// scheduling.
func (s *Scope) ID() int64 { return s.id }

// Name returns the human-readable name attached via WithName, if any.
func (s *Scope) Name() string { return s.opts.Name }

// ActiveJobCount returns the number of launch/async tasks currently running
// under this Scope.
func (s *Scope) ActiveJobCount() int64 { return s.activeJobCount.Load() }

// Cancel cancels the Scope's root Job.
func (s *Scope) Cancel(reason error) bool {
	ok := s.root.Cancel(reason)
	if ok && s.opts.Observer != nil {
		s.opts.Observer.ScopeCancelled(context.Background(), reason)
	}
	return ok
}

// Dispose marks the Scope unusable for further launch/async calls and
// cancels its root Job. Dispose is idempotent.
func (s *Scope) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.mu.Unlock()
	s.Cancel(crscope.ErrDisposed)
}

// Disposed reports whether Dispose has been called.
func (s *Scope) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func (s *Scope) ensureUsable() error {
	if s.Disposed() {
		return crscope.ErrDisposed
	}
	return nil
}

// JoinAll waits for every current child of the Scope's root to reach a
// terminal state, then returns the root Job's own outcome if it ended
// Cancelled or Faulted. A child detaches from the root the moment it goes
// terminal (job.Job.finish), so by the time JoinAll takes its snapshot an
// already-finished child can be gone from Children(); under FailFast that
// child's failure has already propagated into the root's own state before
// it detached, so reading s.root.Err() recovers the originating error
// instead of whatever sibling error Join happened to observe first.
func (s *Scope) JoinAll(ctx context.Context) error {
	start := crscope.Time().Now()
	var firstErr error
	for _, c := range s.root.Children() {
		if err := c.Join(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.opts.Observer != nil {
		s.opts.Observer.ScopeJoined(ctx, crscope.Time().Now().Sub(start))
	}
	if err := s.root.Err(); err != nil {
		return err
	}
	return firstErr
}

// JoinAllTimeout is JoinAll with a deadline; it returns false as soon as any
// child fails to reach terminal within the remaining budget.
func (s *Scope) JoinAllTimeout(ctx context.Context, timeout time.Duration) bool {
	deadline := crscope.Time().Now().Add(timeout)
	for _, c := range s.root.Children() {
		remaining := deadline.Sub(crscope.Time().Now())
		if remaining < 0 {
			remaining = 0
		}
		reached, _ := c.JoinTimeout(ctx, remaining)
		if !reached {
			return false
		}
	}
	return true
}

// childContext derives a context.Context that is cancelled when either
// parent is done or j reaches a terminal state, bridging the Job tree's
// cooperative cancellation into the context.Context the dispatched work
// actually observes.
func childContext(parent context.Context, j *job.Job) context.Context {
	cctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-j.Done():
			cancel()
		case <-cctx.Done():
		}
	}()
	return cctx
}

func isCancellation(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, crscope.ErrCancelled) {
		return true
	}
	if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) {
		return true
	}
	return false
}
