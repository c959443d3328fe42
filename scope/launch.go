package scope

import (
	"context"
	"fmt"
	"sync"

	"github.com/NetPo4ki/crscope"
	"github.com/NetPo4ki/crscope/deferred"
	"github.com/NetPo4ki/crscope/dispatcher"
	"github.com/NetPo4ki/crscope/job"
)

// JobHandle is the fire-and-forget handle Launch returns: a Job plus, for a
// Lazy launch, the one-shot dispatch trigger.
type JobHandle struct {
	j *job.Job

	startOnce sync.Once
	trigger   func()
}

// Job returns the underlying Job.
func (h *JobHandle) Job() *job.Job { return h.j }

// Start triggers the first dispatch of a Lazy launch; a no-op otherwise or
// on any call after the first.
func (h *JobHandle) Start() {
	if h.trigger == nil {
		return
	}
	h.startOnce.Do(h.trigger)
}

func resolveLaunchConfig(s *Scope, opts []LaunchOption) launchConfig {
	c := launchConfig{dispatcher: s.dispatcher, start: StartDefault, policy: job.Default}
	for _, fn := range opts {
		fn(&c)
	}
	return c
}

// Launch starts block as a child task of s. Cancellation of ctx
// or of the launched Job itself cancels the task; a returned error faults
// it and, under the Default policy, cancels siblings; a panic is treated as
// a fault. Every Launch failure, not just the ones that propagate, is
// also handed to crscope.ReportUncaught exactly once, since nothing else is
// watching a fire-and-forget task (unlike Async, whose Deferred carries the
// failure to an awaiter): by finishLaunch when s's root Job uses the Default
// policy, and by the Supervisor root's child-failure hook otherwise.
func Launch(ctx context.Context, s *Scope, block func(context.Context) error, opts ...LaunchOption) *JobHandle {
	if err := s.ensureUsable(); err != nil {
		j := job.New(s.root, job.Default)
		j.Cancel(err)
		return &JobHandle{j: j}
	}

	cfg := resolveLaunchConfig(s, opts)
	j := job.New(s.root, cfg.policy)
	h := &JobHandle{j: j}

	run := func() {
		s.activeJobCount.Add(1)
		defer s.activeJobCount.Add(-1)

		if s.opts.Observer != nil {
			s.opts.Observer.JobStarted(ctx)
		}
		runCtx := childContext(ctx, j)
		err := runProtected(block, runCtx)
		finishLaunch(s, j, runCtx, err)
		if s.opts.Observer != nil {
			s.opts.Observer.JobCompleted(ctx, j.State(), j.Err())
		}
	}

	if cfg.start == StartLazy {
		h.trigger = func() { dispatchRun(cfg.dispatcher, ctx, run) }
	} else {
		dispatchRun(cfg.dispatcher, ctx, run)
	}
	return h
}

// Async starts block as a child task of s, returning a Deferred[T] that
// carries its result. Async is a package-level generic function, not a
// method on Scope, because Go does not support generic methods on
// non-generic receiver types.
func Async[T any](ctx context.Context, s *Scope, block func(context.Context) (T, error), opts ...LaunchOption) *deferred.Deferred[T] {
	if err := s.ensureUsable(); err != nil {
		j := job.New(s.root, job.Default)
		j.Cancel(err)
		return deferred.New[T](j)
	}

	cfg := resolveLaunchConfig(s, opts)
	j := job.New(s.root, cfg.policy)
	d := deferred.New[T](j)

	run := func() {
		s.activeJobCount.Add(1)
		defer s.activeJobCount.Add(-1)

		if s.opts.Observer != nil {
			s.opts.Observer.JobStarted(ctx)
		}
		runCtx := childContext(ctx, j)
		v, err := runProtectedT(block, runCtx)
		if err == nil {
			d.SetResult(v)
		}
		finishAsync(j, runCtx, err)
		if s.opts.Observer != nil {
			s.opts.Observer.JobCompleted(ctx, j.State(), j.Err())
		}
	}

	if cfg.start == StartLazy {
		d.BindStart(func() { dispatchRun(cfg.dispatcher, ctx, run) })
	} else {
		dispatchRun(cfg.dispatcher, ctx, run)
	}
	return d
}

// WithContext runs block synchronously as a transient child Job of s,
// dispatched through d, and joins it before returning: the calling
// goroutine suspends but no new structured task outlives the call.
func WithContext(ctx context.Context, s *Scope, d dispatcher.Dispatcher, block func(context.Context) error) error {
	if err := s.ensureUsable(); err != nil {
		return err
	}
	if d == nil {
		d = s.dispatcher
	}

	j := job.New(s.root, job.Default)
	runCtx := childContext(ctx, j)

	handle := d.Dispatch(runCtx, func(wctx context.Context) error {
		return runProtected(block, wctx)
	})

	err := handle.Wait(ctx)
	finishLaunch(s, j, runCtx, err)
	return j.Err()
}

func dispatchRun(d dispatcher.Dispatcher, ctx context.Context, run func()) {
	d.Dispatch(ctx, func(context.Context) error {
		run()
		return nil
	})
}

// finishLaunch applies the exception-translation envelope: cancellation
// becomes Job.Cancel, any other error becomes Job.MarkFaulted (and, under
// the Default policy, is also reported to the ambient uncaught handler
// since a fire-and-forget Launch has no awaiter), and nil becomes
// Job.MarkCompleted.
func finishLaunch(s *Scope, j *job.Job, ctx context.Context, err error) {
	switch {
	case err == nil:
		j.MarkCompleted()
	case isCancellation(ctx, err):
		j.Cancel(err)
	default:
		j.MarkFaulted(err)
		if s.root.Policy() == job.Default {
			crscope.ReportUncaught(ctx, err)
		}
	}
}

// finishAsync mirrors finishLaunch but never reports to the ambient
// handler: an Async failure is carried forward by the Deferred to whatever
// later calls Await, so reporting it ambiently too would double-report it.
func finishAsync(j *job.Job, ctx context.Context, err error) {
	switch {
	case err == nil:
		j.MarkCompleted()
	case isCancellation(ctx, err):
		j.Cancel(err)
	default:
		j.MarkFaulted(err)
	}
}

func runProtected(block func(context.Context) error, ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicErr(p)
		}
	}()
	return block(ctx)
}

func runProtectedT[T any](block func(context.Context) (T, error), ctx context.Context) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			v, err = zero, panicErr(p)
		}
	}()
	return block(ctx)
}

func panicErr(p any) error {
	return fmt.Errorf("scope: panic: %v: %w", p, crscope.ErrFaulted)
}
