package job

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slices"

	"github.com/NetPo4ki/crscope"
)

// State is one of the four mutually exclusive Job states.
type State uint32

const (
	Active State = iota
	Completed
	Cancelled
	Faulted
)

func (s State) String() string {
	switch s {
	case Active:
		return "Active"
	case Completed:
		return "Completed"
	case Cancelled:
		return "Cancelled"
	case Faulted:
		return "Faulted"
	default:
		return "Unknown"
	}
}

// Terminal reports whether s is one of Completed/Cancelled/Faulted.
func (s State) Terminal() bool { return s != Active }

// Policy selects how a Job reacts to a child's cancellation or failure.
type Policy int

const (
	// Default cancels the whole subtree on the first child failure or
	// cancellation — the structured-concurrency default.
	Default Policy = iota
	// Supervisor isolates children: a sibling's cancellation or failure is
	// observed and reported to the ambient uncaught handler, but never
	// cancels siblings or the parent.
	Supervisor
)

type childEntry struct {
	id  int64
	job *Job
}

// Job is a node in the cancellation tree.
type Job struct {
	state atomic.Uint32

	mu          sync.Mutex
	parent      *Job
	idInParent  int64
	children    []childEntry
	nextChildID int64
	policy      Policy
	reason      error
	err         error
	callbacks   []func(State, error)

	done chan struct{}
}

// New creates an Active Job attached under parent (nil for a root Job). If
// parent is already terminal, the new Job is not attached (its Parent is
// nil) and is returned already cancelled with the parent's terminal reason.
func New(parent *Job, policy Policy) *Job {
	j := &Job{policy: policy, done: make(chan struct{})}
	if parent != nil {
		parent.addChild(j)
	}
	return j
}

func (j *Job) addChild(child *Job) {
	j.mu.Lock()
	if State(j.state.Load()) != Active {
		reason := j.terminalReasonLocked()
		j.mu.Unlock()
		child.Cancel(reason)
		return
	}
	id := j.nextChildID
	j.nextChildID++
	j.children = append(j.children, childEntry{id: id, job: child})
	j.mu.Unlock()

	child.parent = j
	child.idInParent = id
}

func (j *Job) terminalReasonLocked() error {
	switch State(j.state.Load()) {
	case Cancelled:
		return j.reason
	case Faulted:
		return j.err
	default:
		return crscope.ErrCancelled
	}
}

func (j *Job) detachFromParent() {
	p := j.parent
	if p == nil {
		return
	}
	p.mu.Lock()
	idx := slices.IndexFunc(p.children, func(c childEntry) bool { return c.id == j.idInParent })
	if idx >= 0 {
		p.children = slices.Delete(p.children, idx, idx+1)
	}
	p.mu.Unlock()
}

// Children returns a stable snapshot of the Job's current children.
func (j *Job) Children() []*Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*Job, len(j.children))
	for i, c := range j.children {
		out[i] = c.job
	}
	return out
}

// Parent returns the Job's parent, or nil for a root Job.
func (j *Job) Parent() *Job { return j.parent }

// State returns the Job's current state.
func (j *Job) State() State { return State(j.state.Load()) }

// Policy returns the Job's propagation policy.
func (j *Job) Policy() Policy { return j.policy }

// Done returns a channel that is closed exactly once, when the Job enters
// any terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the outcome error: nil if Completed, the recorded
// cancellation reason (unwrapped) if Cancelled, the captured exception if
// Faulted, and nil while still Active.
func (j *Job) Err() error {
	_, err := j.outcome()
	return err
}

// CancelReason returns the reason passed to the cancellation that won, or
// nil if the Job was never cancelled.
func (j *Job) CancelReason() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.reason
}

func (j *Job) outcome() (State, error) {
	st := State(j.state.Load())
	j.mu.Lock()
	defer j.mu.Unlock()
	switch st {
	case Cancelled:
		return st, j.reason
	case Faulted:
		return st, j.err
	default:
		return st, nil
	}
}

// Cancel attempts the atomic transition Active -> Cancelled. A no-op on an
// already-terminal Job; returns whether this call performed the transition.
func (j *Job) Cancel(reason error) bool {
	if reason == nil {
		reason = crscope.ErrCancelled
	}
	if !j.state.CompareAndSwap(uint32(Active), uint32(Cancelled)) {
		return false
	}
	j.mu.Lock()
	j.reason = reason
	j.mu.Unlock()

	j.cancelChildren(reason)
	if j.parent != nil {
		safeCall(func() { j.parent.handleChildCancellation(j) })
	}
	j.finish()
	return true
}

// MarkCompleted attempts the atomic transition Active -> Completed. Called
// by the scheduling layer when a user block returns normally.
func (j *Job) MarkCompleted() bool {
	if !j.state.CompareAndSwap(uint32(Active), uint32(Completed)) {
		return false
	}
	j.finish()
	return true
}

// MarkFaulted attempts the atomic transition Active -> Faulted, capturing
// err, cancelling the Job's own children, and notifying the parent.
func (j *Job) MarkFaulted(err error) bool {
	if err == nil {
		err = crscope.ErrFaulted
	}
	if !j.state.CompareAndSwap(uint32(Active), uint32(Faulted)) {
		return false
	}
	j.mu.Lock()
	j.err = err
	j.mu.Unlock()

	j.cancelChildren(err)
	if j.parent != nil {
		safeCall(func() { j.parent.handleChildException(err) })
	}
	j.finish()
	return true
}

func (j *Job) cancelChildren(reason error) {
	for _, c := range j.Children() {
		child := c
		safeCall(func() { child.Cancel(reason) })
	}
}

func (j *Job) finish() {
	j.mu.Lock()
	callbacks := j.callbacks
	j.callbacks = nil
	j.mu.Unlock()

	close(j.done)

	st, err := j.outcome()
	for _, cb := range callbacks {
		callback := cb
		safeInvoke(callback, st, err)
	}
	j.detachFromParent()
}

// handleChildCancellation is the default parent hook: the
// structural-concurrency default propagates a child's cancellation upward.
// Under Supervisor policy it is reported to the ambient handler instead.
func (j *Job) handleChildCancellation(child *Job) {
	if j.policy == Supervisor {
		crscope.ReportUncaught(j, fmt.Errorf("supervised child cancelled: %w", crscope.ErrCancelled))
		return
	}
	j.Cancel(fmt.Errorf("child cancelled: %w", crscope.ErrCancelled))
}

// handleChildException is the default parent hook: the parent
// stores the exception and transitions to Faulted, which in turn cancels
// siblings. Under Supervisor policy the failure is isolated and only
// reported to the ambient handler.
func (j *Job) handleChildException(err error) {
	if j.policy == Supervisor {
		crscope.ReportUncaught(j, err)
		return
	}
	j.MarkFaulted(fmt.Errorf("child failed: %w", err))
}

// EnsureActive fails with a cancellation/fault error if the Job is not
// Active.
func (j *Job) EnsureActive() error {
	switch State(j.state.Load()) {
	case Active:
		return nil
	case Completed:
		return fmt.Errorf("crscope/job: not active: %w", crscope.ErrCancelled)
	case Cancelled:
		j.mu.Lock()
		reason := j.reason
		j.mu.Unlock()
		return reason
	case Faulted:
		j.mu.Lock()
		err := j.err
		j.mu.Unlock()
		return err
	default:
		return fmt.Errorf("crscope/job: unknown state")
	}
}

// InvokeOnCompletion registers a one-shot callback that runs exactly once,
// when the Job enters a terminal state; if already terminal, it runs
// immediately (on the calling goroutine). Handler panics are swallowed.
func (j *Job) InvokeOnCompletion(handler func(State, error)) {
	j.mu.Lock()
	if State(j.state.Load()) != Active {
		j.mu.Unlock()
		st, err := j.outcome()
		safeInvoke(handler, st, err)
		return
	}
	j.callbacks = append(j.callbacks, handler)
	j.mu.Unlock()
}

// Join suspends the caller until the Job reaches a terminal state, or until
// ctx is cancelled first (which fails the join without affecting the Job).
func (j *Job) Join(ctx context.Context) error {
	select {
	case <-j.done:
		_, err := j.outcome()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// JoinTimeout is Join with a timeout race; reached is false iff the timeout
// fired before the Job reached a terminal state.
func (j *Job) JoinTimeout(ctx context.Context, d time.Duration) (reached bool, err error) {
	select {
	case <-j.done:
		_, err := j.outcome()
		return true, err
	default:
	}

	timer := crscope.Time().NewTimer(d)
	defer timer.Stop()

	select {
	case <-j.done:
		_, err = j.outcome()
		return true, err
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C():
		return false, crscope.ErrTimeout
	}
}

func safeCall(f func()) {
	defer func() { recover() }()
	f()
}

func safeInvoke(cb func(State, error), st State, err error) {
	defer func() { recover() }()
	cb(st, err)
}
