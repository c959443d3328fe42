package crscope

import "errors"

// Sentinel errors for the package's error taxonomy. Components wrap these
// with %w so callers can use errors.Is without depending on concrete
// types.
var (
	// ErrCancelled is the reason a Job records when it is cancelled with a
	// nil reason, and it is wrapped into the reason a parent records when a
	// child's cancellation propagates to it. A Job cancelled with its own
	// reason reports that reason instead.
	ErrCancelled = errors.New("crscope: cancelled")

	// ErrFaulted is the error a Job records when MarkFaulted is given a nil
	// error, and it is wrapped into the error scope builds from a recovered
	// panic.
	ErrFaulted = errors.New("crscope: faulted")

	// ErrTimeout is returned by timed awaits and joins (Job.JoinTimeout,
	// Deferred.AwaitTimeout) when the deadline wins the race against the
	// operation.
	ErrTimeout = errors.New("crscope: timeout")

	// ErrClosed is returned by Send on a channel that is closed, whether or
	// not a failure cause was attached; Receive reports the cause instead.
	ErrClosed = errors.New("crscope: channel closed")

	// ErrDisposed is a structural failure: using a Scope (or a vtime test
	// scope) after it has been disposed.
	ErrDisposed = errors.New("crscope: disposed")

	// ErrAlreadyStarted names a repeated Start of a Lazy deferred. No
	// function in the module returns it: Deferred.Start returns nothing and
	// treats every call after the first as a no-op.
	ErrAlreadyStarted = errors.New("crscope: already started")
)
