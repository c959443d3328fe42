// Package deferred implements Deferred[T]: a future-like handle for a
// scope-launched, result-bearing task, backed by a job.Job for its
// lifecycle.
package deferred
