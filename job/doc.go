// Package job implements a cancellation tree: a Job is a node that starts
// Active and transitions exactly once to Completed, Cancelled or Faulted,
// propagating cancellation to its children and failure to its parent
// according to a propagation Policy.
//
// It is a standalone, hierarchical primitive that package scope and
// package deferred build on.
package job
