// Package crscope provides structured-concurrency primitives for Go: a tree
// of cancellable jobs, pluggable dispatchers, scopes that bind the two, and
// a reactive-flow layer built on top.
//
// The ambient pieces every subpackage shares (the uncaught-exception handler
// chain and the swappable time source) live here so that job, dispatcher,
// scope, deferred, channel, flow and vtime can all refer to them without
// import cycles.
package crscope
