// Package dispatcher implements a pluggable execution-site abstraction: a
// Dispatcher decides where a unit of work runs, never whether it runs or
// what it means to complete, which remains the Job's concern.
//
// Every variant honors the same two guarantees: work eventually runs unless
// its context is already cancelled when dispatch is attempted, and any
// error (or recovered panic) from work propagates through the returned
// Handle rather than being swallowed.
package dispatcher
