// Package channel implements Channel[T]: a closeable FIFO with three
// capacity variants (unbounded, bounded(n), and rendezvous with capacity
// zero) used as the producer/consumer handoff underneath package flow.
package channel
