// Package flow implements a reactive-flow layer: a cold, restartable
// producer/collector pipeline, hot broadcast and state holders, and the
// operator set that builds pipelines out of them.
//
// A Flow[T] is a thin wrapper around a producer function: an async
// function of (collector, cancel) returning unit. Every terminal Collect
// call re-invokes the producer from scratch on the calling goroutine; no
// state is shared between collections and nothing is cached or replayed.
//
// Concurrent operators (Zip, Combine, Merge, FlatMapMerge, Buffer,
// Conflate, Debounce, Sample) share one shape throughout: a goroutine tied
// to ctx, selecting against ctx.Done() alongside the data path, adapted to
// drive a Flow's producer instead of a raw channel.
package flow
