package dispatcher

import "context"

// IO is a dispatcher biased toward long-blocking waits (disk/network
// calls): unlike Pooled it defaults to unbounded concurrency, since
// blocking goroutines are cheap and the whole point is to never make a
// blocking call wait behind CPU-bound work on a shared bounded pool.
type IO struct {
	inner *Pooled
}

// NewIO returns an IO dispatcher. maxConcurrency <= 0 means unbounded,
// which is the recommended default for this variant.
func NewIO(maxConcurrency int64) *IO {
	return &IO{inner: NewPooled(maxConcurrency)}
}

func (d *IO) Dispatch(ctx context.Context, work Work) *Handle {
	return d.inner.Dispatch(ctx, work)
}

func (d *IO) Close() error { return d.inner.Close() }
