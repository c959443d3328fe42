package dispatcher

import "context"

// Inline runs work synchronously on the calling goroutine, an
// "Unconfined"-style optimization for work that doesn't need a dedicated
// execution site.
type Inline struct {
	closed closedFlag
}

// NewInline returns an Inline dispatcher.
func NewInline() *Inline { return &Inline{} }

func (d *Inline) Dispatch(ctx context.Context, work Work) *Handle {
	h := newHandle()

	if d.closed.isSet() {
		h.complete(ErrDispatcherClosed)
		return h
	}

	select {
	case <-ctx.Done():
		h.complete(ctx.Err())
		return h
	default:
	}

	h.complete(runProtected(ctx, work))
	return h
}

func (d *Inline) Close() error {
	d.closed.set()
	return nil
}
