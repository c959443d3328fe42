// Package errgroup adapts golang.org/x/sync/errgroup's Go/Wait surface onto
// a Scope, so code already written against errgroup's API runs on the Job
// tree — with structured cancellation of the rest of the group, instead of
// errgroup's own bespoke once-and-a-WaitGroup bookkeeping.
package errgroup

import (
	"context"

	"github.com/NetPo4ki/crscope/scope"
)

// Group is an errgroup.Group-shaped adapter over a Scope.
type Group struct {
	s   *scope.Scope
	ctx context.Context
}

// WithContext creates a FailFast Group bound to ctx: any function passed to
// Go returning a non-nil error cancels the rest of the group and the
// returned context, exactly like golang.org/x/sync/errgroup.WithContext.
func WithContext(ctx context.Context) (*Group, context.Context) {
	return WithScope(ctx, scope.FailFast)
}

// WithScope is WithContext generalized to any propagation policy. Under
// Supervisor, one function's failure is reported to the ambient uncaught
// handler but never cancels its siblings — useful for a "best effort" group
// where every Go call should run to completion regardless of the others.
func WithScope(parent context.Context, policy scope.Policy) (*Group, context.Context) {
	s := scope.New(parent, policy)
	gctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-s.Root().Done():
			cancel()
		case <-gctx.Done():
		}
	}()
	return &Group{s: s, ctx: gctx}, gctx
}

// Go starts f as a child task of the group.
func (g *Group) Go(f func() error) {
	if f == nil {
		return
	}
	scope.Launch(g.ctx, g.s, func(context.Context) error {
		return f()
	})
}

// Wait blocks until every function started with Go has returned, then
// returns the first non-nil error among them, or nil if they all succeeded.
func (g *Group) Wait() error {
	return g.s.JoinAll(g.ctx)
}
