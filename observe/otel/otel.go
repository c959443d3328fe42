package otel

import (
	"context"
	"time"

	"github.com/NetPo4ki/crscope/job"
	"github.com/NetPo4ki/crscope/scope"
)

// Nop is a no-op implementation of scope.Observer. It serves as the seam an
// OpenTelemetry-backed observer would plug into (span per Job, event per
// Scope lifecycle transition) without adding the SDK as a dependency now.
type Nop struct{}

// NewNop returns a no-op observer.
func NewNop() *Nop { return &Nop{} }

func (*Nop) ScopeCreated(context.Context)                   {}
func (*Nop) ScopeCancelled(context.Context, error)          {}
func (*Nop) ScopeJoined(context.Context, time.Duration)     {}
func (*Nop) JobStarted(context.Context)                     {}
func (*Nop) JobCompleted(context.Context, job.State, error) {}

var _ scope.Observer = (*Nop)(nil)
