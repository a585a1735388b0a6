package task

import (
	"context"
	"sync/atomic"
)

type outcomeKey struct{}

// Outcome collects whether any leaf run under one context swallowed a
// failure. Runs that overlap with other contexts do not touch it.
type Outcome struct {
	failed atomic.Bool
}

// Failed reports whether a leaf run under the outcome's context failed.
func (o *Outcome) Failed() bool { return o.failed.Load() }

// WithOutcome returns a child context whose leaf runs are recorded in the
// returned Outcome.
func WithOutcome(ctx context.Context) (context.Context, *Outcome) {
	o := &Outcome{}
	return context.WithValue(ctx, outcomeKey{}, o), o
}

func markFailed(ctx context.Context) {
	if o, ok := ctx.Value(outcomeKey{}).(*Outcome); ok {
		o.failed.Store(true)
	}
}
