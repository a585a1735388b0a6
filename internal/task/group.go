package task

import (
	"context"
	"time"

	"github.com/rajubeparybd/gulp-compiler/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// Group composes member tasks in parallel or in series.
type Group struct {
	name     string
	kind     Kind
	members  []Task
	observer Observer
}

// NewGroup creates a group of the given kind. Members run in the order given
// for series groups; parallel groups start all of them at once.
func NewGroup(name string, kind Kind, members []Task, opts ...Option) *Group {
	o := buildOptions(opts)
	return &Group{
		name:     name,
		kind:     kind,
		members:  append([]Task(nil), members...),
		observer: o.observer,
	}
}

// Parallel returns a group that starts every member without waiting for
// the others and completes when all of them have completed.
func Parallel(name string, members ...Task) *Group {
	return NewGroup(name, KindParallel, members)
}

// Series returns a group that runs each member to completion before
// starting the next.
func Series(name string, members ...Task) *Group {
	return NewGroup(name, KindSeries, members)
}

// Name implements Task.
func (g *Group) Name() string { return g.name }

// Kind implements Task.
func (g *Group) Kind() Kind { return g.kind }

// Members returns the member tasks in declaration order.
func (g *Group) Members() []Task {
	return append([]Task(nil), g.members...)
}

// Run implements Task.
func (g *Group) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("group", g.name, "kind", string(g.kind))
	logger.Debug("Group started.", "members", len(g.members))
	g.observer.TaskStarted(g.name)
	start := time.Now()

	var err error
	if g.kind == KindParallel {
		err = g.runParallel(ctx)
	} else {
		err = g.runSeries(ctx)
	}

	elapsed := time.Since(start)
	g.observer.TaskFinished(g.name, elapsed, err)
	logger.Debug("Group finished.", "duration", elapsed, "error", err)
	return err
}

func (g *Group) runParallel(ctx context.Context) error {
	// Members share ctx; a member's error never cancels its siblings.
	var eg errgroup.Group
	for _, m := range g.members {
		eg.Go(func() error { return m.Run(ctx) })
	}
	return eg.Wait()
}

func (g *Group) runSeries(ctx context.Context) error {
	for _, m := range g.members {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}
