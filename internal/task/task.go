// Package task implements the build's task graph: leaf tasks wrapping a
// single unit of work, parallel and series groups composing them, and a
// registry that resolves tasks by name.
//
// Completion is signalled by Run returning. A leaf returns only after its
// work, including every output write, has finished. A leaf never fails its
// caller because of a transformation error: the error is reported to the
// leaf's FailureSink and Run returns nil, which keeps a long-running watch
// session alive across bad edits. Errors wrapped with Fatal, and context
// cancellation, are the only errors that propagate through groups.
package task

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies how a task executes.
type Kind string

const (
	KindLeaf     Kind = "leaf"
	KindParallel Kind = "parallel"
	KindSeries   Kind = "series"
)

// ParseKind converts a configuration string into a group Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindParallel, KindSeries:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown group kind %q: must be 'parallel' or 'series'", s)
	}
}

// Task is a named, runnable node of the task graph.
type Task interface {
	Name() string
	Kind() Kind
	// Run executes the task and returns once it has completed.
	Run(ctx context.Context) error
}

// Preparer is implemented by tasks that validate their inputs before any
// task in an invocation runs. A Prepare error is a fatal setup error.
type Preparer interface {
	Prepare(ctx context.Context) error
}

// Func is the unit of work carried by a Leaf.
type Func func(ctx context.Context) error

// ErrUnknownTask is returned when a name does not resolve to a registered task.
var ErrUnknownTask = errors.New("unknown task")

// ErrDuplicateTask is returned when a name is registered twice.
var ErrDuplicateTask = errors.New("task already registered")

type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err as fatal: a leaf returning it propagates the error to its
// caller instead of reporting and swallowing it.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err, or any error it wraps, was marked with Fatal.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

// Walk calls fn for t and, for groups, every member reachable from it.
// Each task is visited once even when several groups share it.
func Walk(t Task, fn func(Task)) {
	seen := make(map[Task]bool)
	var visit func(Task)
	visit = func(t Task) {
		if seen[t] {
			return
		}
		seen[t] = true
		fn(t)
		if g, ok := t.(*Group); ok {
			for _, m := range g.members {
				visit(m)
			}
		}
	}
	visit(t)
}

// Prepare runs Prepare on every Preparer reachable from the given tasks,
// returning the first error.
func Prepare(ctx context.Context, tasks ...Task) error {
	for _, root := range tasks {
		var err error
		Walk(root, func(t Task) {
			if err != nil {
				return
			}
			if p, ok := t.(Preparer); ok {
				if perr := p.Prepare(ctx); perr != nil {
					err = fmt.Errorf("task %q: %w", t.Name(), perr)
				}
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}
