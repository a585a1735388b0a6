package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rajubeparybd/gulp-compiler/internal/ctxlog"
)

// Leaf is a task wrapping a single unit of work, typically a transform step.
type Leaf struct {
	name     string
	fn       Func
	prepare  Func
	sink     FailureSink
	observer Observer
}

// NewLeaf creates a leaf task named name that runs fn.
func NewLeaf(name string, fn Func, opts ...Option) *Leaf {
	o := buildOptions(opts)
	return &Leaf{
		name:     name,
		fn:       fn,
		prepare:  o.prepare,
		sink:     o.sink,
		observer: o.observer,
	}
}

// Name implements Task.
func (l *Leaf) Name() string { return l.name }

// Kind implements Task.
func (l *Leaf) Kind() Kind { return KindLeaf }

// Prepare implements Preparer.
func (l *Leaf) Prepare(ctx context.Context) error {
	if l.prepare == nil {
		return nil
	}
	return l.prepare(ctx)
}

// Run executes the leaf's work. Transformation errors are logged, reported
// to the failure sink, recorded in the context's Outcome and swallowed;
// fatal errors and cancellation are returned.
func (l *Leaf) Run(ctx context.Context) error {
	runID := uuid.NewString()
	ctx, logger := ctxlog.With(ctx, "task", l.name, "run_id", runID)

	logger.Info("▶️ Starting task")
	l.observer.TaskStarted(l.name)
	start := time.Now()

	err := l.fn(ctx)

	elapsed := time.Since(start)
	l.observer.TaskFinished(l.name, elapsed, err)

	switch {
	case err == nil:
		logger.Info("✅ Finished task", "duration", elapsed)
		return nil
	case IsFatal(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Error("Task aborted", "error", err, "duration", elapsed)
		return fmt.Errorf("task %q: %w", l.name, err)
	default:
		logger.Error("❌ Task failed, continuing", "error", err, "duration", elapsed)
		markFailed(ctx)
		l.sink.Report(ctx, Failure{Task: l.name, RunID: runID, Err: err, At: time.Now()})
		return nil
	}
}
