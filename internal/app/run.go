package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rajubeparybd/gulp-compiler/internal/ctxlog"
	"github.com/rajubeparybd/gulp-compiler/internal/task"
)

// Run executes the requested tasks. It runs the setup checks of every
// reachable step first, then the tasks concurrently. When a task started
// the dev server or the watcher, Run keeps serving until ctx is cancelled
// or the watcher fails.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.List {
		return a.PrintTasks(a.outW)
	}

	tasks, err := a.registry.Resolve(a.config.Tasks...)
	if err != nil {
		return err
	}
	if err := task.Prepare(ctx, tasks...); err != nil {
		return fmt.Errorf("setup check failed: %w", err)
	}

	a.logger.Info("🚀 Running tasks", "tasks", a.config.Tasks, "production", a.flags.Production)
	var root task.Task = tasks[0]
	if len(tasks) > 1 {
		root = task.Parallel("gulpc", tasks...)
	}
	if err := root.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			a.logger.Info("🏁 Interrupted.")
			return nil
		}
		return err
	}

	if a.server.Started() || a.watching.Load() {
		a.logger.Info("Serving until interrupted.", "url", a.server.URL(), "watching", a.watching.Load())
		select {
		case <-ctx.Done():
			a.logger.Info("🏁 Interrupted, shutting down.")
		case err := <-a.watchErr:
			return err
		}
	}

	a.logger.Info("🏁 Finished.")
	return nil
}
