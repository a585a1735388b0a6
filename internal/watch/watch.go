// Package watch binds path patterns to tasks and runs a task whenever a file
// its pattern selects changes on disk.
//
// Every matching event starts the bound task once, in its own goroutine.
// Events are neither de-duplicated nor debounced, so runs of the same task
// may overlap.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rajubeparybd/gulp-compiler/internal/ctxlog"
	"github.com/rajubeparybd/gulp-compiler/internal/pathspec"
	"github.com/rajubeparybd/gulp-compiler/internal/task"
)

// Binding ties a path pattern to the task that runs when a selected file
// changes.
type Binding struct {
	Spec *pathspec.Spec
	Task task.Task
}

// Registrar holds the watch bindings and, once started, the file watcher
// that feeds them.
type Registrar struct {
	mu       sync.Mutex
	bindings []Binding
	started  bool

	ready    chan struct{}
	inflight sync.WaitGroup
}

// NewRegistrar creates an empty Registrar.
func NewRegistrar() *Registrar {
	return &Registrar{ready: make(chan struct{})}
}

// Watch registers a binding. Bindings must be registered before Start.
func (r *Registrar) Watch(spec *pathspec.Spec, t task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return errors.New("watch: cannot add a binding after Start")
	}
	r.bindings = append(r.bindings, Binding{Spec: spec, Task: t})
	return nil
}

// Bindings returns a copy of the registered bindings.
func (r *Registrar) Bindings() []Binding {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Binding(nil), r.bindings...)
}

// Ready is closed once Start has added every watched directory.
func (r *Registrar) Ready() <-chan struct{} { return r.ready }

// Start watches the base directory of every binding, recursively, and
// dispatches change events until ctx is cancelled. An error from the
// underlying watcher ends Start with that error. Start waits for the task
// runs it launched before returning.
func (r *Registrar) Start(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return errors.New("watch: already started")
	}
	r.started = true
	bindings := append([]Binding(nil), r.bindings...)
	r.mu.Unlock()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Close()
	defer r.inflight.Wait()

	for _, b := range bindings {
		if err := addBase(w, b.Spec.Base()); err != nil {
			return err
		}
		logger.Info("👀 Watching files.", "pattern", b.Spec.String(), "task", b.Task.Name())
	}
	close(r.ready)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(w, event.Name); err != nil {
						logger.Warn("Failed to watch new directory.", "dir", event.Name, "error", err)
					}
				}
			}
			r.handleEvent(ctx, event)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("file watcher failed: %w", err)
		}
	}
}

func (r *Registrar) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	r.Dispatch(ctx, event.Name)
}

// Dispatch starts, in its own goroutine, every bound task whose pattern
// selects path, and returns how many were started.
func (r *Registrar) Dispatch(ctx context.Context, path string) int {
	logger := ctxlog.FromContext(ctx)

	r.mu.Lock()
	bindings := append([]Binding(nil), r.bindings...)
	r.mu.Unlock()

	n := 0
	for _, b := range bindings {
		if !b.Spec.Match(path) {
			continue
		}
		n++
		logger.Debug("File changed, running task.", "path", path, "task", b.Task.Name())
		r.inflight.Add(1)
		go func(t task.Task) {
			defer r.inflight.Done()
			if err := t.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Watch-triggered task failed.", "task", t.Name(), "error", err)
			}
		}(b.Task)
	}
	return n
}

// Wait blocks until every task run started by Dispatch has returned.
func (r *Registrar) Wait() { r.inflight.Wait() }

// addBase watches base recursively. A base that does not exist yet is
// covered by watching its nearest existing ancestor, so the directory is
// picked up when it is created.
func addBase(w *fsnotify.Watcher, base string) error {
	dir := base
	for {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return fmt.Errorf("watch: no existing directory above %s", base)
		}
		dir = parent
	}
	if dir != base {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		return nil
	}
	return addRecursive(w, dir)
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.Add(p); err != nil {
				return fmt.Errorf("failed to watch %s: %w", p, err)
			}
		}
		return nil
	})
}
