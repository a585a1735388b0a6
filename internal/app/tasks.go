package app

import (
	"context"
	"fmt"

	"github.com/rajubeparybd/gulp-compiler/internal/ctxlog"
	"github.com/rajubeparybd/gulp-compiler/internal/devserver"
	"github.com/rajubeparybd/gulp-compiler/internal/pathspec"
	"github.com/rajubeparybd/gulp-compiler/internal/step"
	"github.com/rajubeparybd/gulp-compiler/internal/task"
)

// WatchingMessage is shown in connected browsers after the first successful
// watch-triggered build.
const WatchingMessage = "Gulp is Watching, Happy Coding!"

// builtin task descriptions, shown by --list.
var descriptions = map[string]string{
	"css":          "Compile the stylesheet to minified, prefixed CSS.",
	"js":           "Bundle and minify the script entry.",
	"images":       "Convert images to WebP, copy other files.",
	"browser_sync": "Serve the project with live reload.",
	"reload":       "Reload connected browsers.",
	"watch_files":  "Rebuild and reload on file changes.",
	"default":      "Build everything once.",
	"watch":        "Serve and rebuild on change.",
}

// buildTasks creates the built-in tasks, the user-defined groups and the
// watch bindings.
func (a *App) buildTasks(ctx context.Context) error {
	m := a.model
	sink := task.SinkFunc(a.reportFailure)
	leafOpts := func(extra ...task.Option) []task.Option {
		return append([]task.Option{task.WithObserver(a.metrics), task.WithFailureSink(sink)}, extra...)
	}

	styleEntry, err := pathspec.Parse(m.Style.Entry)
	if err != nil {
		return fmt.Errorf("style.entry: %w", err)
	}
	engines, err := step.Engines(m.Style.Targets)
	if err != nil {
		return fmt.Errorf("style.targets: %w", err)
	}
	style := step.NewStyle(step.StyleConfig{Entry: styleEntry, Dest: m.Style.Dest, Engines: engines},
		step.WithDartSass(a.sass), step.WithStyleStreamer(a.server))

	scriptEntry, err := pathspec.Parse(m.Script.Entry)
	if err != nil {
		return fmt.Errorf("script.entry: %w", err)
	}
	target, err := step.ParseTarget(m.Script.Target)
	if err != nil {
		return fmt.Errorf("script.target: %w", err)
	}
	script := step.NewScript(step.ScriptConfig{Entry: scriptEntry, Dest: m.Script.Dest, Target: target, Flags: a.flags}, a.server)

	imagesSrc, err := pathspec.Parse(m.Images.Src)
	if err != nil {
		return fmt.Errorf("images.src: %w", err)
	}
	images := step.NewImages(step.ImagesConfig{Src: imagesSrc, Dest: m.Images.Dest, Quality: m.Images.Quality, MaxWidth: m.Images.MaxWidth})

	css := task.NewLeaf("css", style.Run, leafOpts(task.WithPrepare(style.Prepare))...)
	js := task.NewLeaf("js", script.Run, leafOpts(task.WithPrepare(script.Prepare))...)
	img := task.NewLeaf("images", images.Run, leafOpts()...)
	browserSync := task.NewLeaf("browser_sync", a.startServer, leafOpts()...)
	reload := task.NewLeaf("reload", func(ctx context.Context) error {
		a.server.Reload(ctx)
		return nil
	}, leafOpts()...)
	watchFiles := task.NewLeaf("watch_files", a.startWatching, leafOpts(task.WithPrepare(a.prepareWatched))...)

	groupOpts := []task.Option{task.WithObserver(a.metrics)}
	builtins := []task.Task{
		css, js, img, browserSync, reload, watchFiles,
		task.NewGroup("default", task.KindParallel, []task.Task{css, js, img}, groupOpts...),
		task.NewGroup("watch", task.KindParallel, []task.Task{browserSync, watchFiles}, groupOpts...),
	}
	for _, t := range builtins {
		if err := a.registry.Register(t); err != nil {
			return err
		}
		a.registry.Describe(t.Name(), descriptions[t.Name()])
	}

	defs := make([]task.GroupDef, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		kind, err := task.ParseKind(t.Kind)
		if err != nil {
			return fmt.Errorf("task %q: %w", t.Name, err)
		}
		defs = append(defs, task.GroupDef{Name: t.Name, Kind: kind, Members: t.Members, Description: t.Description})
	}
	if err := a.registry.Define(defs, groupOpts...); err != nil {
		return err
	}

	return a.bindWatches(css, js, img, reload)
}

// bindWatches registers the built-in watch bindings, each rebuilding its
// step then reloading, and the user-defined ones.
func (a *App) bindWatches(css, js, img *task.Leaf, reload task.Task) error {
	m := a.model
	builtins := []struct {
		pattern string
		leaf    *task.Leaf
	}{
		{m.Style.Watch, css},
		{m.Script.Watch, js},
		{m.Images.Watch, img},
	}
	for _, b := range builtins {
		spec, err := pathspec.Parse(b.pattern)
		if err != nil {
			return fmt.Errorf("%s watch: %w", b.leaf.Name(), err)
		}
		if err := a.watcher.Watch(spec, a.rebuildAndReload(b.leaf, reload)); err != nil {
			return err
		}
	}

	for _, w := range m.Watches {
		spec, err := pathspec.Parse(w.Pattern)
		if err != nil {
			return fmt.Errorf("watch %q: %w", w.Name, err)
		}
		members, err := a.registry.Resolve(w.Tasks...)
		if err != nil {
			return fmt.Errorf("watch %q: %w", w.Name, err)
		}
		if w.Reload {
			members = append(members, reload)
		}
		if err := a.watcher.Watch(spec, task.Series("watch:"+w.Name, members...)); err != nil {
			return err
		}
	}
	return nil
}

// rebuildAndReload returns the task bound to a step's watch pattern: the
// step, then reload. WatchingMessage is shown once per process, after the
// first of these runs in which the step did not fail. Each run carries its
// own outcome, so overlapping runs do not see each other's failures.
func (a *App) rebuildAndReload(leaf *task.Leaf, reload task.Task) task.Task {
	rebuild := task.Series(leaf.Name()+"+reload", leaf, reload)
	prepare := func(ctx context.Context) error { return task.Prepare(ctx, rebuild) }
	return task.NewLeaf(rebuild.Name(), func(ctx context.Context) error {
		ctx, run := task.WithOutcome(ctx)
		if err := rebuild.Run(ctx); err != nil {
			return err
		}
		if run.Failed() {
			return nil
		}
		a.announceOnce.Do(func() {
			a.server.Notify(ctx, WatchingMessage)
			ctxlog.FromContext(ctx).Info("👀 " + WatchingMessage)
		})
		return nil
	}, task.WithPrepare(prepare))
}

// prepareWatched runs the setup checks of every task bound to a watch
// pattern, since those are reachable only through the watcher.
func (a *App) prepareWatched(ctx context.Context) error {
	for _, b := range a.watcher.Bindings() {
		if err := task.Prepare(ctx, b.Task); err != nil {
			return err
		}
	}
	return nil
}

// reportFailure forwards a swallowed step failure to connected browsers.
func (a *App) reportFailure(ctx context.Context, f task.Failure) {
	a.server.Notify(ctx, fmt.Sprintf("%s failed: %v", f.Task, f.Err))
}

// startServer is the browser_sync task: it starts the dev server, which then
// keeps the process alive until interrupted.
func (a *App) startServer(ctx context.Context) error {
	if a.server.Started() {
		return nil
	}
	cfg := devserver.Config{
		BaseDir:         a.model.Server.BaseDir,
		Host:            a.model.Server.Host,
		Port:            a.model.Server.Port,
		ClientScriptURL: a.model.Server.ClientScriptURL,
	}
	if err := a.server.Init(ctx, cfg); err != nil {
		return task.Fatal(err)
	}
	return nil
}

// startWatching is the watch_files task: it starts the file watcher in the
// background, which then keeps the process alive until interrupted.
func (a *App) startWatching(ctx context.Context) error {
	if !a.watching.CompareAndSwap(false, true) {
		return nil
	}
	go func() {
		if err := a.watcher.Start(ctx); err != nil {
			a.watchErr <- err
		}
	}()

	select {
	case <-a.watcher.Ready():
		return nil
	case err := <-a.watchErr:
		return task.Fatal(err)
	case <-ctx.Done():
		return ctx.Err()
	}
}
