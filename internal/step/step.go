// Package step implements the transform steps of the asset build: the
// stylesheet, script and image pipelines. Each step is idempotent, treats
// an input pattern that matches no files as a no-op, and writes every
// output atomically so a step has finished writing when Run returns.
//
// The transformations themselves are delegated: Dart Sass (godartsass)
// compiles stylesheets, esbuild bundles, lowers and minifies scripts and
// CSS, and imaging/webp recompress images.
package step

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rajubeparybd/gulp-compiler/internal/fsutil"
)

// Flags are the runtime flags of one invocation. They are fixed at startup.
type Flags struct {
	// Production strips debug statements from scripts.
	Production bool
}

// Streamer receives the files a step has just written so connected
// browsers can pick them up.
type Streamer interface {
	Stream(ctx context.Context, files ...string)
}

type nopStreamer struct{}

func (nopStreamer) Stream(context.Context, ...string) {}

// TransformError is a failure to transform one input file.
type TransformError struct {
	Step string
	File string
	Err  error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Step, e.File, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// DefaultEngines approximates the "last 2 versions, > 5%, Firefox ESR"
// browser query: it decides which vendor prefixes and syntax lowering
// esbuild applies to CSS.
var DefaultEngines = map[string]string{
	"chrome":  "120",
	"edge":    "120",
	"firefox": "115",
	"ios":     "16",
	"safari":  "16",
}

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ios":     api.EngineIOS,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

// Engines converts a browser->version map into esbuild engine targets,
// sorted by browser name.
func Engines(targets map[string]string) ([]api.Engine, error) {
	if len(targets) == 0 {
		targets = DefaultEngines
	}
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	engines := make([]api.Engine, 0, len(names))
	for _, name := range names {
		engine, ok := engineNames[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown browser target %q", name)
		}
		engines = append(engines, api.Engine{Name: engine, Version: targets[name]})
	}
	return engines, nil
}

var scriptTargets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"esnext": api.ESNext,
}

// ParseTarget converts a language level such as "es2015" into an esbuild target.
func ParseTarget(s string) (api.Target, error) {
	if s == "" {
		return api.ES2015, nil
	}
	t, ok := scriptTargets[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("unsupported script target %q", s)
	}
	return t, nil
}

// buildError flattens esbuild messages into one error.
func buildError(msgs []api.Message) error {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			lines = append(lines, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
		} else {
			lines = append(lines, m.Text)
		}
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}

// writeOutputs writes esbuild output files, source maps first so a stylesheet
// or bundle never references a map that is not on disk yet.
func writeOutputs(files []api.OutputFile) ([]string, error) {
	sorted := append([]api.OutputFile(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return filepath.Ext(sorted[i].Path) == ".map" && filepath.Ext(sorted[j].Path) != ".map"
	})

	written := make([]string, 0, len(sorted))
	for _, f := range sorted {
		if err := fsutil.WriteFileAtomic(f.Path, f.Contents); err != nil {
			return written, err
		}
		written = append(written, f.Path)
	}
	return written, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
