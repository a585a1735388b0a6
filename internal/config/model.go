package config

import (
	"errors"
	"fmt"

	"github.com/rajubeparybd/gulp-compiler/internal/pathspec"
)

// Model is the unified, format-agnostic representation of the build
// configuration.
type Model struct {
	Server  Server
	Style   Style
	Script  Script
	Images  Images
	Tasks   []TaskDef
	Watches []WatchDef
}

// Server configures the dev server.
type Server struct {
	BaseDir         string
	Host            string
	Port            int
	ClientScriptURL string
}

// Style configures the css task.
type Style struct {
	Entry      string
	Watch      string
	Dest       string
	SassBinary string
	// Targets maps browser names to the oldest supported version.
	Targets map[string]string
}

// Script configures the js task.
type Script struct {
	Entry  string
	Watch  string
	Dest   string
	Target string
}

// Images configures the images task.
type Images struct {
	Src      string
	Watch    string
	Dest     string
	Quality  int
	MaxWidth int
}

// TaskDef is a user-defined task group.
type TaskDef struct {
	Name        string
	Kind        string
	Members     []string
	Description string
}

// WatchDef binds an extra pattern to tasks during watch_files.
type WatchDef struct {
	Name    string
	Pattern string
	Tasks   []string
	// Reload fires a browser reload after the tasks complete.
	Reload bool
}

// Default returns the stock configuration.
func Default() *Model {
	return &Model{
		Server: Server{
			BaseDir: "./",
			Host:    "localhost",
			Port:    3000,
		},
		Style: Style{
			Entry:      "src/scss/style.scss",
			Watch:      "src/scss/**/*.scss",
			Dest:       "assets/css/",
			SassBinary: "sass",
		},
		Script: Script{
			Entry:  "src/js/script.js",
			Watch:  "src/js/**/*.js",
			Dest:   "assets/js/",
			Target: "es2015",
		},
		Images: Images{
			Src:     "src/images/**/*",
			Watch:   "src/images/**/*.*",
			Dest:    "assets/images/",
			Quality: 75,
		},
	}
}

// Validate checks the model for errors that can be found without touching
// the file system. All problems are reported together.
func (m *Model) Validate() error {
	var errs []error
	check := func(field, pattern string) {
		if _, err := pathspec.Parse(pattern); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}
	required := func(field, value string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", field))
		}
	}

	if m.Server.Port < 0 || m.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", m.Server.Port))
	}
	required("server.base_dir", m.Server.BaseDir)

	check("style.entry", m.Style.Entry)
	check("style.watch", m.Style.Watch)
	required("style.dest", m.Style.Dest)

	check("script.entry", m.Script.Entry)
	check("script.watch", m.Script.Watch)
	required("script.dest", m.Script.Dest)

	check("images.src", m.Images.Src)
	check("images.watch", m.Images.Watch)
	required("images.dest", m.Images.Dest)
	if m.Images.Quality < 1 || m.Images.Quality > 100 {
		errs = append(errs, fmt.Errorf("images.quality %d must be between 1 and 100", m.Images.Quality))
	}
	if m.Images.MaxWidth < 0 {
		errs = append(errs, fmt.Errorf("images.max_width %d must not be negative", m.Images.MaxWidth))
	}

	seen := map[string]bool{}
	for _, t := range m.Tasks {
		if seen[t.Name] {
			errs = append(errs, fmt.Errorf("task %q is defined more than once", t.Name))
		}
		seen[t.Name] = true
		if t.Kind != "series" && t.Kind != "parallel" {
			errs = append(errs, fmt.Errorf("task %q: kind must be series or parallel, got %q", t.Name, t.Kind))
		}
	}

	watches := map[string]bool{}
	for _, w := range m.Watches {
		if watches[w.Name] {
			errs = append(errs, fmt.Errorf("watch %q is defined more than once", w.Name))
		}
		watches[w.Name] = true
		check(fmt.Sprintf("watch %q pattern", w.Name), w.Pattern)
		if len(w.Tasks) == 0 {
			errs = append(errs, fmt.Errorf("watch %q must name at least one task", w.Name))
		}
	}

	return errors.Join(errs...)
}
