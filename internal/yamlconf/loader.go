// Package yamlconf provides the YAML implementation of config.Loader, for
// projects that prefer a gulpfile.yaml over HCL.
//
// YAML has no expressions, so production-only settings go in a top-level
// `production` section that is applied over the rest of the file when the
// --production flag is set.
package yamlconf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rajubeparybd/gulp-compiler/internal/config"
	"github.com/rajubeparybd/gulp-compiler/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

type document struct {
	Base       sections   `yaml:",inline"`
	Tasks      []taskDoc  `yaml:"tasks"`
	Watches    []watchDoc `yaml:"watches"`
	Production *sections  `yaml:"production"`
}

type sections struct {
	Server *serverDoc `yaml:"server"`
	Style  *styleDoc  `yaml:"style"`
	Script *scriptDoc `yaml:"script"`
	Images *imagesDoc `yaml:"images"`
}

type serverDoc struct {
	BaseDir         *string `yaml:"base_dir"`
	Host            *string `yaml:"host"`
	Port            *int    `yaml:"port"`
	ClientScriptURL *string `yaml:"client_script_url"`
}

type styleDoc struct {
	Entry      *string           `yaml:"entry"`
	Watch      *string           `yaml:"watch"`
	Dest       *string           `yaml:"dest"`
	SassBinary *string           `yaml:"sass_binary"`
	Targets    map[string]string `yaml:"targets"`
}

type scriptDoc struct {
	Entry  *string `yaml:"entry"`
	Watch  *string `yaml:"watch"`
	Dest   *string `yaml:"dest"`
	Target *string `yaml:"target"`
}

type imagesDoc struct {
	Src      *string `yaml:"src"`
	Watch    *string `yaml:"watch"`
	Dest     *string `yaml:"dest"`
	Quality  *int    `yaml:"quality"`
	MaxWidth *int    `yaml:"max_width"`
}

type taskDoc struct {
	Name        string   `yaml:"name"`
	Series      []string `yaml:"series"`
	Parallel    []string `yaml:"parallel"`
	Description string   `yaml:"description"`
}

type watchDoc struct {
	Name    string   `yaml:"name"`
	Pattern string   `yaml:"pattern"`
	Tasks   []string `yaml:"tasks"`
	Reload  *bool    `yaml:"reload"`
}

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader { return &Loader{} }

var _ config.Loader = (*Loader)(nil)

// Load parses the file at path and applies it over config.Default.
func (l *Loader) Load(ctx context.Context, path string, vars config.Vars) (*config.Model, error) {
	ctxlog.FromContext(ctx).Debug("YAML loader started.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file %s: %w", path, err)
	}

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}

	model := config.Default()
	doc.Base.apply(model)
	if vars.Production && doc.Production != nil {
		doc.Production.apply(model)
	}
	if err := translateGroups(&doc, model); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return model, nil
}

func (s *sections) apply(model *config.Model) {
	if d := s.Server; d != nil {
		set(&model.Server.BaseDir, d.BaseDir)
		set(&model.Server.Host, d.Host)
		set(&model.Server.Port, d.Port)
		set(&model.Server.ClientScriptURL, d.ClientScriptURL)
	}
	if d := s.Style; d != nil {
		set(&model.Style.Entry, d.Entry)
		set(&model.Style.Watch, d.Watch)
		set(&model.Style.Dest, d.Dest)
		set(&model.Style.SassBinary, d.SassBinary)
		if d.Targets != nil {
			model.Style.Targets = d.Targets
		}
	}
	if d := s.Script; d != nil {
		set(&model.Script.Entry, d.Entry)
		set(&model.Script.Watch, d.Watch)
		set(&model.Script.Dest, d.Dest)
		set(&model.Script.Target, d.Target)
	}
	if d := s.Images; d != nil {
		set(&model.Images.Src, d.Src)
		set(&model.Images.Watch, d.Watch)
		set(&model.Images.Dest, d.Dest)
		set(&model.Images.Quality, d.Quality)
		set(&model.Images.MaxWidth, d.MaxWidth)
	}
}

func translateGroups(doc *document, model *config.Model) error {
	for _, t := range doc.Tasks {
		def := config.TaskDef{Name: t.Name, Description: t.Description}
		switch {
		case len(t.Series) > 0 && len(t.Parallel) > 0:
			return fmt.Errorf("task %q: set either series or parallel, not both", t.Name)
		case len(t.Series) > 0:
			def.Kind, def.Members = "series", t.Series
		case len(t.Parallel) > 0:
			def.Kind, def.Members = "parallel", t.Parallel
		default:
			return fmt.Errorf("task %q: one of series or parallel is required", t.Name)
		}
		model.Tasks = append(model.Tasks, def)
	}
	for _, w := range doc.Watches {
		def := config.WatchDef{Name: w.Name, Pattern: w.Pattern, Tasks: w.Tasks, Reload: true}
		set(&def.Reload, w.Reload)
		model.Watches = append(model.Watches, def)
	}
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
