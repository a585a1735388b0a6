package hcl

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rajubeparybd/gulp-compiler/internal/config"
	"github.com/rajubeparybd/gulp-compiler/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	environ func() []string
}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ}
}

var _ config.Loader = (*Loader)(nil)

// Load parses the file at path and applies it over config.Default.
func (l *Loader) Load(ctx context.Context, path string, vars config.Vars) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, l.evalContext(vars), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	model := config.Default()
	if err := translate(&root, model); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	logger.Debug("HCL configuration loaded.", "tasks", len(model.Tasks), "watches", len(model.Watches))
	return model, nil
}

// evalContext exposes the build variables and functions to expressions.
func (l *Loader) evalContext(vars config.Vars) *hcl.EvalContext {
	env := map[string]cty.Value{}
	for _, e := range l.environ() {
		name, value, ok := strings.Cut(e, "=")
		if ok && name != "" {
			env[name] = cty.StringVal(value)
		}
	}
	envVal := cty.MapValEmpty(cty.String)
	if len(env) > 0 {
		envVal = cty.MapVal(env)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"production": cty.BoolVal(vars.Production),
			"env":        envVal,
		},
		Functions: map[string]function.Function{
			"coalesce": stdlib.CoalesceFunc,
			"concat":   stdlib.ConcatFunc,
			"format":   stdlib.FormatFunc,
			"join":     stdlib.JoinFunc,
			"lower":    stdlib.LowerFunc,
			"upper":    stdlib.UpperFunc,
		},
	}
}

// translate merges the decoded blocks into model.
func translate(root *fileRoot, model *config.Model) error {
	if s := root.Server; s != nil {
		set(&model.Server.BaseDir, s.BaseDir)
		set(&model.Server.Host, s.Host)
		set(&model.Server.Port, s.Port)
		set(&model.Server.ClientScriptURL, s.ClientScriptURL)
	}
	if s := root.Style; s != nil {
		set(&model.Style.Entry, s.Entry)
		set(&model.Style.Watch, s.Watch)
		set(&model.Style.Dest, s.Dest)
		set(&model.Style.SassBinary, s.SassBinary)
		if s.Targets != nil {
			model.Style.Targets = s.Targets
		}
	}
	if s := root.Script; s != nil {
		set(&model.Script.Entry, s.Entry)
		set(&model.Script.Watch, s.Watch)
		set(&model.Script.Dest, s.Dest)
		set(&model.Script.Target, s.Target)
	}
	if s := root.Images; s != nil {
		set(&model.Images.Src, s.Src)
		set(&model.Images.Watch, s.Watch)
		set(&model.Images.Dest, s.Dest)
		set(&model.Images.Quality, s.Quality)
		set(&model.Images.MaxWidth, s.MaxWidth)
	}

	for _, t := range root.Tasks {
		def := config.TaskDef{Name: t.Name}
		switch {
		case t.Series != nil && t.Parallel != nil:
			return fmt.Errorf("task %q: set either series or parallel, not both", t.Name)
		case t.Series != nil:
			def.Kind, def.Members = "series", t.Series
		case t.Parallel != nil:
			def.Kind, def.Members = "parallel", t.Parallel
		default:
			return fmt.Errorf("task %q: one of series or parallel is required", t.Name)
		}
		set(&def.Description, t.Description)
		model.Tasks = append(model.Tasks, def)
	}

	for _, w := range root.Watches {
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
