package step

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bep/godartsass/v2"
)

// Compiled is a stylesheet compiled to CSS, with its source map when the
// compiler produces one.
type Compiled struct {
	CSS       string
	SourceMap string
}

// Compiler turns a stylesheet file into CSS.
type Compiler interface {
	Compile(ctx context.Context, path string) (Compiled, error)
}

// PlainCSS is the Compiler for .css entries: the file is used as is.
type PlainCSS struct{}

// Compile implements Compiler.
func (PlainCSS) Compile(_ context.Context, path string) (Compiled, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Compiled{}, err
	}
	return Compiled{CSS: string(data)}, nil
}

// DartSass compiles .scss and .sass files through an embedded Dart Sass
// process. The process starts on first use and is shared by all calls.
type DartSass struct {
	binary string

	mu         sync.Mutex
	transpiler *godartsass.Transpiler
}

// NewDartSass creates a compiler that runs binary, resolved through PATH
// when it is not a path.
func NewDartSass(binary string) *DartSass {
	if binary == "" {
		binary = "sass"
	}
	return &DartSass{binary: binary}
}

// Check verifies that the Dart Sass binary can be found.
func (d *DartSass) Check() error {
	if _, err := exec.LookPath(d.binary); err != nil {
		return fmt.Errorf("dart sass binary %q not found: %w", d.binary, err)
	}
	return nil
}

func (d *DartSass) start() (*godartsass.Transpiler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transpiler != nil {
		return d.transpiler, nil
	}
	t, err := godartsass.Start(godartsass.Options{DartSassEmbeddedFilename: d.binary})
	if err != nil {
		return nil, fmt.Errorf("failed to start dart sass: %w", err)
	}
	d.transpiler = t
	return t, nil
}

// Compile implements Compiler.
func (d *DartSass) Compile(ctx context.Context, path string) (Compiled, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Compiled{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Compiled{}, err
	}
	t, err := d.start()
	if err != nil {
		return Compiled{}, err
	}

	syntax := godartsass.SourceSyntaxSCSS
	if strings.EqualFold(filepath.Ext(path), ".sass") {
		syntax = godartsass.SourceSyntaxSASS
	}

	res, err := t.Execute(godartsass.Args{
		Source:                  string(src),
		URL:                     (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(),
		OutputStyle:             godartsass.OutputStyleCompressed,
		SourceSyntax:            syntax,
		IncludePaths:            []string{filepath.Dir(abs)},
		EnableSourceMap:         true,
		SourceMapIncludeSources: true,
	})
	if err != nil {
		return Compiled{}, err
	}
	return Compiled{CSS: res.CSS, SourceMap: res.SourceMap}, nil
}

// Close stops the Dart Sass process if it was started.
func (d *DartSass) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transpiler == nil {
		return nil
	}
	err := d.transpiler.Close()
	d.transpiler = nil
	return err
}

func isSass(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".scss", ".sass":
		return true
	}
	return false
}
