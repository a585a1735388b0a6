package step

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rajubeparybd/gulp-compiler/internal/ctxlog"
	"github.com/rajubeparybd/gulp-compiler/internal/fsutil"
	"github.com/rajubeparybd/gulp-compiler/internal/pathspec"
)

// StyleConfig configures the stylesheet step.
type StyleConfig struct {
	// Entry selects the entry stylesheets; each produces one output file.
	Entry *pathspec.Spec
	// Dest is the CSS output directory.
	Dest string
	// Engines select vendor prefixes and syntax lowering.
	Engines []api.Engine
}

// Style compiles entry stylesheets into minified, prefixed CSS with a
// linked source map, named <entry>.min.css.
type Style struct {
	cfg      StyleConfig
	sass     *DartSass
	compiler Compiler
	streamer Streamer
}

// StyleOption configures a Style step.
type StyleOption func(*Style)

// WithCompiler replaces the stylesheet compiler used for every entry.
func WithCompiler(c Compiler) StyleOption {
	return func(s *Style) { s.compiler = c }
}

// WithDartSass sets the Dart Sass compiler used for .scss and .sass entries.
func WithDartSass(d *DartSass) StyleOption {
	return func(s *Style) { s.sass = d }
}

// WithStyleStreamer sets where written files are announced.
func WithStyleStreamer(st Streamer) StyleOption {
	return func(s *Style) { s.streamer = st }
}

// NewStyle creates the stylesheet step.
func NewStyle(cfg StyleConfig, opts ...StyleOption) *Style {
	s := &Style{cfg: cfg, streamer: nopStreamer{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.sass == nil {
		s.sass = NewDartSass("")
	}
	if len(s.cfg.Engines) == 0 {
		s.cfg.Engines, _ = Engines(nil)
	}
	return s
}

func (s *Style) compilerFor(path string) Compiler {
	if s.compiler != nil {
		return s.compiler
	}
	if isSass(path) {
		return s.sass
	}
	return PlainCSS{}
}

// Prepare checks that a literal entry exists and that Dart Sass is
// available when a Sass entry needs it.
func (s *Style) Prepare(ctx context.Context) error {
	if s.cfg.Entry.Literal() {
		if err := fsutil.RequireReadable(filepath.FromSlash(s.cfg.Entry.String())); err != nil {
			return err
		}
	}
	if s.compiler == nil && isSass(s.cfg.Entry.String()) {
		return s.sass.Check()
	}
	return nil
}

// Run compiles every matched entry. The first failing entry aborts the run
// with a *TransformError; outputs of entries compiled before it are kept.
func (s *Style) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("step", "style")

	entries, err := s.cfg.Entry.Files()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		logger.Info("No stylesheets matched, nothing to do.", "pattern", s.cfg.Entry.String())
		return nil
	}

	var written []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		files, err := s.compile(ctx, entry)
		if err != nil {
			return err
		}
		logger.Debug("Stylesheet compiled.", "entry", entry, "outputs", files)
		written = append(written, files...)
	}

	s.streamer.Stream(ctx, written...)
	return nil
}

func (s *Style) compile(ctx context.Context, entry string) ([]string, error) {
	out, err := s.compilerFor(entry).Compile(ctx, entry)
	if err != nil {
		return nil, &TransformError{Step: "style", File: entry, Err: err}
	}

	contents := out.CSS
	if out.SourceMap != "" {
		// esbuild chains an inline input map into the map it emits.
		contents += "\n/*# sourceMappingURL=data:application/json;base64," +
			base64.StdEncoding.EncodeToString([]byte(out.SourceMap)) + " */\n"
	}

	result := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   contents,
			ResolveDir: filepath.Dir(entry),
			Sourcefile: filepath.Base(entry),
			Loader:     api.LoaderCSS,
		},
		Outfile:           filepath.Join(s.cfg.Dest, stem(entry)+".min.css"),
		Engines:           s.cfg.Engines,
		MinifyWhitespace:  true,
		MinifySyntax:      true,
		MinifyIdentifiers: true,
		Sourcemap:         api.SourceMapLinked,
		LogLevel:          api.LogLevelSilent,
		Write:             false,
	})
	if len(result.Errors) > 0 {
		return nil, &TransformError{Step: "style", File: entry, Err: buildError(result.Errors)}
	}

	written, err := writeOutputs(result.OutputFiles)
	if err != nil {
		return written, fmt.Errorf("style: %w", err)
	}
	return written, nil
}
