package step

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rajubeparybd/gulp-compiler/internal/ctxlog"
	"github.com/rajubeparybd/gulp-compiler/internal/fsutil"
	"github.com/rajubeparybd/gulp-compiler/internal/pathspec"
)

// ScriptConfig configures the script step.
type ScriptConfig struct {
	Entry  *pathspec.Spec
	Dest   string
	Target api.Target
	Flags  Flags
}

// Script bundles each entry with its imports into a single minified browser
// script named <entry>.min.js with a linked source map.
type Script struct {
	cfg      ScriptConfig
	streamer Streamer
}

// NewScript creates the script step. streamer may be nil.
func NewScript(cfg ScriptConfig, streamer Streamer) *Script {
	if streamer == nil {
		streamer = nopStreamer{}
	}
	if cfg.Target == 0 {
		cfg.Target = api.ES2015
	}
	return &Script{cfg: cfg, streamer: streamer}
}

// Prepare checks that a literal entry exists.
func (s *Script) Prepare(context.Context) error {
	if !s.cfg.Entry.Literal() {
		return nil
	}
	return fsutil.RequireReadable(filepath.FromSlash(s.cfg.Entry.String()))
}

func (s *Script) options(entry string) api.BuildOptions {
	opts := api.BuildOptions{
		EntryPoints:       []string{entry},
		Bundle:            true,
		Outfile:           filepath.Join(s.cfg.Dest, stem(entry)+".min.js"),
		Format:            api.FormatIIFE,
		Platform:          api.PlatformBrowser,
		Target:            s.cfg.Target,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		Sourcemap:         api.SourceMapLinked,
		LogLevel:          api.LogLevelSilent,
		Write:             false,
	}
	if s.cfg.Flags.Production {
		opts.Drop = api.DropConsole | api.DropDebugger
		opts.Define = map[string]string{"process.env.NODE_ENV": `"production"`}
	}
	return opts
}

// Run bundles every matched entry. The first failing entry aborts the run
// with a *TransformError.
func (s *Script) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("step", "script", "production", s.cfg.Flags.Production)

	entries, err := s.cfg.Entry.Files()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		logger.Info("No scripts matched, nothing to do.", "pattern", s.cfg.Entry.String())
		return nil
	}

	var written []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		result := api.Build(s.options(entry))
		if len(result.Errors) > 0 {
			return &TransformError{Step: "script", File: entry, Err: buildError(result.Errors)}
		}
		files, err := writeOutputs(result.OutputFiles)
		if err != nil {
			return fmt.Errorf("script: %w", err)
		}
		logger.Debug("Script bundled.", "entry", entry, "outputs", files)
		written = append(written, files...)
	}

	s.streamer.Stream(ctx, written...)
	return nil
}
