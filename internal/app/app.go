package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rajubeparybd/gulp-compiler/internal/config"
	"github.com/rajubeparybd/gulp-compiler/internal/ctxlog"
	"github.com/rajubeparybd/gulp-compiler/internal/devserver"
	"github.com/rajubeparybd/gulp-compiler/internal/hcl"
	"github.com/rajubeparybd/gulp-compiler/internal/metrics"
	"github.com/rajubeparybd/gulp-compiler/internal/step"
	"github.com/rajubeparybd/gulp-compiler/internal/task"
	"github.com/rajubeparybd/gulp-compiler/internal/watch"
	"github.com/rajubeparybd/gulp-compiler/internal/yamlconf"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	model  *config.Model
	flags  step.Flags

	metrics  *metrics.Metrics
	server   *devserver.Server
	watcher  *watch.Registrar
	sass     *step.DartSass
	registry *task.Registry

	watching     atomic.Bool
	watchErr     chan error
	announceOnce sync.Once
}

// NewApp is the constructor for the main application. It loads the
// configuration and builds the task registry; any error is a fatal setup
// error.
func NewApp(outW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loadModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.PortSet {
		model.Server.Port = cfg.Port
	}
	logger.Debug("Configuration loaded.", "path", cfg.ConfigPath, "production", cfg.Production)

	m := metrics.New()
	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		model:    model,
		flags:    step.Flags{Production: cfg.Production},
		metrics:  m,
		server:   devserver.New(m),
		watcher:  watch.NewRegistrar(),
		sass:     step.NewDartSass(model.Style.SassBinary),
		registry: task.NewRegistry(),
		watchErr: make(chan error, 1),
	}
	if err := a.buildTasks(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Task registry built.", "tasks", a.registry.Names())
	return a, nil
}

// loaderFor picks the configuration loader from the file extension.
func loaderFor(path string) config.Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlconf.NewLoader()
	default:
		return hcl.NewLoader()
	}
}

func loadModel(ctx context.Context, cfg *Config) (*config.Model, error) {
	vars := config.Vars{Production: cfg.Production}
	if _, err := os.Stat(cfg.ConfigPath); errors.Is(err, fs.ErrNotExist) && !cfg.ConfigExplicit {
		ctxlog.FromContext(ctx).Debug("No configuration file found, using defaults.", "path", cfg.ConfigPath)
		return config.Default(), nil
	}
	return loaderFor(cfg.ConfigPath).Load(ctx, cfg.ConfigPath, vars)
}

// Registry returns the application's task registry. This is primarily for testing.
func (a *App) Registry() *task.Registry {
	return a.registry
}

// Server returns the dev server. This is primarily for testing.
func (a *App) Server() *devserver.Server {
	return a.server
}

// Close releases the dev server and the Dart Sass process.
func (a *App) Close(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	return errors.Join(a.server.Close(ctx), a.sass.Close())
}
