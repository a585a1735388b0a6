package cli

import (
	"io"
	"log/slog"

	"github.com/rajubeparybd/gulp-compiler/internal/app"
	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// version is set at build time via -ldflags.
var version = "dev"

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly (help, version),
// or an ExitError with code 2 for usage errors.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		raw    app.Config
		parsed *app.Config
	)

	cmd := &cobra.Command{
		Use:   "gulpc [flags] [task...]",
		Short: "Front-end asset build with live reload",
		Long: `gulpc compiles stylesheets, bundles scripts and converts images to WebP,
and serves the project with live reload while watching for changes.

Tasks run concurrently and default to "default". Built-in tasks:
  default       parallel(css, js, images)
  css           compile the stylesheet
  js            bundle the script entry
  images        convert images to WebP
  browser_sync  serve with live reload
  reload        reload connected browsers
  watch_files   rebuild and reload on change
  watch         parallel(browser_sync, watch_files)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, tasks []string) error {
			raw.Tasks = tasks
			raw.ConfigExplicit = cmd.Flags().Changed("config")
			raw.PortSet = cmd.Flags().Changed("port")

			cfg, err := app.NewConfig(raw)
			if err != nil {
				return err
			}
			parsed = cfg
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)

	flags := cmd.Flags()
	flags.StringVarP(&raw.ConfigPath, "config", "c", app.DefaultConfigPath, "Path to the gulpfile (.hcl, .yaml or .yml).")
	flags.BoolVar(&raw.Production, "production", false, "Strip console and debugger statements from scripts.")
	flags.StringVar(&raw.LogLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.StringVar(&raw.LogFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flags.BoolVar(&raw.List, "list", false, "Print the task table and exit.")
	flags.IntVar(&raw.Port, "port", 3000, "Dev server port, overrides the gulpfile.")

	if err := cmd.Execute(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if parsed == nil {
		// --help or --version was handled by cobra.
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", parsed)
	return parsed, false, nil
}
