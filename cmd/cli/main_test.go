package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rajubeparybd/gulp-compiler/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_InvalidConfig(t *testing.T) {
	// --- Arrange ---
	// A gulpfile with a syntax error is a fatal startup error.
	filePath := filepath.Join(t.TempDir(), "gulpfile.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte("style {\n  entry = \n"), 0o600))
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"--config", filePath})

	// --- Assert ---
	require.Error(t, err)
	var exitErr *cli.ExitError
	assert.False(t, errors.As(err, &exitErr), "a config error is not a usage error")
	assert.Contains(t, err.Error(), "failed to parse HCL file")
}

func TestRun_ShouldExit(t *testing.T) {
	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"-h"})

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_UsageError(t *testing.T) {
	err := run(context.Background(), &bytes.Buffer{}, []string{"--log-format", "yaml"})

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestRun_List(t *testing.T) {
	t.Chdir(t.TempDir())
	out := &bytes.Buffer{}

	err := run(context.Background(), out, []string{"--list"})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "browser_sync")
	assert.Contains(t, out.String(), "css, js, images")
}

func TestRun_BuildsProject(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	files := map[string]string{
		"gulpfile.yaml":     "style:\n  entry: src/css/style.css\n",
		"src/css/style.css": "body { margin: 0 }\n",
		"src/js/script.js":  "document.title = 'gulpc';\n",
	}
	for name, content := range files {
		require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	err := run(context.Background(), &bytes.Buffer{}, []string{"-c", "gulpfile.yaml", "css", "js", "images"})

	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "assets", "css", "style.min.css"))
	assert.FileExists(t, filepath.Join(dir, "assets", "js", "script.min.js"))
}
