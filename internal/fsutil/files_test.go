package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "out.css")

	require.NoError(t, WriteFileAtomic(target, []byte("a{}")))
	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "a{}", string(got))

	// Overwrite leaves no temp files behind.
	require.NoError(t, WriteFileAtomic(target, []byte("b{}")))
	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRequireReadable(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "entry.js")
	require.NoError(t, os.WriteFile(file, []byte("1"), 0o600))

	assert.NoError(t, RequireReadable(file))
	assert.ErrorContains(t, RequireReadable(filepath.Join(dir, "missing.js")), "does not exist")
	assert.ErrorContains(t, RequireReadable(dir), "is a directory")
}

func TestCopyFileAtomic(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "icon.svg")
	require.NoError(t, os.WriteFile(src, []byte("<svg/>"), 0o600))

	dst := filepath.Join(dir, "out", "icon.svg")
	require.NoError(t, CopyFileAtomic(src, dst))
	assert.True(t, Exists(dst))
}
