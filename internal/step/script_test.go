package step

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rajubeparybd/gulp-compiler/internal/pathspec"
	"github.com/rajubeparybd/gulp-compiler/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scriptFixture(t *testing.T) (entry, dest string) {
	t.Helper()
	dir := t.TempDir()
	entry = filepath.Join(dir, "src", "js", "script.js")
	writeFile(t, filepath.Join(dir, "src", "js", "lib", "greet.js"),
		"export function greet(name) { return `Hello, ${name}!`; }\n")
	writeFile(t, entry, `import { greet } from "./lib/greet.js";
const el = document.querySelector("#out");
console.log("DEBUG-MARKER");
debugger;
el.textContent = greet("gulp");
`)
	return entry, filepath.Join(dir, "assets", "js")
}

func TestScript_BundlesAndMinifies(t *testing.T) {
	// --- Arrange ---
	entry, dest := scriptFixture(t)
	streamer := &recordingStreamer{}
	s := NewScript(ScriptConfig{Entry: pathspec.MustParse(entry), Dest: dest}, streamer)

	// --- Act ---
	err := s.Run(testutil.Context(t))

	// --- Assert ---
	require.NoError(t, err)
	out, err := os.ReadFile(filepath.Join(dest, "script.min.js"))
	require.NoError(t, err)
	js := string(out)
	assert.Contains(t, js, "Hello, ", "the imported module must be bundled")
	assert.NotContains(t, js, "import ")
	assert.Contains(t, js, "sourceMappingURL=script.min.js.map")
	assert.FileExists(t, filepath.Join(dest, "script.min.js.map"))
	assert.Len(t, streamer.files, 2)
}

func TestScript_ProductionStripsDebugStatements(t *testing.T) {
	for _, tc := range []struct {
		name       string
		production bool
		wantMarker bool
	}{
		{name: "development keeps console calls", production: false, wantMarker: true},
		{name: "production drops console calls", production: true, wantMarker: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			entry, dest := scriptFixture(t)
			s := NewScript(ScriptConfig{
				Entry: pathspec.MustParse(entry),
				Dest:  dest,
				Flags: Flags{Production: tc.production},
			}, nil)

			require.NoError(t, s.Run(testutil.Context(t)))

			out, err := os.ReadFile(filepath.Join(dest, "script.min.js"))
			require.NoError(t, err)
			if tc.wantMarker {
				assert.Contains(t, string(out), "DEBUG-MARKER")
			} else {
				assert.NotContains(t, string(out), "DEBUG-MARKER")
				assert.NotContains(t, string(out), "debugger")
			}
		})
	}
}

func TestScript_SyntaxErrorIsTransformError(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "broken.js")
	writeFile(t, entry, "const = ;\n")
	dest := filepath.Join(dir, "out")

	err := NewScript(ScriptConfig{Entry: pathspec.MustParse(entry), Dest: dest}, nil).Run(testutil.Context(t))

	var te *TransformError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "script", te.Step)
	assert.Contains(t, te.Error(), "broken.js:1:")
	assert.NoDirExists(t, dest)
}

func TestScript_ZeroMatchIsNoop(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out")
	s := NewScript(ScriptConfig{Entry: pathspec.MustParse(filepath.Join(dir, "js", "*.js")), Dest: dest}, nil)

	require.NoError(t, s.Run(testutil.Context(t)))
	assert.NoDirExists(t, dest)
}

func TestScript_PrepareRequiresLiteralEntry(t *testing.T) {
	dir := t.TempDir()
	s := NewScript(ScriptConfig{Entry: pathspec.MustParse(filepath.Join(dir, "script.js")), Dest: dir}, nil)
	assert.ErrorContains(t, s.Prepare(testutil.Context(t)), "does not exist")

	glob := NewScript(ScriptConfig{Entry: pathspec.MustParse(filepath.Join(dir, "*.js")), Dest: dir}, nil)
	assert.NoError(t, glob.Prepare(testutil.Context(t)))
}
