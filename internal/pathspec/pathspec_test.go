package pathspec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Base(t *testing.T) {
	cases := []struct {
		pattern string
		base    string
		literal bool
	}{
		{"src/scss/style.scss", "src/scss", true},
		{"./src/scss/**/*.scss", "src/scss", false},
		{"src/images/**/*", "src/images", false},
		{"*.html", ".", false},
		{"/var/www/**/*.js", "/var/www", false},
	}
	for _, tc := range cases {
		t.Run(tc.pattern, func(t *testing.T) {
			s, err := Parse(tc.pattern)
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tc.base), s.Base())
			assert.Equal(t, tc.literal, s.Literal())
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse("  ")
	assert.Error(t, err)
}

func TestMatch(t *testing.T) {
	s := MustParse("src/js/**/*.js")

	assert.True(t, s.Match("src/js/script.js"), "**/ must match zero directories")
	assert.True(t, s.Match("src/js/lib/util.js"))
	assert.True(t, s.Match("src/js/a/b/c.js"))
	assert.True(t, s.Match("./src/js/script.js"))
	assert.False(t, s.Match("src/js/script.ts"))
	assert.False(t, s.Match("src/css/script.js"))

	single := MustParse("src/*.js")
	assert.True(t, single.Match("src/a.js"))
	assert.False(t, single.Match("src/lib/a.js"), "single star must not cross directories")

	literal := MustParse("src/scss/style.scss")
	assert.True(t, literal.Match("src/scss/style.scss"))
	assert.False(t, literal.Match("src/scss/_vars.scss"))
}

func TestFiles(t *testing.T) {
	root := t.TempDir()
	write := func(rel string) {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
	write("images/a.png")
	write("images/icons/b.jpg")
	write("images/readme")
	write("other/c.png")

	s := MustParse(filepath.ToSlash(filepath.Join(root, "images")) + "/**/*.*")
	files, err := s.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "images", "a.png"),
		filepath.Join(root, "images", "icons", "b.jpg"),
	}, files)

	rel, err := s.Rel(files[1])
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("icons", "b.jpg"), rel)
}

func TestFiles_ZeroMatch(t *testing.T) {
	root := t.TempDir()

	missingBase := MustParse(filepath.ToSlash(root) + "/nope/**/*.js")
	files, err := missingBase.Files()
	require.NoError(t, err)
	assert.Empty(t, files)

	missingLiteral := MustParse(filepath.ToSlash(root) + "/style.scss")
	files, err = missingLiteral.Files()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps(MustParse("src/scss/**/*.scss"), MustParse("src/scss/style.scss")))
	assert.True(t, Overlaps(MustParse("**/*.html"), MustParse("src/index.html")))
	assert.False(t, Overlaps(MustParse("src/js/**/*.js"), MustParse("src/scss/style.scss")))
	assert.False(t, Overlaps(MustParse("src/js/**/*.js"), MustParse("src/jsx/app.js")))
}
