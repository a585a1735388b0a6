// Package pathspec implements the glob patterns used to select transform
// inputs and watched files.
//
// Patterns use '/' as separator on every platform. A single '*' never
// crosses a directory boundary, '**' does, and a "**/" segment also
// matches zero directories, so "src/js/**/*.js" selects both
// "src/js/app.js" and "src/js/lib/util.js". A pattern without any glob
// meta characters is literal and selects exactly one file.
package pathspec

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

const metaChars = "*?[{"

// Spec is a compiled path pattern. It is immutable and safe for concurrent use.
type Spec struct {
	pattern string
	base    string
	literal bool
	globs   []glob.Glob
}

// Parse compiles pattern into a Spec.
func Parse(pattern string) (*Spec, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, errors.New("path pattern must not be empty")
	}
	norm := normalize(pattern)

	segments := strings.Split(norm, "/")
	static := 0
	for static < len(segments) && !strings.ContainsAny(segments[static], metaChars) {
		static++
	}

	s := &Spec{pattern: norm}
	if static == len(segments) {
		s.literal = true
		s.base = path.Dir(norm)
		return s, nil
	}

	s.base = strings.Join(segments[:static], "/")
	switch {
	case static == 1 && segments[0] == "":
		s.base = "/"
	case s.base == "":
		s.base = "."
	}

	for _, variant := range expandDoubleStar(segments) {
		g, err := glob.Compile(variant, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid path pattern %q: %w", pattern, err)
		}
		s.globs = append(s.globs, g)
	}
	return s, nil
}

// MustParse is like Parse but panics on an invalid pattern. It is meant for
// patterns that are compiled into the binary.
func MustParse(pattern string) *Spec {
	s, err := Parse(pattern)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the normalized pattern.
func (s *Spec) String() string { return s.pattern }

// Literal reports whether the pattern names a single file.
func (s *Spec) Literal() bool { return s.literal }

// Base returns the longest directory prefix of the pattern that contains no
// glob meta characters, in OS path form. It is the directory walked for
// inputs and watched for changes.
func (s *Spec) Base() string { return filepath.FromSlash(s.base) }

// Match reports whether p is selected by the pattern. p may use either
// separator and is cleaned before matching.
func (s *Spec) Match(p string) bool {
	norm := normalize(p)
	if s.literal {
		return norm == s.pattern
	}
	for _, g := range s.globs {
		if g.Match(norm) {
			return true
		}
	}
	return false
}

// Files returns the existing regular files selected by the pattern in
// lexical order. A missing base directory selects nothing and is not an error.
func (s *Spec) Files() ([]string, error) {
	if s.literal {
		info, err := os.Stat(filepath.FromSlash(s.pattern))
		if err != nil || !info.Mode().IsRegular() {
			return nil, nil
		}
		return []string{filepath.FromSlash(s.pattern)}, nil
	}

	root := s.Base()
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && s.Match(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expand %q: %w", s.pattern, err)
	}
	return files, nil
}

// Rel returns p relative to Base, used to mirror the input layout under a
// destination directory.
func (s *Spec) Rel(p string) (string, error) {
	if s.literal {
		return filepath.Base(p), nil
	}
	return filepath.Rel(s.Base(), p)
}

// Overlaps reports whether the base directories of a and b nest inside one
// another. A watch pattern that does not overlap its step's input pattern
// can never trigger a useful rebuild.
func Overlaps(a, b *Spec) bool {
	return within(a.base, b.base) || within(b.base, a.base)
}

func within(parent, child string) bool {
	if parent == "." && !path.IsAbs(child) {
		return true
	}
	if parent == child {
		return true
	}
	if parent == "/" {
		return path.IsAbs(child)
	}
	return strings.HasPrefix(child, parent+"/")
}

func normalize(p string) string {
	p = filepath.ToSlash(p)
	p = path.Clean(p)
	return p
}

// expandDoubleStar returns every spelling of the pattern where each
// non-terminal "**" segment is either kept or dropped, which lets "**/"
// match zero directories.
func expandDoubleStar(segments []string) []string {
	var optional []int
	for i, seg := range segments {
		if seg == "**" && i < len(segments)-1 {
			optional = append(optional, i)
		}
	}

	variants := make([]string, 0, 1<<len(optional))
	for mask := 0; mask < 1<<len(optional); mask++ {
		drop := make(map[int]bool, len(optional))
		for bit, idx := range optional {
			if mask&(1<<bit) != 0 {
				drop[idx] = true
			}
		}
		kept := make([]string, 0, len(segments))
		for i, seg := range segments {
			if !drop[i] {
				kept = append(kept, seg)
			}
		}
		variants = append(variants, strings.Join(kept, "/"))
	}
	return variants
}
