package indexer

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern keeps the pattern text next to its compiled form so
// error messages and directory-prefix checks can reuse it.
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Discovery walks a workspace root and selects the source files to index.
// Include patterns default to the parser registry's extensions; ignore
// patterns drop whole subtrees.
type Discovery struct {
	root     string
	includes []compiledPattern
	ignores  []compiledPattern
}

// NewDiscovery compiles the include and ignore globs. Patterns use '/' as
// the separator regardless of platform.
func NewDiscovery(root string, includes, ignores []string) (*Discovery, error) {
	d := &Discovery{root: root}

	for _, pattern := range includes {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		d.includes = append(d.includes, compiledPattern{pattern: pattern, glob: g})
	}
	for _, pattern := range ignores {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		d.ignores = append(d.ignores, compiledPattern{pattern: pattern, glob: g})
	}
	return d, nil
}

// IncludePatternsFor builds one "**/*.ext" include per supported extension.
func IncludePatternsFor(extensions []string) []string {
	patterns := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		patterns = append(patterns, "**"+ext)
	}
	return patterns
}

// Discover returns the matching files under the root, sorted by relative
// path so downstream file ids are deterministic.
func (d *Discovery) Discover() ([]string, error) {
	var files []string
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if rel != "." && d.ShouldIgnore(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Matches(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// Matches reports whether a relative path is an indexable source file.
func (d *Discovery) Matches(relPath string) bool {
	if d.ShouldIgnore(relPath) {
		return false
	}
	return matchesAny(relPath, d.includes)
}

// ShouldIgnore reports whether a relative path falls under an ignore
// pattern. The index directory itself is always ignored.
func (d *Discovery) ShouldIgnore(relPath string) bool {
	if relPath == indexDirName || strings.HasPrefix(relPath, indexDirName+"/") {
		return true
	}
	if matchesAny(relPath, d.ignores) {
		return true
	}
	// A bare directory name like "vendor" should also suppress the
	// subtree a "vendor/**" pattern names.
	return matchesAny(relPath+"/**", d.ignores)
}

func matchesAny(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// A rooted file has no slash, so "**/*.rs" style patterns miss it.
	// Retry those with the leading "**/" stripped.
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if rest, ok := strings.CutPrefix(cp.pattern, "**/"); ok {
				if g, err := glob.Compile(rest, '/'); err == nil && g.Match(path) {
					return true
				}
			}
		}
	}
	return false
}
