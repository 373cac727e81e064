// Package pathfilter decides which filesystem paths participate in
// indexing. The decision is a pure function of the path and two fixed
// configuration sets: an extension allow-list split into code,
// documentation, and configuration files, and a directory exclusion
// set covering version-control metadata, dependency caches, build
// output, and virtual environments.
package pathfilter

import (
	"path/filepath"
	"strings"
)

// Category tells the chunker which strategy applies to a file.
type Category int

const (
	// CategoryNone means the extension is not indexable.
	CategoryNone Category = iota
	// CategoryCode files get syntax-aware chunking when a parser is
	// registered for their language.
	CategoryCode
	// CategoryDoc files are stripped to plain text, then windowed.
	CategoryDoc
	// CategoryConfig files are always windowed, never parsed.
	CategoryConfig
)

var codeExtensions = map[string]struct{}{
	".go": {}, ".ts": {}, ".js": {}, ".tsx": {}, ".jsx": {},
	".py": {}, ".java": {}, ".cs": {},
}

var docExtensions = map[string]struct{}{
	".md": {}, ".txt": {}, ".rst": {},
}

var configExtensions = map[string]struct{}{
	".json": {}, ".yaml": {}, ".yml": {}, ".toml": {}, ".ini": {},
}

var excludedDirs = map[string]struct{}{
	"node_modules":  {},
	"vendor":        {},
	"dist":          {},
	"build":         {},
	".git":          {},
	"__pycache__":   {},
	".pytest_cache": {},
	".venv":         {},
	"venv":          {},
	"env":           {},
	".env":          {},
}

// Filter is stateless; the zero value is usable.
type Filter struct{}

// New returns a Filter over the fixed extension and exclusion sets.
func New() *Filter {
	return &Filter{}
}

// ShouldIndex reports whether path participates in indexing: no
// ancestor directory may be excluded and the extension must belong to
// one of the three allow-list sets.
func (f *Filter) ShouldIndex(path string) bool {
	if f.underExcludedDir(path) {
		return false
	}
	return f.Categorize(path) != CategoryNone
}

// Categorize returns the file's chunking category based on its
// extension, case-insensitively. CategoryNone means excluded.
func (f *Filter) Categorize(path string) Category {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := codeExtensions[ext]; ok {
		return CategoryCode
	}
	if _, ok := docExtensions[ext]; ok {
		return CategoryDoc
	}
	if _, ok := configExtensions[ext]; ok {
		return CategoryConfig
	}
	return CategoryNone
}

// ExcludedDir reports whether a single directory name is in the
// exclusion set. The indexer uses this to prune whole subtrees during
// the walk instead of testing every descendant path.
func (f *Filter) ExcludedDir(name string) bool {
	_, ok := excludedDirs[name]
	return ok
}

// underExcludedDir checks every directory component in the ancestor
// chain, not just the immediate parent.
func (f *Filter) underExcludedDir(path string) bool {
	dir := filepath.Dir(path)
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if _, ok := excludedDirs[part]; ok {
			return true
		}
	}
	return false
}
