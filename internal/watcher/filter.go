package watcher

import (
	"path/filepath"
	"strings"
)

// DefaultIgnorePatterns returns the patterns of partial uploads and editor
// lock files that never become intake documents.
func DefaultIgnorePatterns() []string {
	return []string{"*.tmp", "*.part", "*.partial", "*.download", "*.crdownload", ".~*", "~$*"}
}

// FileFilter matches base names against ignore patterns without regard to
// case. A pattern of the form ".ext" with no wildcard matches as a suffix.
type FileFilter struct {
	globs    []string
	suffixes []string
}

// NewFileFilter creates a FileFilter. Empty patterns select the defaults.
func NewFileFilter(patterns []string) *FileFilter {
	if len(patterns) == 0 {
		patterns = DefaultIgnorePatterns()
	}
	f := &FileFilter{}
	for _, p := range patterns {
		p = strings.ToLower(p)
		if strings.HasPrefix(p, ".") && !strings.ContainsAny(p, "*?[") {
			f.suffixes = append(f.suffixes, p)
			continue
		}
		f.globs = append(f.globs, p)
	}
	return f
}

// ShouldIgnore reports whether the base name of path matches a pattern.
// Malformed globs never match.
func (f *FileFilter) ShouldIgnore(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, s := range f.suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	for _, g := range f.globs {
		if ok, _ := filepath.Match(g, name); ok {
			return true
		}
	}
	return false
}
