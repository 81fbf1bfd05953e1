package llmstxt

import (
	"io/fs"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// SourceLookup finds a source document inside one post source directory. It
// returns the slash-separated name relative to fsys.
type SourceLookup func(fsys fs.FS) (string, bool)

// ExactFile matches a regular file with the given name.
func ExactFile(name string) SourceLookup {
	return func(fsys fs.FS) (string, bool) {
		info, err := fs.Stat(fsys, name)
		if err != nil || info.IsDir() {
			return "", false
		}
		return name, true
	}
}

// FirstMatch matches the lexically first file for a glob pattern.
func FirstMatch(pattern string) SourceLookup {
	return func(fsys fs.FS) (string, bool) {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil || len(matches) == 0 {
			return "", false
		}
		sort.Strings(matches)
		return matches[0], true
	}
}

// DefaultSourceLookups prefers an explicit index document, then any Quarto
// document, then any notebook.
func DefaultSourceLookups() []SourceLookup {
	return []SourceLookup{
		ExactFile("index.qmd"),
		ExactFile("index.ipynb"),
		ExactFile("index.md"),
		FirstMatch("*.qmd"),
		FirstMatch("*.ipynb"),
	}
}

// findSource runs lookups in order and returns the first hit.
func findSource(fsys fs.FS, lookups []SourceLookup) (string, bool) {
	for _, lookup := range lookups {
		if name, ok := lookup(fsys); ok {
			return name, true
		}
	}
	return "", false
}
