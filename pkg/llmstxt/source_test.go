package llmstxt

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

func TestFindSource(t *testing.T) {
	file := &fstest.MapFile{Data: []byte("---\ntitle: x\n---\n")}

	tests := []struct {
		name     string
		files    []string
		expected string
		found    bool
	}{
		{"index.qmd first", []string{"index.md", "index.ipynb", "index.qmd"}, "index.qmd", true},
		{"index notebook before index markdown", []string{"index.md", "index.ipynb"}, "index.ipynb", true},
		{"index markdown", []string{"index.md", "notes.qmd"}, "index.md", true},
		{"any qmd before any notebook", []string{"b.ipynb", "z.qmd", "a.qmd"}, "a.qmd", true},
		{"any notebook", []string{"b.ipynb", "a.ipynb"}, "a.ipynb", true},
		{"other markdown is ignored", []string{"notes.md", "image.png"}, "", false},
		{"empty directory", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{}
			for _, f := range tt.files {
				fsys[f] = file
			}

			name, ok := findSource(fsys, DefaultSourceLookups())
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, name)
		})
	}
}

func TestSourceLookupsSkipDirectories(t *testing.T) {
	fsys := fstest.MapFS{
		"index.qmd/nested.txt": &fstest.MapFile{Data: []byte("x")},
		"post.qmd":             &fstest.MapFile{Data: []byte("x")},
	}

	name, ok := findSource(fsys, DefaultSourceLookups())
	assert.True(t, ok)
	assert.Equal(t, "post.qmd", name)
}

func TestCustomSourceLookups(t *testing.T) {
	fsys := fstest.MapFS{
		"index.qmd": &fstest.MapFile{Data: []byte("x")},
		"post.rmd":  &fstest.MapFile{Data: []byte("x")},
	}

	name, ok := findSource(fsys, []SourceLookup{FirstMatch("*.rmd"), ExactFile("index.qmd")})
	assert.True(t, ok)
	assert.Equal(t, "post.rmd", name)
}
