package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLlmsTxtConfig(t *testing.T) {
	config := NewLlmsTxtConfig()
	assert.Equal(t, "docs", config.OutputDir)
	assert.Equal(t, ".", config.SourceDir)
	assert.Equal(t, "posts", config.PostsDir)
	assert.Equal(t, "llms.txt", config.OutputFile)
	assert.Empty(t, config.SiteConfig)
	assert.False(t, config.DryRun)

	assert.Equal(t, []string{"_quarto.yml", "_quarto.yaml"}, config.SiteConfigPaths())

	config.SiteConfig = "site.yml"
	assert.Equal(t, []string{"site.yml"}, config.SiteConfigPaths())
}

func TestLlmsTxtConfigValidate(t *testing.T) {
	abs := filepath.Join(string(filepath.Separator), "abs")

	tests := []struct {
		name     string
		modify   func(*LlmsTxtConfig)
		errCount int
	}{
		{"defaults are valid", func(*LlmsTxtConfig) {}, 0},
		{"absolute posts dir", func(c *LlmsTxtConfig) { c.PostsDir = abs }, 1},
		{"absolute output file", func(c *LlmsTxtConfig) { c.OutputFile = abs }, 1},
		{
			name: "everything empty",
			modify: func(c *LlmsTxtConfig) {
				c.OutputDir = ""
				c.SourceDir = ""
				c.PostsDir = ""
				c.OutputFile = ""
			},
			errCount: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewLlmsTxtConfig()
			tt.modify(config)

			err := config.Validate()
			if tt.errCount == 0 {
				assert.NoError(t, err)
				return
			}

			var merr *multierror.Error
			require.True(t, errors.As(err, &merr))
			assert.Len(t, merr.Errors, tt.errCount)
		})
	}
}

func TestRunLlmsTxt(t *testing.T) {
	ctx := context.Background()

	newConfig := func(root string) *LlmsTxtConfig {
		config := NewLlmsTxtConfig()
		config.SourceDir = root
		config.OutputDir = filepath.Join(root, "docs")
		return config
	}

	t.Run("generates the index", func(t *testing.T) {
		out := capturePresenter(t)
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "_quarto.yml"), "website:\n  title: Example\n  site-url: https://ex.com/\n")
		writeFile(t, filepath.Join(root, "posts", "2024-05-01-hello", "index.qmd"), "---\ntitle: Hello\n---\n")
		writeFile(t, filepath.Join(root, "docs", "posts", "2024-05-01-hello", "index.md"), "# Hello\n")

		config := newConfig(root)
		require.NoError(t, runLlmsTxt(ctx, config))

		data, err := os.ReadFile(filepath.Join(root, "docs", "llms.txt"))
		require.NoError(t, err)
		assert.Equal(t, "# Example\n\n## Posts\n\n- [Hello](https://ex.com/posts/2024-05-01-hello/index.md)\n", string(data))
		assert.Contains(t, out.String(), "Generated "+filepath.Join(root, "docs", "llms.txt")+" (1 posts)")
	})

	t.Run("missing posts directory is not an error", func(t *testing.T) {
		out := capturePresenter(t)
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))

		require.NoError(t, runLlmsTxt(ctx, newConfig(root)))
		assert.Contains(t, out.String(), "Posts output directory not found: "+filepath.Join(root, "docs", "posts"))
		assert.NoFileExists(t, filepath.Join(root, "docs", "llms.txt"))
	})

	t.Run("no rendered posts is not an error", func(t *testing.T) {
		out := capturePresenter(t)
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "posts", "empty"), 0o755))

		require.NoError(t, runLlmsTxt(ctx, newConfig(root)))
		assert.Contains(t, out.String(), "No rendered .md files found in posts directory")
		assert.NoFileExists(t, filepath.Join(root, "docs", "llms.txt"))
	})

	t.Run("dry run prints instead of writing", func(t *testing.T) {
		out := capturePresenter(t)
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "docs", "posts", "x", "index.md"), "# X\n")

		config := newConfig(root)
		config.DryRun = true
		require.NoError(t, runLlmsTxt(ctx, config))

		assert.Contains(t, out.String(), "# My Site")
		assert.Contains(t, out.String(), "- [X](/posts/x/index.md)")
		assert.NoFileExists(t, filepath.Join(root, "docs", "llms.txt"))
	})

	t.Run("invalid configuration", func(t *testing.T) {
		config := NewLlmsTxtConfig()
		config.PostsDir = ""
		err := runLlmsTxt(ctx, config)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid llms-txt configuration")
	})
}
