package canonical

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		strip bool
		want  string
	}{
		{"verbatim when not stripping", "https://ex.com/a/index.html", false, "https://ex.com/a/index.html"},
		{"strips trailing index.html", "https://ex.com/a/index.html", true, "https://ex.com/a/"},
		{"strips site root index", "https://ex.com/index.html", true, "https://ex.com/"},
		{"other pages verbatim", "https://ex.com/about.html", true, "https://ex.com/about.html"},
		{"directory url verbatim", "https://ex.com/posts/", true, "https://ex.com/posts/"},
		{"only whole segment is stripped", "https://ex.com/notindex.html", true, "https://ex.com/notindex.html"},
		{"query string prevents stripping", "https://ex.com/a/index.html?v=2", true, "https://ex.com/a/index.html?v=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalURL(tt.raw, tt.strip))
		})
	}
}

func TestTargetPath(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"page", "https://ex.com/a/index.html", filepath.Join("docs", "a", "index.html")},
		{"root page", "https://ex.com/index.html", filepath.Join("docs", "index.html")},
		{"directory url", "https://ex.com/posts/", filepath.Join("docs", "posts", "index.html")},
		{"bare host", "https://ex.com", filepath.Join("docs", "index.html")},
		{"percent encoded", "https://ex.com/posts/my%20post/index.html", filepath.Join("docs", "posts", "my post", "index.html")},
		{"dot segments stay inside output", "https://ex.com/../../etc/passwd", filepath.Join("docs", "etc", "passwd")},
		{"query is ignored", "https://ex.com/a.html?x=1#top", filepath.Join("docs", "a.html")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TargetPath("docs", tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := TargetPath("docs", "https://ex.com/%zz")
	assert.Error(t, err)
}

func TestTag(t *testing.T) {
	assert.Equal(t, `<link rel="canonical" href="https://ex.com/a/" />`, Tag("https://ex.com/a/"))
	assert.Equal(t, `<link rel="canonical" href="https://ex.com/s?q=a&amp;p=2" />`, Tag("https://ex.com/s?q=a&p=2"))
}

func TestHasCanonical(t *testing.T) {
	assert.True(t, HasCanonical(`<head><link rel="canonical" href="https://ex.com/" /></head>`))
	assert.False(t, HasCanonical(`<head><link rel="stylesheet" href="s.css"></head>`))
	// The check is textual, a mention in the body counts too.
	assert.True(t, HasCanonical("<head></head><body><pre>&lt;x&gt; <link rel=\"canonical\"</pre></body>"))
}

func TestInject(t *testing.T) {
	tag := Tag("https://ex.com/a/")

	t.Run("inserts before first closing head only", func(t *testing.T) {
		content := "<html><head><title>A</title></head><body><template></head></template></body></html>"
		got, ok := Inject(content, tag)
		require.True(t, ok)
		assert.Equal(t,
			"<html><head><title>A</title>"+tag+"\n</head><body><template></head></template></body></html>",
			got)
		assert.Equal(t, 1, strings.Count(got, Marker))
	})

	t.Run("everything else is byte identical", func(t *testing.T) {
		content := "<!DOCTYPE html>\r\n<html>\r\n<head>\r\n<meta charset=\"utf-8\">\r\n</head>\r\n<body>ü</body>\r\n</html>\r\n"
		got, ok := Inject(content, tag)
		require.True(t, ok)

		idx := strings.Index(content, HeadClose)
		assert.Equal(t, content[:idx], got[:idx])
		assert.Equal(t, content[idx:], got[idx+len(tag)+1:])
	})

	t.Run("no closing head", func(t *testing.T) {
		content := "<html><body>fragment</body></html>"
		got, ok := Inject(content, tag)
		assert.False(t, ok)
		assert.Equal(t, content, got)
	})
}
