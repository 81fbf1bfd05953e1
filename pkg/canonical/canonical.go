// Package canonical injects <link rel="canonical"> tags into rendered HTML pages.
//
// Each sitemap URL is mapped onto a file under the output directory. Pages that
// already mention a canonical link anywhere in their text are left untouched,
// which makes repeated runs over the same tree a no-op.
package canonical

import (
	"html"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	// Marker is the substring whose presence marks a page as already tagged.
	Marker = `<link rel="canonical"`
	// HeadClose is the marker the new tag is inserted in front of.
	HeadClose = "</head>"
	// IndexFile is the document served for directory URLs.
	IndexFile = "index.html"
)

// CanonicalURL returns the href to publish for a sitemap URL. With stripIndex
// set, a trailing "index.html" path segment is removed so that
// https://site/posts/foo/index.html becomes https://site/posts/foo/.
func CanonicalURL(raw string, stripIndex bool) string {
	if stripIndex && strings.HasSuffix(raw, "/"+IndexFile) {
		return strings.TrimSuffix(raw, IndexFile)
	}
	return raw
}

// TargetPath resolves a URL onto the file it was rendered to under outputDir.
// The URL path is cleaned as an absolute path first, so it can never resolve
// outside outputDir. Directory URLs resolve to their index.html.
func TargetPath(outputDir, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(err, "invalid sitemap URL %q", raw)
	}

	p := path.Clean("/" + u.Path)
	if u.Path == "" || strings.HasSuffix(u.Path, "/") {
		p = path.Join(p, IndexFile)
	}

	return filepath.Join(outputDir, filepath.FromSlash(p)), nil
}

// Tag renders the canonical link element for href.
func Tag(href string) string {
	return `<link rel="canonical" href="` + html.EscapeString(href) + `" />`
}

// HasCanonical reports whether content already carries a canonical link. This is
// a plain substring search, so a match anywhere in the document counts.
func HasCanonical(content string) bool {
	return strings.Contains(content, Marker)
}

// Inject inserts tag on its own line immediately before the first closing head
// marker. It returns false and the unchanged content when there is no marker.
func Inject(content, tag string) (string, bool) {
	idx := strings.Index(content, HeadClose)
	if idx < 0 {
		return content, false
	}

	var b strings.Builder
	b.Grow(len(content) + len(tag) + 1)
	b.WriteString(content[:idx])
	b.WriteString(tag)
	b.WriteString("\n")
	b.WriteString(content[idx:])
	return b.String(), true
}
