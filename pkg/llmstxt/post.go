package llmstxt

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// dateLayouts are tried in order against front matter date strings.
var dateLayouts = []string{
	"2006-1-2",
	"1/2/2006",
	"January 2, 2006",
	"2006-1-2T15:04:05",
	time.RFC3339,
}

var dirDatePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)

// Post is the metadata of one rendered post.
type Post struct {
	// Dir is the post directory name under the posts directory.
	Dir string
	// Path is the rendered index.md file.
	Path string
	// Source is the source document the metadata came from, if any.
	Source string

	Title       string
	Description string
	// RawDate is the date as written in front matter or inferred from Dir.
	RawDate string
	// Date is the parsed RawDate, zero when absent or unparseable.
	Date time.Time
	// URL links to the rendered markdown twin of the post.
	URL string
}

// HasDate reports whether the post has a usable date.
func (p Post) HasDate() bool {
	return !p.Date.IsZero()
}

// ParseDate converts a front matter date value. Strings are trimmed and matched
// against the known layouts, first match wins. It returns the zero time when
// nothing matches.
func ParseDate(v any) time.Time {
	switch d := v.(type) {
	case time.Time:
		return d
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// DateFromDir returns the YYYY-MM-DD prefix of a post directory name.
func DateFromDir(dir string) (string, bool) {
	m := dirDatePattern.FindStringSubmatch(dir)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SortPosts orders posts newest first. Posts without a date go last, and posts
// with equal dates keep their relative order.
func SortPosts(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i].Date, posts[j].Date
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.After(b)
	})
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
