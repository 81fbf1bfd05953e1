// Package sitemap reads the URL list out of a sitemap document.
//
// Every <loc> element is collected in document order regardless of nesting,
// so both <urlset> sitemaps and <sitemapindex> documents yield their locations.
// Entries are neither deduplicated nor validated beyond whitespace trimming.
package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/jingkaihe/quarto-postrender/pkg/logger"
	"github.com/pkg/errors"
)

const locElement = "loc"

// Entry is a single URL listed in a sitemap.
type Entry string

// String returns the URL.
func (e Entry) String() string {
	return string(e)
}

// ParseError reports a malformed sitemap document.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return "malformed sitemap: " + e.Err.Error()
	}
	return "malformed sitemap " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseFile parses the sitemap stored at path.
func ParseFile(ctx context.Context, path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sitemap %s", path)
	}
	defer f.Close()

	entries, err := Parse(ctx, f)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, err
	}
	return entries, nil
}

// Parse reads the whole document from r and returns its locations in order.
// The document is fully validated before anything is returned, so a malformed
// sitemap never yields a partial list.
func Parse(ctx context.Context, r io.Reader) ([]Entry, error) {
	dec := xml.NewDecoder(r)
	// Sitemaps served with a non-UTF-8 declaration are passed through as-is.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var (
		entries []Entry
		inLoc   bool
		text    strings.Builder
		depth   int
		sawRoot bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 && sawRoot {
				return nil, &ParseError{Err: errors.Errorf("unexpected element <%s> after the root element", t.Name.Local)}
			}
			sawRoot = true
			depth++
			if t.Name.Local == locElement {
				inLoc = true
				text.Reset()
			}
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, &ParseError{Err: errors.New("text outside the root element")}
			}
			if inLoc {
				text.Write(t)
			}
		case xml.EndElement:
			depth--
			if t.Name.Local != locElement {
				continue
			}
			inLoc = false
			loc := strings.TrimSpace(text.String())
			if loc == "" {
				logger.G(ctx).Warn("sitemap contains an empty <loc> element, skipping")
				continue
			}
			entries = append(entries, Entry(loc))
		}
	}

	if !sawRoot {
		return nil, &ParseError{Err: errors.New("document has no root element")}
	}

	return entries, nil
}
