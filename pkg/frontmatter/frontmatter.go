// Package frontmatter extracts the YAML metadata block that opens Quarto and
// Markdown sources, and the equivalent block stored in a notebook's first raw cell.
//
// None of the extractors fail. Unreadable files, malformed YAML and notebooks of
// the wrong shape all produce an empty Metadata, with the cause logged at debug.
package frontmatter

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jingkaihe/quarto-postrender/pkg/fsutil"
	"github.com/jingkaihe/quarto-postrender/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Fence delimits a front matter block.
const Fence = "---"

// NotebookExt is the extension of Jupyter notebook sources.
const NotebookExt = ".ipynb"

var blockPattern = regexp.MustCompile(`(?s)\A` + Fence + `\s*\n(.*?)\n` + Fence)

// Metadata holds the decoded front matter keys.
type Metadata map[string]any

// Has reports whether key is set to a non-null value.
func (m Metadata) Has(key string) bool {
	v, ok := m[key]
	return ok && v != nil
}

// String returns the value of key formatted as text. Scalars other than strings
// are formatted with their default representation, so `title: 2024` yields "2024".
func (m Metadata) String(key string) (string, bool) {
	if !m.Has(key) {
		return "", false
	}
	switch v := m[key].(type) {
	case string:
		return v, true
	case time.Time:
		return v.Format(time.RFC3339), true
	case map[string]any, []any:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

// Block returns the raw YAML between the opening and closing fences at the very
// start of text, or false when text does not open with a fence.
func Block(text string) (string, bool) {
	m := blockPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Strip returns text without its leading front matter block. The rest of the
// closing fence line is dropped too. Text without a closed block is returned
// unchanged.
func Strip(text string) string {
	loc := blockPattern.FindStringIndex(text)
	if loc == nil {
		return text
	}
	rest := text[loc[1]:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		return rest[i+1:]
	}
	return ""
}

// Extract decodes the front matter block at the start of text.
func Extract(ctx context.Context, text string) Metadata {
	block, ok := Block(text)
	if !ok {
		return Metadata{}
	}

	meta := Metadata{}
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		logger.G(ctx).WithError(err).Debug("ignoring malformed front matter")
		return Metadata{}
	}
	if meta == nil {
		return Metadata{}
	}
	return meta
}

type notebook struct {
	Cells []notebookCell `json:"cells"`
}

type notebookCell struct {
	CellType string          `json:"cell_type"`
	Source   json.RawMessage `json:"source"`
}

// source joins the cell source, which nbformat stores either as a list of lines
// or as a single string.
func (c notebookCell) source() (string, error) {
	if len(c.Source) == 0 {
		return "", nil
	}

	var lines []string
	if err := json.Unmarshal(c.Source, &lines); err == nil {
		return strings.Join(lines, ""), nil
	}

	var s string
	if err := json.Unmarshal(c.Source, &s); err != nil {
		return "", err
	}
	return s, nil
}

// FromNotebook decodes the front matter held in the first cell of a notebook,
// provided that cell is a raw cell.
func FromNotebook(ctx context.Context, data []byte) Metadata {
	log := logger.G(ctx)

	var nb notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		log.WithError(err).Debug("ignoring notebook that is not valid JSON")
		return Metadata{}
	}
	if len(nb.Cells) == 0 {
		log.Debug("notebook has no cells")
		return Metadata{}
	}

	first := nb.Cells[0]
	if first.CellType != "raw" {
		log.WithField("cell_type", first.CellType).Debug("first notebook cell is not a raw cell")
		return Metadata{}
	}

	src, err := first.source()
	if err != nil {
		log.WithError(err).Debug("ignoring raw cell with unexpected source")
		return Metadata{}
	}
	return Extract(ctx, src)
}

// FromFile reads path and extracts its front matter, treating .ipynb files as
// notebooks and everything else as text.
func FromFile(ctx context.Context, path string) Metadata {
	data, err := fsutil.ReadFile(path)
	if err != nil {
		logger.G(ctx).WithError(err).Debug("cannot read front matter source")
		return Metadata{}
	}

	if strings.EqualFold(filepath.Ext(path), NotebookExt) {
		return FromNotebook(ctx, data)
	}
	return Extract(ctx, string(data))
}
