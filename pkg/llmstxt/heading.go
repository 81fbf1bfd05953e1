package llmstxt

import (
	"strings"

	"github.com/jingkaihe/quarto-postrender/pkg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// firstHeading returns the text of the first level-one heading in a markdown
// document. A closed leading YAML block is skipped and headings inside code
// blocks do not count.
func firstHeading(data []byte) (string, bool) {
	src := []byte(frontmatter.Strip(string(data)))
	doc := markdown.Parser().Parse(text.NewReader(src), parser.WithContext(parser.NewContext()))

	var title string
	found := false
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 1 {
			return ast.WalkContinue, nil
		}
		title = strings.TrimSpace(inlineText(h, src))
		found = true
		return ast.WalkStop, nil
	})

	return title, found && title != ""
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
