package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/storysignals/internal/doctree"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	b := doctree.NewBuilder()
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			b.Heading(h.Level, string(h.Text(src)))
			continue
		}
		b.Text(markdownText(n, src))
	}
	return b.Tree(baseTitle(filename)), nil
}

// markdownText gets the text content of a goldmark AST node. Leaf blocks
// (code, raw HTML) contribute their source lines; everything else is
// rebuilt from its inline text so markup never reaches the narrative.
func markdownText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
			continue
		}
		if c.Type() == ast.TypeBlock && buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(markdownText(c, src))
	}
	return strings.TrimSpace(buf.String())
}
