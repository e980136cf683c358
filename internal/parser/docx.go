package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/storysignals/internal/doctree"
)

// DOCXParser handles .docx files.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	// go-docx needs a ReaderAt and size, so spool to a temp file.
	tmp, err := spool(r, "storysignals-docx-*.docx")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	info, err := tmp.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat temp file: %w", err)
	}
	doc, err := docx.Parse(tmp, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	b := doctree.NewBuilder()
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if depth := docxHeadingLevel(para); depth > 0 && text != "" {
			b.Heading(depth, text)
		} else {
			b.Text(text)
		}
	}
	return b.Tree(baseTitle(filename)), nil
}

// docxHeadingLevel reads "Heading1" or "heading 1" style names.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") || len(style) != len("heading")+1 {
		return 0
	}
	if d := style[len(style)-1]; d >= '1' && d <= '6' {
		return int(d - '0')
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// spool copies r into a temp file rewound to the start. The caller closes
// and removes it.
func spool(r io.Reader, pattern string) (*os.File, error) {
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	fail := func(err error) (*os.File, error) {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		return fail(fmt.Errorf("write temp file: %w", err))
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fail(fmt.Errorf("seek temp file: %w", err))
	}
	return tmp, nil
}
