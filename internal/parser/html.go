package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/storysignals/internal/doctree"
)

// HTMLParser handles saved web-form submissions and HTML transcripts.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := baseTitle(filename)
	if t := findElement(doc, "title"); t != nil {
		if s := textContent(t); s != "" {
			title = s
		}
	}

	b := doctree.NewBuilder()
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if depth := headingLevel(n.Data); depth > 0 {
				b.Heading(depth, textContent(n))
				return
			}
			switch n.Data {
			case "script", "style", "nav", "footer", "header", "form", "button", "noscript":
				return
			case "p", "li", "td", "blockquote", "textarea", "dd":
				b.Text(textContent(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findElement(doc, "body"); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return b.Tree(title), nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.TrimSpace(buf.String())
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
