// Package doctree is the format-neutral shape every intake parser produces.
package doctree

import "strings"

// DocTree is the root of a parsed transcript or intake document.
type DocTree struct {
	Title    string     // from metadata or filename
	Children []*DocNode // top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string // section heading (empty for leaf text)
	Text     string // may be empty for container nodes
	Page     int    // source page or cue index (0 if N/A)
	Children []*DocNode
}

// Flatten joins every node's text in document order, one paragraph per node.
// Headings are structure, not narrative, and are left out.
func (t *DocTree) Flatten() string {
	if t == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			if txt := strings.TrimSpace(n.Text); txt != "" {
				if sb.Len() > 0 {
					sb.WriteString("\n\n")
				}
				sb.WriteString(txt)
			}
			walk(n.Children)
		}
	}
	walk(t.Children)
	return sb.String()
}

// Builder assembles a tree from a flat stream of headings and text blocks,
// nesting each heading under the nearest shallower one.
type Builder struct {
	root  *DocNode
	stack []level
	text  strings.Builder
}

type level struct {
	node  *DocNode
	depth int
}

func NewBuilder() *Builder {
	root := &DocNode{}
	return &Builder{root: root, stack: []level{{node: root}}}
}

// Heading opens a section at depth (1 for h1).
func (b *Builder) Heading(depth int, title string) {
	b.flush()
	n := &DocNode{Title: title}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].depth >= depth {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, n)
	b.stack = append(b.stack, level{node: n, depth: depth})
}

// Text appends a paragraph to the open section.
func (b *Builder) Text(s string) {
	if s = strings.TrimSpace(s); s == "" {
		return
	}
	if b.text.Len() > 0 {
		b.text.WriteString("\n\n")
	}
	b.text.WriteString(s)
}

func (b *Builder) flush() {
	t := strings.TrimSpace(b.text.String())
	b.text.Reset()
	if t == "" {
		return
	}
	top := b.stack[len(b.stack)-1].node
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// Tree finishes the build. Text with no heading at all becomes a single
// child so the tree is never text-bearing at the root.
func (b *Builder) Tree(title string) *DocTree {
	b.flush()
	tree := &DocTree{Title: title, Children: b.root.Children}
	if b.root.Text != "" {
		lead := &DocNode{Text: b.root.Text}
		tree.Children = append([]*DocNode{lead}, tree.Children...)
	}
	return tree
}
