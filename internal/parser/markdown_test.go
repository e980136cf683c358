package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownParser_SectionsNest(t *testing.T) {
	input := `# Intake notes

Call received Tuesday.

## Caller story

My name is Dana Reyes and my landlord filed for eviction.

### Follow-up

She needs $1,800 before the hearing.

## Next steps

Refer to housing desk.
`
	tree, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "intake.md")
	require.NoError(t, err)
	assert.Equal(t, "intake", tree.Title)

	require.Len(t, tree.Children, 1)
	h1 := tree.Children[0]
	assert.Equal(t, "Intake notes", h1.Title)
	assert.Contains(t, h1.Text, "Call received Tuesday.")

	require.Len(t, h1.Children, 2)
	story := h1.Children[0]
	assert.Equal(t, "Caller story", story.Title)
	assert.Contains(t, story.Text, "Dana Reyes")
	require.Len(t, story.Children, 1)
	assert.Equal(t, "Follow-up", story.Children[0].Title)
	assert.Equal(t, "Next steps", h1.Children[1].Title)
}

func TestMarkdownParser_HeadinglessIsOneNode(t *testing.T) {
	input := "I lost my job in March.\n\nWe are behind on rent."
	tree, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "story.md")
	require.NoError(t, err)

	require.Len(t, tree.Children, 1)
	assert.Equal(t, "I lost my job in March.\n\nWe are behind on rent.", tree.Children[0].Text)
}

func TestMarkdownParser_InlineMarkupDropped(t *testing.T) {
	input := "My name is **Dana Reyes** and I need [help](https://example.org) with *rent*.\n"
	tree, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "story.md")
	require.NoError(t, err)
	assert.Equal(t, "My name is Dana Reyes and I need help with rent.", tree.Flatten())
}

func TestMarkdownParser_CodeBlockKept(t *testing.T) {
	input := "# Log\n\n```\n$2,000 quoted by the clinic\n```\n\nAfter the block.\n"
	tree, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "log.md")
	require.NoError(t, err)

	require.Len(t, tree.Children, 1)
	assert.Contains(t, tree.Children[0].Text, "$2,000 quoted by the clinic")
	assert.Contains(t, tree.Children[0].Text, "After the block.")
}

func TestMarkdownParser_Empty(t *testing.T) {
	tree, err := (&MarkdownParser{}).Parse(strings.NewReader(""), "empty.markdown")
	require.NoError(t, err)
	assert.Equal(t, "empty", tree.Title)
	assert.Empty(t, tree.Children)
	assert.Empty(t, tree.Flatten())
}
