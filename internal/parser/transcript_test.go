package parser

import (
	"testing"

	"github.com/dgallion1/storysignals/internal/doctree"
)

func TestNarrative(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "I need help with rent.", "I need help with rent."},
		{"interviewer dropped", "Interviewer: What is your name?\nCaller: My name is Ana.", "My name is Ana."},
		{"q and a", "Q: How much do you need?\nA: About $2,000.", "About $2,000."},
		{"leading stamp", "[00:01:23] I lost my job.\n00:02 - We are behind on rent.", "I lost my job.\nWe are behind on rent."},
		{"inline stamp", "I need it by Friday (00:14:02) please", "I need it by Friday please"},
		{"clock time kept", "Court is at 9:30 tomorrow.", "Court is at 9:30 tomorrow."},
		{"name label kept", "Maria Lopez: I need $500.", "Maria Lopez: I need $500."},
		{"speaker n", "Speaker 1: hello\nSpeaker 2: my son is sick", "hello\nmy son is sick"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := &doctree.DocTree{Children: []*doctree.DocNode{{Text: tt.in}}}
			if got := Narrative(tree); got != tt.want {
				t.Errorf("Narrative() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNarrative_ParagraphsCollapse(t *testing.T) {
	tree := &doctree.DocTree{Children: []*doctree.DocNode{
		{Text: "Agent: Go ahead."},
		{Text: "Caller: I'm Keisha."},
		{Text: "Agent: And the amount?"},
		{Text: "Caller: $1,200."},
	}}
	want := "I'm Keisha.\n\n$1,200."
	if got := Narrative(tree); got != want {
		t.Errorf("Narrative() = %q, want %q", got, want)
	}
}
