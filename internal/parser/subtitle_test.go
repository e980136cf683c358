package parser

import (
	"strings"
	"testing"
)

func TestSubtitleParser_VTT(t *testing.T) {
	input := "WEBVTT - call 42\n\nNOTE recorded on the intake line\nsecond note line\n\n1\n00:00:01.000 --> 00:00:04.000\n<v Agent>Thanks for calling, can I get your name?</v>\n\n2\n00:00:04.500 --> 00:00:09.000\n<v Caller>My name is Dana Whitfield.\n<i>I need $900</i> for rent.\n"
	tree, err := (&SubtitleParser{}).Parse(strings.NewReader(input), "call.vtt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "call" {
		t.Errorf("title = %q", tree.Title)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(tree.Children))
	}
	if got := tree.Children[0].Text; got != "Agent: Thanks for calling, can I get your name?" {
		t.Errorf("cue 1 = %q", got)
	}
	if got := tree.Children[1].Text; got != "Caller: My name is Dana Whitfield. I need $900 for rent." {
		t.Errorf("cue 2 = %q", got)
	}
	if tree.Children[1].Page != 2 {
		t.Errorf("cue 2 page = %d", tree.Children[1].Page)
	}
}

func TestSubtitleParser_SRT(t *testing.T) {
	input := "1\r\n00:00:00,000 --> 00:00:02,500\r\nHi, I'm Luis.\r\n\r\n2\r\n00:00:02,500 --> 00:00:05,000\r\nMy mother needs surgery.\r\n"
	tree, err := (&SubtitleParser{}).Parse(strings.NewReader(input), "call.srt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Hi, I'm Luis.", "My mother needs surgery."}
	if len(tree.Children) != len(want) {
		t.Fatalf("expected %d cues, got %d", len(want), len(tree.Children))
	}
	for i, w := range want {
		if tree.Children[i].Text != w {
			t.Errorf("cue %d = %q, want %q", i, tree.Children[i].Text, w)
		}
	}
}
