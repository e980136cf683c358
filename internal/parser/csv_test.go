package parser

import (
	"strings"
	"testing"
)

func TestCSVParser_HeaderValueLines(t *testing.T) {
	input := "name,story,goal\nRosa Diaz,\"My car broke down, I need it for work\",800\n,,\nSam,needs rent,\n"
	tree, err := (&CSVParser{}).Parse(strings.NewReader(input), "intake.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "intake" {
		t.Errorf("title = %q", tree.Title)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 rows (blank row skipped), got %d", len(tree.Children))
	}
	want := "name: Rosa Diaz\nstory: My car broke down, I need it for work\ngoal: 800"
	if tree.Children[0].Text != want {
		t.Errorf("row 1 = %q, want %q", tree.Children[0].Text, want)
	}
	if tree.Children[1].Text != "name: Sam\nstory: needs rent" {
		t.Errorf("row 2 = %q", tree.Children[1].Text)
	}
	if tree.Children[1].Page != 4 {
		t.Errorf("row 2 page = %d, want 4", tree.Children[1].Page)
	}
}

func TestCSVParser_Empty(t *testing.T) {
	tree, err := (&CSVParser{}).Parse(strings.NewReader(""), "empty.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 0 {
		t.Errorf("expected no children, got %d", len(tree.Children))
	}
}
