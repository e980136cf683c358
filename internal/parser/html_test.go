package parser

import (
	"strings"
	"testing"
)

func TestHTMLParser_FormSubmission(t *testing.T) {
	input := `<html><head><title>Intake 17</title><style>p{}</style></head>
<body>
<nav>Home | About</nav>
<h1>Applicant story</h1>
<p>My name is Grace Park.</p>
<p>We were evicted last week.<br>I need $1,800.</p>
<h2>Notes</h2>
<ul><li>Two kids</li></ul>
<script>track()</script>
</body></html>`
	tree, err := (&HTMLParser{}).Parse(strings.NewReader(input), "intake.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "Intake 17" {
		t.Errorf("title = %q", tree.Title)
	}
	flat := tree.Flatten()
	for _, want := range []string{"My name is Grace Park.", "I need $1,800.", "Two kids"} {
		if !strings.Contains(flat, want) {
			t.Errorf("flattened text missing %q: %q", want, flat)
		}
	}
	for _, unwanted := range []string{"Home | About", "track()", "Applicant story"} {
		if strings.Contains(flat, unwanted) {
			t.Errorf("flattened text should not contain %q", unwanted)
		}
	}
}

func TestHeadingLevel(t *testing.T) {
	for tag, want := range map[string]int{"h1": 1, "h6": 6, "h7": 0, "p": 0, "hr": 0} {
		if got := headingLevel(tag); got != want {
			t.Errorf("headingLevel(%q) = %d, want %d", tag, got, want)
		}
	}
}
