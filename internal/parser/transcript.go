package parser

import (
	"regexp"
	"strings"

	"github.com/dgallion1/storysignals/internal/doctree"
)

var (
	leadingStampRe = regexp.MustCompile(`^[\[(]?\d{1,2}:\d{2}(?::\d{2})?(?:[.,]\d{1,3})?[\])]?\s*(?:-\s*)?`)
	inlineStampRe  = regexp.MustCompile(`\s*[\[(]\d{1,2}:\d{2}(?::\d{2})?(?:[.,]\d{1,3})?[\])]\s*`)
	speakerLabelRe = regexp.MustCompile(`^([A-Za-z][\w'.-]*(?: [A-Za-z0-9][\w'.-]*){0,2})\s*:\s+`)
)

// interviewerRoles are speaker labels whose lines are questions or prompts
// rather than the narrator's account.
var interviewerRoles = map[string]bool{
	"interviewer": true, "agent": true, "operator": true, "volunteer": true,
	"staff": true, "caseworker": true, "case worker": true, "counselor": true,
	"host": true, "moderator": true, "q": true, "intake": true,
}

// narratorRoles are generic labels for the narrator; the label is dropped
// and the line kept.
var narratorRoles = map[string]bool{
	"caller": true, "client": true, "applicant": true, "narrator": true,
	"respondent": true, "a": true, "me": true, "speaker": true,
	"speaker 1": true, "speaker 2": true, "guest": true,
}

// Narrative flattens tree into the text handed to extraction: timestamps
// are removed, interviewer lines are dropped, and generic narrator labels
// are stripped. Other labels are kept since they are often the narrator's
// own name.
func Narrative(tree *doctree.DocTree) string {
	lines := strings.Split(tree.Flatten(), "\n")
	out := lines[:0]
	for _, line := range lines {
		line = leadingStampRe.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.TrimSpace(inlineStampRe.ReplaceAllString(line, " "))
		if m := speakerLabelRe.FindStringSubmatch(line); m != nil {
			role := strings.ToLower(m[1])
			if interviewerRoles[role] {
				continue
			}
			if narratorRoles[role] {
				line = line[len(m[0]):]
			}
		}
		out = append(out, line)
	}
	return strings.TrimSpace(collapseBlankLines(strings.Join(out, "\n")))
}

func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}
