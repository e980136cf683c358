package parser

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/storysignals/internal/doctree"
)

// SubtitleParser handles WebVTT and SRT caption files produced by call
// recording and transcription tools. Each cue becomes one node with its cue
// number in Page; timing lines, indices and markup are dropped.
type SubtitleParser struct{}

var (
	cueIndexRe = regexp.MustCompile(`^\d+$`)
	voiceTagRe = regexp.MustCompile(`^<v(?:\.[^ >]*)?\s+([^>]+)>`)
	markupRe   = regexp.MustCompile(`</?[^>]+>`)
)

func (p *SubtitleParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	var (
		cue      strings.Builder
		cueNum   int
		skipping bool // inside a WEBVTT header, NOTE, STYLE or REGION block
	)
	flush := func() {
		if cue.Len() > 0 {
			cueNum++
			tree.Children = append(tree.Children, &doctree.DocNode{Text: cue.String(), Page: cueNum})
			cue.Reset()
		}
	}

	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if first {
			first = false
			if strings.HasPrefix(line, "WEBVTT") {
				skipping = true
				continue
			}
		}
		switch {
		case line == "":
			flush()
			skipping = false
			continue
		case skipping:
			continue
		case cue.Len() == 0 && (strings.HasPrefix(line, "NOTE") || line == "STYLE" || line == "REGION"):
			skipping = true
			continue
		case strings.Contains(line, "-->"):
			continue
		case cue.Len() == 0 && cueIndexRe.MatchString(line):
			continue
		}

		if m := voiceTagRe.FindStringSubmatch(line); m != nil {
			line = strings.TrimSpace(m[1]) + ": " + line[len(m[0]):]
		}
		line = strings.TrimSpace(markupRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		if cue.Len() > 0 {
			cue.WriteString(" ")
		}
		cue.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return tree, nil
}
