package segment

import "strings"

// Span is a sentence-like clause within a narrative, with byte offsets.
type Span struct {
	Text  string
	Start int // inclusive byte offset
	End   int // exclusive byte offset
}

// Sentences splits text on terminal punctuation followed by whitespace and
// on line breaks. Offsets refer to the original text; Text is trimmed.
func Sentences(text string) []Span {
	var spans []Span
	start := 0

	emit := func(end int) {
		raw := text[start:end]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			lead := strings.Index(raw, trimmed)
			spans = append(spans, Span{
				Text:  trimmed,
				Start: start + lead,
				End:   start + lead + len(trimmed),
			})
		}
		start = end
	}

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			emit(i + 1)
		case '.', '!', '?', ';':
			if i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\t') {
				// Skip honorific abbreviations ("Dr. Smith") and decimals.
				if text[i] == '.' && isAbbreviation(text[:i]) {
					continue
				}
				emit(i + 1)
			}
		}
	}
	if start < len(text) {
		emit(len(text))
	}
	return spans
}

// Enclosing returns the span containing offset, or a zero Span when none does.
func Enclosing(spans []Span, offset int) Span {
	for _, s := range spans {
		if offset >= s.Start && offset < s.End {
			return s
		}
	}
	return Span{}
}

// Window returns up to radius bytes on each side of [start,end). Offsets
// outside text are clamped, so a stale candidate yields short windows
// rather than a panic.
func Window(text string, start, end, radius int) (before, after string) {
	start = min(max(start, 0), len(text))
	end = min(max(end, start), len(text))
	lo := max(start-radius, 0)
	hi := min(end+radius, len(text))
	return text[lo:start], text[end:hi]
}

var abbreviations = []string{"dr", "mr", "mrs", "ms", "rev", "capt", "sr", "jr", "st", "prof", "sgt", "lt"}

func isAbbreviation(prefix string) bool {
	idx := strings.LastIndexAny(prefix, " \t\n")
	word := strings.ToLower(prefix[idx+1:])
	for _, a := range abbreviations {
		if word == a {
			return true
		}
	}
	return false
}
