package names

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/storysignals/internal/segment"
)

// contextRadius is the number of bytes inspected on each side of a candidate.
const contextRadius = 50

// Validation is the outcome of checking one candidate.
type Validation struct {
	Valid      bool
	Name       string
	Confidence float64
}

var (
	leadingTitleRe  = regexp.MustCompile(`^(?:` + titles + `)[ \t]+`)
	titleOnlyRe     = regexp.MustCompile(`^(?:` + titles + `)$`)
	trailingTitleRe = regexp.MustCompile(`(?:[ \t]*,)?[ \t]+(?:Jr|Sr|II|III|IV|MD|PhD|Esq|DDS|RN)\.?$`)

	ageAfterRe      = regexp.MustCompile(`^[\s,]*(?:years?|yrs?|months?|weeks?)[ \t]+old\b`)
	locationAfterRe = regexp.MustCompile(`^[\s,]*(?:city|county|state|street|st\.|avenue|ave\.|road|rd\.|hospital|university|college|school|church|apartments?|heights|valley|township)\b`)
	locationBefRe   = regexp.MustCompile(`\b(?:from|living in|live in|lives in|moved to|near|located in|based in)[ \t]*$`)
	descriptorBefRe = regexp.MustCompile(`\b(?:describe|described|describes|would call|could call|might call) (?:me|it|this|my situation|things)(?: as)?[ \t]*$`)
	correctionRe    = regexp.MustCompile(`\b(?:actually|i mean|wait,? no|no wait|sorry,? i meant|correction|scratch that|i meant)\b`)
)

var stopWords = toSet(
	"and", "but", "or", "so", "from", "in", "at", "on", "living", "who", "here",
	"today", "tonight", "tomorrow", "yesterday", "now", "speaking", "calling",
	"the", "a", "an", "of", "for", "to", "with", "because", "since", "this",
	"is", "am", "was", "my", "our", "we", "please", "thanks", "thank",
)

var urgencyWords = toSet(
	"critical", "emergency", "urgent", "desperate", "crisis", "dying",
	"asap", "immediately", "help", "homeless", "evicted", "hopeless",
)

var fillerWords = toSet(
	"um", "umm", "uh", "uhh", "er", "erm", "ah", "ahh", "hmm", "oh", "ok",
	"okay", "like", "yeah", "yes", "no", "well", "hey", "hi", "hello", "so",
)

// falsePositives are capitalized words that follow "I'm" or "call me" but
// are not names.
var falsePositives = toSet(
	"sorry", "just", "not", "going", "trying", "really", "very", "still",
	"currently", "writing", "reaching", "looking", "hoping", "asking",
	"unable", "back", "disabled", "pregnant", "sick", "single", "broke",
	"behind", "out", "able", "glad", "thankful", "grateful", "afraid",
	"scared", "tired", "unemployed", "married", "divorced", "widowed",
	"retired", "fine", "good", "new", "also", "only", "struggling",
	"here", "there", "sure", "mom", "dad", "mother", "father",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"god", "american", "english", "veteran", "nurse", "teacher", "student",
)

var numberWords = toSet(
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight",
	"nine", "ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen",
	"sixteen", "seventeen", "eighteen", "nineteen", "twenty", "thirty",
	"forty", "fifty", "sixty", "seventy", "eighty", "ninety", "hundred",
	"thousand", "million", "billion", "dozen",
)

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// trimAtStop cuts a candidate before the first stop word.
func trimAtStop(name string) string {
	tokens := strings.Fields(name)
	for i, tok := range tokens {
		if stopWords[strings.ToLower(strings.Trim(tok, ".,"))] {
			return strings.Join(tokens[:i], " ")
		}
	}
	return strings.Join(tokens, " ")
}

// StripHonorifics removes leading titles and trailing suffixes.
func StripHonorifics(name string) string {
	for {
		stripped := leadingTitleRe.ReplaceAllString(name, "")
		stripped = trailingTitleRe.ReplaceAllString(stripped, "")
		if stripped == name {
			return strings.TrimSpace(name)
		}
		name = stripped
	}
}

// rejectShape reports whether any token is a known non-name shape.
func rejectShape(name string) bool {
	tokens := strings.Fields(name)
	if len(tokens) == 0 || titleOnlyRe.MatchString(name) {
		return true
	}
	allNumbers := true
	for _, tok := range tokens {
		w := strings.ToLower(strings.Trim(tok, ".,'’"))
		if strings.ContainsFunc(tok, unicode.IsDigit) {
			return true
		}
		if urgencyWords[w] || fillerWords[w] {
			return true
		}
		if !numberWords[w] {
			allNumbers = false
		}
	}
	if allNumbers {
		return true
	}
	if len(tokens) == 1 {
		w := strings.ToLower(strings.Trim(tokens[0], ".,"))
		if falsePositives[w] || len([]rune(w)) < 2 {
			return true
		}
	}
	return falsePositives[strings.ToLower(strings.Trim(tokens[0], ".,"))]
}

// rejectContext applies the surrounding-text rules to text[start:end].
func rejectContext(lower string, start, end int) bool {
	before, after := segment.Window(lower, start, end, contextRadius)
	return ageAfterRe.MatchString(after) ||
		locationAfterRe.MatchString(after) ||
		locationBefRe.MatchString(before) ||
		descriptorBefRe.MatchString(before)
}

func hasCorrection(lower string, start, end int) bool {
	before, after := segment.Window(lower, start, end, contextRadius)
	return correctionRe.MatchString(before) || correctionRe.MatchString(after)
}

// properlyCapitalized reports whether each token is upper-then-lower. Letters
// after an apostrophe or hyphen may be upper case ("O'Brien", "Smith-Jones").
func properlyCapitalized(name string) bool {
	for _, tok := range strings.Fields(name) {
		runes := []rune(strings.TrimSuffix(tok, "."))
		if len(runes) == 0 || !unicode.IsUpper(runes[0]) {
			return false
		}
		for i := 1; i < len(runes); i++ {
			if !unicode.IsUpper(runes[i]) {
				continue
			}
			if p := runes[i-1]; p != '\'' && p != '’' && p != '-' {
				return false
			}
		}
	}
	return true
}

// Validate checks a candidate against the lower-cased narrative it was found
// in and scores it. lower must share byte offsets with the original text.
func Validate(c Candidate, lower string) Validation {
	name := trimAtStop(c.Text)
	end := c.Offset + len(name)
	if name == "" || rejectContext(lower, c.Offset, end) {
		return Validation{}
	}
	name = StripHonorifics(name)
	if rejectShape(name) {
		return Validation{}
	}
	return Validation{
		Valid:      true,
		Name:       name,
		Confidence: score(name, hasCorrection(lower, c.Offset, end)),
	}
}

func score(name string, corrected bool) float64 {
	conf := 0.7
	if n := len(strings.Fields(name)); n >= 2 && n <= 4 {
		conf += 0.25
	}
	if properlyCapitalized(name) {
		conf += 0.15
	}
	if corrected {
		conf -= 0.3
	}
	if l := len([]rune(name)); l < 3 || l > 50 {
		conf -= 0.3
	}
	return clamp01(conf)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
