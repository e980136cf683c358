package names

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	annotationRe = regexp.MustCompile(`\[[^\]\n]{0,60}\]|\*[^*\n]{1,60}\*|\((?i:[a-z ]{0,30}(?:laugh|laughs|laughing|cough|coughs|sigh|sighs|crying|cries|sobbing|pause|inaudible|crosstalk|unintelligible)[a-z ]{0,30})\)`)
	fillerRe     = regexp.MustCompile(`(?i)\b(?:u+m+|u+h+|e+r+m+|a+h+|h+m+)\b,?\s*`)
	capsRunRe    = regexp.MustCompile(`\b[A-Z]{2,}(?:[ \t]+[A-Z]{2,}){2,}\b`)
	stutterRe    = regexp.MustCompile(`\b([A-Za-z])(?:-[A-Za-z]){1,5}-([A-Za-z]{2,})`)
	spaceRunRe   = regexp.MustCompile(`[ \t]{2,}`)
)

// IsChaotic reports whether text shows heavy disfluency: filler runs,
// non-verbal annotations, shouted ALL-CAPS runs, stutters, or elongated
// letters.
func IsChaotic(text string) bool {
	if annotationRe.MatchString(text) || capsRunRe.MatchString(text) || stutterRe.MatchString(text) {
		return true
	}
	if len(fillerRe.FindAllStringIndex(text, 3)) >= 3 {
		return true
	}
	return hasElongation(text, 3)
}

// Clean normalizes disfluent speech. Well-formed text is returned unchanged.
func Clean(text string) string {
	text = squeezeRuns(text, 8, 3)
	if !IsChaotic(text) {
		return text
	}
	text = annotationRe.ReplaceAllString(text, " ")
	text = fillerRe.ReplaceAllString(text, "")
	text = stutterRe.ReplaceAllStringFunc(text, collapseStutter)
	text = collapseElongation(text)
	text = collapseRepeatedWords(text)
	text = capsRunRe.ReplaceAllStringFunc(text, titleCaseRun)
	text = spaceRunRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// squeezeRuns shortens any run of one rune longer than limit to keep runes.
// It runs unconditionally so pathological padding cannot push a name past
// the scan cap.
func squeezeRuns(text string, limit, keep int) string {
	if len(text) <= limit {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text))
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		j := i + size
		n := 1
		for j < len(text) {
			r2, s2 := utf8.DecodeRuneInString(text[j:])
			if r2 != r {
				break
			}
			j += s2
			n++
		}
		if n > limit {
			for range keep {
				sb.WriteRune(r)
			}
		} else {
			sb.WriteString(text[i:j])
		}
		i = j
	}
	return sb.String()
}

func hasElongation(text string, min int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if unicode.IsLetter(r) && unicode.ToLower(r) == unicode.ToLower(prev) {
			run++
			if run >= min {
				return true
			}
		} else {
			run = 1
		}
		prev = r
	}
	return false
}

// collapseElongation reduces any letter repeated three or more times to one.
func collapseElongation(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	runes := []rune(text)
	for i := 0; i < len(runes); {
		j := i + 1
		for j < len(runes) && unicode.IsLetter(runes[i]) && unicode.ToLower(runes[j]) == unicode.ToLower(runes[i]) {
			j++
		}
		if j-i >= 3 {
			sb.WriteRune(runes[i])
		} else {
			sb.WriteString(string(runes[i:j]))
		}
		i = j
	}
	return sb.String()
}

// collapseStutter turns "J-J-John" into "John" when the repeated letter
// matches the word's first letter.
func collapseStutter(m string) string {
	parts := strings.Split(m, "-")
	word := parts[len(parts)-1]
	first := strings.ToLower(parts[0])
	for _, p := range parts[:len(parts)-1] {
		if strings.ToLower(p) != first {
			return m
		}
	}
	if !strings.EqualFold(word[:1], first) {
		return m
	}
	return word
}

// collapseRepeatedWords drops immediate word repeats ("my my my name").
func collapseRepeatedWords(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return text
	}
	out := fields[:1]
	for _, f := range fields[1:] {
		prev := out[len(out)-1]
		if strings.EqualFold(strings.Trim(f, ",."), strings.Trim(prev, ",.")) && !strings.HasSuffix(prev, ".") {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

func titleCaseRun(run string) string {
	words := strings.Fields(run)
	for i, w := range words {
		if w == "I" {
			continue
		}
		words[i] = w[:1] + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
