package amount

import (
	"math"
	"strings"
)

var unitWords = map[string]float64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
}

var tensWords = map[string]float64{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

var scaleWords = map[string]float64{
	"hundred":  100,
	"thousand": 1_000,
	"grand":    1_000,
	"million":  1_000_000,
}

func isNumberWord(w string) bool {
	if _, ok := unitWords[w]; ok {
		return true
	}
	if _, ok := tensWords[w]; ok {
		return true
	}
	_, ok := scaleWords[w]
	return ok && w != "grand"
}

func isScaleWord(w string) bool {
	_, ok := scaleWords[w]
	return ok
}

// parseWords converts a run of number words into a value. Hyphenated
// compounds arrive already split ("forty-seven" is ["forty", "seven"]).
func parseWords(words []string) (float64, bool) {
	var total, current float64
	seen := false
	for _, w := range words {
		switch {
		case w == "and":
			continue
		case w == "a":
			current = 1
		case unitWords[w] > 0 || w == "zero":
			current += unitWords[w]
			seen = true
		case tensWords[w] > 0:
			current += tensWords[w]
			seen = true
		case w == "hundred":
			if current == 0 {
				current = 1
			}
			current *= 100
			seen = true
		case isScaleWord(w):
			if current == 0 {
				current = 1
			}
			total += current * scaleWords[w]
			current = 0
			seen = true
		default:
			return 0, false
		}
	}
	if !seen {
		return 0, false
	}
	return total + current, true
}

type wordToken struct {
	text       string
	start, end int
}

// tokenizeWords splits lower-case text into alphabetic words with offsets.
// Anything that is not a-z or an apostrophe separates words.
func tokenizeWords(lower string) []wordToken {
	var toks []wordToken
	start := -1
	for i := 0; i <= len(lower); i++ {
		isLetter := i < len(lower) && (lower[i] >= 'a' && lower[i] <= 'z' || lower[i] == '\'')
		if isLetter {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			toks = append(toks, wordToken{text: lower[start:i], start: start, end: i})
			start = -1
		}
	}
	return toks
}

// adjacent reports whether only spaces and hyphens separate two offsets.
func adjacent(lower string, from, to int) bool {
	if to < from {
		return false
	}
	for _, c := range lower[from:to] {
		if c != ' ' && c != '-' && c != '\t' {
			return false
		}
	}
	return true
}

type wordRun struct {
	words      []string
	start, end int
}

// findWordRuns locates maximal runs of spelled-out number words.
// "a" may open a run only when a scale word follows; "and" may join two
// number words.
func findWordRuns(lower string) []wordRun {
	toks := tokenizeWords(lower)
	var runs []wordRun
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		opens := isNumberWord(t.text) ||
			(t.text == "a" && i+1 < len(toks) && isScaleWord(toks[i+1].text) && adjacent(lower, t.end, toks[i+1].start))
		if !opens {
			continue
		}
		run := wordRun{words: []string{t.text}, start: t.start, end: t.end}
		j := i + 1
		for j < len(toks) {
			next := toks[j]
			if !adjacent(lower, toks[j-1].end, next.start) {
				break
			}
			if isNumberWord(next.text) || (next.text == "grand" && !isScaleWord(toks[j-1].text)) {
				run.words = append(run.words, next.text)
				run.end = next.end
				j++
				continue
			}
			if next.text == "and" && j+1 < len(toks) && isNumberWord(toks[j+1].text) &&
				adjacent(lower, next.end, toks[j+1].start) {
				run.words = append(run.words, next.text)
				j++
				continue
			}
			break
		}
		runs = append(runs, run)
		i = j - 1
	}
	return runs
}

var romanValues = map[byte]int{'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000}

// parseRoman parses an upper-case Roman numeral and rejects non-canonical
// spellings such as "IIII" or "VX".
func parseRoman(s string) (int, bool) {
	if s == "" || len(s) > 15 {
		return 0, false
	}
	total := 0
	for i := 0; i < len(s); i++ {
		v, ok := romanValues[s[i]]
		if !ok {
			return 0, false
		}
		if i+1 < len(s) && romanValues[s[i+1]] > v {
			total -= v
		} else {
			total += v
		}
	}
	if total <= 0 || toRoman(total) != s {
		return 0, false
	}
	return total, true
}

func toRoman(n int) string {
	vals := []int{1000, 900, 500, 400, 100, 90, 50, 40, 10, 9, 5, 4, 1}
	syms := []string{"M", "CM", "D", "CD", "C", "XC", "L", "XL", "X", "IX", "V", "IV", "I"}
	var sb strings.Builder
	for i, v := range vals {
		for n >= v {
			sb.WriteString(syms[i])
			n -= v
		}
	}
	return sb.String()
}

// decimalPlaces counts digits after the point in a formatted number.
func decimalPlaces(frac string) int {
	return len(frac)
}

// hasExcessPrecision reports whether v carries more than two decimals.
func hasExcessPrecision(v float64) bool {
	scaled := v * 100
	return math.Abs(scaled-math.Round(scaled)) > 1e-6
}
