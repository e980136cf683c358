package amount

import (
	"regexp"
	"strings"

	"github.com/dgallion1/storysignals/internal/segment"
)

// Context window sizes in bytes.
const (
	sentenceRadius = 60
	clauseRadius   = 40
)

var (
	needBeforeRe = regexp.MustCompile(`\b(need|needs|needed|raise|raising|goal of|goal is|asking for|ask for|looking for|hoping for|hoping to get|trying to get|trying to raise|require|requires|short|cover|costs?|total of)\b`)
	needAfterRe  = regexp.MustCompile(`^[^.!?]{0,25}\b(is what i need|is all i need|is my goal|is the goal|would (really )?help|would cover|to cover|to get by)\b`)
	goalWordRe   = regexp.MustCompile(`\b(goal|target|fundrais\w*|campaign)\b`)

	currencyAfterRe  = regexp.MustCompile(`^\s*(dollars?|bucks|usd|grand)\b`)
	currencyWindowRe = regexp.MustCompile(`\b(dollars?|funds?|funding|money|usd|bucks)\b`)

	negationRe = regexp.MustCompile(`\b(don'?t|do not|doesn'?t|does not|didn'?t|won'?t|not asking|unlike|oh sure|yeah right|as if|no longer need)\b`)

	rejectAfterRe  = regexp.MustCompile(`^\s*(/\s*(hr|hour|day|week|wk|month|mo|year|yr)\b|(an|a|per|each|every)\s+(hour|hr|day|night|shift|week|month|year|yr)\b|(hourly|weekly|annually|yearly|a year|years? old|yrs? old|years? of age|months? old))`)
	rejectBeforeRe = regexp.MustCompile(`\b(salary|wages?|paycheck|income|age|aged|pays me|paid me|rate of)\s*(of|is|was)?\s*(about|around)?\s*$`)

	pastRe         = regexp.MustCompile(`\b(used to (make|earn|have|get)|last (year|month|week)|made|earned|was making|were making|spent|lost|paid)\b`)
	debtBeforeRe   = regexp.MustCompile(`\b(i owe|we owe|owe|owes|owed|owing|in debt|debt of|behind by|still owe)\b`)
	debtAfterRe    = regexp.MustCompile(`^\s*(in debt|of debt|in (medical |credit card |back )?(debt|bills) i owe|that i owe|i owe|owed)\b`)
	hypotheticalRe = regexp.MustCompile(`\b(if i had|if i (could )?get|if i won|if we had|imagine|wish i had|would have)\b`)

	rangeSepRe    = regexp.MustCompile(`^\s*(and|to|through|-|–|—)\s*\$?\s*$`)
	rangeOpenerRe = regexp.MustCompile(`\b(between|from|somewhere between|anywhere from)\s*\$?\s*$`)

	clauseSeparators = []string{", ", " but ", " and ", " though ", " although ", " while ", " whereas ", " however "}
)

// amountContext is the classified surroundings of one numeral match.
type amountContext struct {
	need         bool
	goal         bool
	currency     bool
	negated      bool
	rejected     bool
	past         bool
	debt         bool
	hypothetical bool
}

func (c amountContext) framed() bool {
	return c.past || c.debt || c.hypothetical
}

// classify inspects the text around lower[start:end]. hasSymbol marks a
// currency symbol or currency suffix inside the match itself.
func classify(lower string, spans []segment.Span, start, end int, hasSymbol bool) amountContext {
	sent := segment.Enclosing(spans, start)
	sStart, sEnd := sent.Start, sent.End
	if sent.Text == "" {
		sStart, sEnd = 0, len(lower)
	}
	if end > sEnd {
		sEnd = end
	}

	before := lower[maxInt(sStart, start-sentenceRadius):start]
	after := lower[end:minInt(sEnd, end+sentenceRadius)]

	cStart, cEnd := clauseBounds(lower, sStart, sEnd, start, end)
	clauseBefore := lower[maxInt(cStart, start-clauseRadius):start]
	clauseAfter := lower[end:minInt(cEnd, end+clauseRadius)]

	var c amountContext
	c.rejected = rejectAfterRe.MatchString(after) || rejectBeforeRe.MatchString(before)
	c.need = needBeforeRe.MatchString(before) || needAfterRe.MatchString(after)
	c.goal = goalWordRe.MatchString(before) || goalWordRe.MatchString(after)
	c.currency = hasSymbol || currencyAfterRe.MatchString(after) ||
		currencyWindowRe.MatchString(before) || currencyWindowRe.MatchString(after)
	c.negated = negationRe.MatchString(clauseBefore)
	c.past = governs(pastRe, clauseBefore)
	c.debt = governs(debtBeforeRe, clauseBefore) || debtAfterRe.MatchString(clauseAfter)
	c.hypothetical = governs(hypotheticalRe, clauseBefore)
	return c
}

// governs reports whether the last framing phrase in before still applies
// to the number that follows it. A need-verb between the two takes over:
// in "i lost my job so i need $1,500" the ask is present tense.
func governs(framing *regexp.Regexp, before string) bool {
	locs := framing.FindAllStringIndex(before, -1)
	if len(locs) == 0 {
		return false
	}
	return !needBeforeRe.MatchString(before[locs[len(locs)-1][1]:])
}

// clauseBounds narrows a sentence to the clause around [start,end).
func clauseBounds(lower string, sStart, sEnd, start, end int) (int, int) {
	cStart, cEnd := sStart, sEnd
	head := lower[sStart:start]
	for _, sep := range clauseSeparators {
		if i := strings.LastIndex(head, sep); i >= 0 && sStart+i+len(sep) > cStart {
			cStart = sStart + i + len(sep)
		}
	}
	tail := lower[end:sEnd]
	for _, sep := range clauseSeparators {
		if i := strings.Index(tail, sep); i >= 0 && end+i < cEnd {
			cEnd = end + i
		}
	}
	return cStart, cEnd
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
