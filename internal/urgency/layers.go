package urgency

import (
	"regexp"
	"unicode"
)

// weightedPhrase is one vocabulary tier inside a layer.
type weightedPhrase struct {
	re     *regexp.Regexp
	weight float64
	tag    string
}

func phrase(tag string, weight float64, expr string) weightedPhrase {
	return weightedPhrase{re: regexp.MustCompile(expr), weight: weight, tag: tag}
}

const (
	explicitWeight = 0.35
	explicitCap    = 0.6
	mediumWeight   = 0.1
	mediumCap      = 0.25
	crisisCap      = 0.5

	// manipulationFactor scales the keyword layers for shouted or
	// exclamation-stuffed text.
	manipulationFactor = 0.6
	capsRatioLimit     = 0.5
	capsMinLetters     = 20
	bangRunLimit       = 3
)

var (
	explicitRe = regexp.MustCompile(`\b(urgent|urgently|emergency|crisis|asap|immediately|immediate|desperate|desperately|life or death|life-threatening|critical)\b`)
	mediumRe   = regexp.MustCompile(`\b(soon|important|struggling|difficult|hardship|worried|stressed|overwhelmed|scared|quickly|pressing|running out)\b`)

	// Temporal tiers; the tightest matching deadline wins.
	temporalTiers = []weightedPhrase{
		// Bare "today"/"tonight" is as often a storytelling opener as a
		// deadline, so those words need deadline phrasing around them.
		phrase("deadline_within_a_day", 0.45, `\b((by|before|until|due|no later than) (the )?(today|tonight|end of (the )?day)|tomorrow|in (a|one) day|within 24 hours|(need|needs|must|have to|has to|due|evict\w*|shut ?off|cut off|disconnect\w*)\b[^.!?]{0,40}\b(today|tonight))\b`),
		phrase("deadline_immediate", 0.3, `\b(immediately|right now|asap|right away)\b`),
		phrase("deadline_this_week", 0.3, `\b(this week|by (monday|tuesday|wednesday|thursday|friday|saturday|sunday)|this (monday|tuesday|wednesday|thursday|friday|saturday|sunday|weekend)|within (a few|two|three|four|five|six|\d) days|in (a few|two|three|four|five|six|\d) days)\b`),
		phrase("deadline_this_month", 0.15, `\b(this month|next week|end of (the )?month|by the \d{1,2}(st|nd|rd|th)|within (two|three|2|3) weeks)\b`),
	}

	// Crisis tiers are summed (one hit per tier) up to crisisCap.
	crisisTiers = []weightedPhrase{
		phrase("crisis_loss_of_housing_or_utilities", 0.35, `\b(eviction|evicted|evicting|foreclosure|foreclosed|shut ?off|shut-off|disconnection notice|disconnect notice|repossess\w*|lose (my|our) (home|house|apartment))\b`),
		phrase("crisis_dated_obligation", 0.3, `\b(court date|court hearing|hearing date|deadline|final notice|due date|pay or quit|notice to vacate)\b`),
		phrase("crisis_arrears", 0.1, `\b(behind on (my |our |the )?(rent|bills|payments|mortgage)|past due|overdue|late fees?)\b`),
	}

	bangRunRe = regexp.MustCompile(`!{2,}`)
)

// LayerScores reports each layer's contribution after capping.
type LayerScores struct {
	Explicit float64 `json:"explicit"`
	Medium   float64 `json:"medium"`
	Temporal float64 `json:"temporal"`
	Crisis   float64 `json:"crisis"`
	Discount float64 `json:"discount"` // multiplier applied to keyword layers; 1 when none
}

// Contributing counts layers with a positive score.
func (s LayerScores) Contributing() int {
	n := 0
	for _, v := range []float64{s.Explicit, s.Medium, s.Temporal, s.Crisis} {
		if v > 0 {
			n++
		}
	}
	return n
}

func (s LayerScores) Sum() float64 {
	return s.Explicit + s.Medium + s.Temporal + s.Crisis
}

func keywordLayer(re *regexp.Regexp, lower string, weight, limit float64, tag string) (float64, []string) {
	matches := re.FindAllString(lower, -1)
	if len(matches) == 0 {
		return 0, nil
	}
	seen := map[string]bool{}
	var reasons []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			reasons = append(reasons, tag+":"+m)
		}
	}
	return min(float64(len(matches))*weight, limit), reasons
}

func temporalLayer(lower string) (float64, []string) {
	for _, tier := range temporalTiers {
		if tier.re.MatchString(lower) {
			return tier.weight, []string{tier.tag}
		}
	}
	return 0, nil
}

func crisisLayer(lower string) (float64, []string) {
	var score float64
	var reasons []string
	for _, tier := range crisisTiers {
		if tier.re.MatchString(lower) {
			score += tier.weight
			reasons = append(reasons, tier.tag)
		}
	}
	return min(score, crisisCap), reasons
}

// manipulated reports shouting (mostly upper-case letters) or repeated
// exclamation runs.
func manipulated(text string) bool {
	if len(bangRunRe.FindAllStringIndex(text, bangRunLimit)) >= bangRunLimit {
		return true
	}
	var letters, upper int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters >= capsMinLetters && float64(upper)/float64(letters) > capsRatioLimit
}
