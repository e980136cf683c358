// Package relationship decides who a narrative's fundraiser benefits.
package relationship

import (
	"regexp"

	"github.com/dgallion1/storysignals/internal/normalize"
)

// Relationship is the beneficiary category. It carries no confidence.
type Relationship string

const (
	Myself       Relationship = "myself"
	FamilyMember Relationship = "family_member"
	Other        Relationship = "other"
)

func (r Relationship) Valid() bool {
	return r == Myself || r == FamilyMember || r == Other
}

// rule is one ordered heuristic; the first match decides.
type rule struct {
	name   string
	result Relationship
	re     *regexp.Regexp
}

const family = `(wife|husband|spouse|partner|son|daughter|child|children|kids?|baby|babies|mom|mother|dad|father|parents?|brother|sister|siblings?|grandma|grandmother|grandpa|grandfather|grandparents?|grandson|granddaughter|grandchildren|aunt|uncle|niece|nephew|cousin|fianc[eé]e?|stepson|stepdaughter|stepmom|stepdad|in-laws?|mother-in-law|father-in-law)`

var rules = []rule{
	{
		name:   "third_party_fundraising",
		result: Other,
		re:     regexp.MustCompile(`\b(raising (money|funds)|fundraising|fundraiser|collecting (money|donations)|asking for help|on behalf of) (for|to help) (my |our |a |the )?(friend|neighbor|neighbour|coworker|co-worker|colleague|classmate|teammate|boss|roommate|community|church|pastor|student|client|patient|teacher|coach)s?\b|\bon behalf of (my |our |a )?(friend|neighbor|neighbour|coworker|colleague|community|church)`),
	},
	{
		name:   "animal",
		result: Other,
		re:     regexp.MustCompile(`\b(dogs?|pupp(y|ies)|cats?|kittens?|pets?|horses?|rabbits?|parrots?|vet|veterinary|veterinarian|animal shelter|rescue animals?)\b`),
	},
	{
		name:   "family_relation",
		result: FamilyMember,
		re:     regexp.MustCompile(`\b` + family + `\b`),
	},
	{
		name:   "self_reference",
		result: Myself,
		re:     regexp.MustCompile(`\b(for myself|for me|my own|i need|i am|i'm|myself)\b`),
	},
}

// Classify applies the ordered heuristics. Text with no match, including
// empty text, benefits the narrator.
func Classify(text string) Relationship {
	r, _ := ClassifyWithRule(text)
	return r
}

// ClassifyWithRule also reports which heuristic decided ("default" when
// none matched).
func ClassifyWithRule(text string) (Relationship, string) {
	return ClassifyEntry(normalize.Of(text))
}

// ClassifyEntry is ClassifyWithRule over an already normalized narrative.
func ClassifyEntry(in normalize.Entry) (res Relationship, ruleName string) {
	defer func() {
		if p := recover(); p != nil {
			res, ruleName = Myself, "default"
		}
	}()
	for _, rl := range rules {
		if rl.re.MatchString(in.Lower) {
			return rl.result, rl.name
		}
	}
	return Myself, "default"
}
