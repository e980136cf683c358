// Package defaults synthesizes safe fallback values (goal amount, title,
// summary) when a signal could not be extracted.
package defaults

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/dgallion1/storysignals/internal/normalize"
	"github.com/dgallion1/storysignals/internal/urgency"
)

// Category is the fundraiser category.
type Category string

const (
	Medical   Category = "medical"
	Housing   Category = "housing"
	Emergency Category = "emergency"
	Education Category = "education"
	Funeral   Category = "funeral"
	Legal     Category = "legal"
	Business  Category = "business"
	Family    Category = "family"
	Other     Category = "other"
)

const (
	FallbackGoal    = 2500.0
	FallbackTitle   = "Emergency assistance needed"
	FallbackSummary = "Help is needed to cover urgent expenses."

	MinGoal = 300.0
	MaxGoal = 50_000.0
	roundTo = 50.0
)

var baseAmounts = map[Category]float64{
	Medical:   5000,
	Housing:   2500,
	Emergency: 2000,
	Education: 3000,
	Funeral:   7500,
	Legal:     3500,
	Business:  5000,
	Family:    2000,
	Other:     2500,
}

var urgencyMultipliers = map[urgency.Level]float64{
	urgency.Critical: 1.5,
	urgency.High:     1.25,
	urgency.Medium:   1.0,
	urgency.Low:      0.8,
}

type contextMultiplier struct {
	tag    string
	factor float64
	re     *regexp.Regexp
}

var contextMultipliers = []contextMultiplier{
	{"children", 1.2, regexp.MustCompile(`\b(children|kids?|child|sons?|daughters?|baby|babies)\b`)},
	{"medical", 1.3, regexp.MustCompile(`\b(medical|surgery|surgeries|hospital|treatment|chemo\w*|operation)\b`)},
	{"housing", 1.1, regexp.MustCompile(`\b(rent|evict\w*|landlord|mortgage)\b`)},
	{"student", 0.9, regexp.MustCompile(`\b(student|tuition|college|school|semester)\b`)},
	{"business", 1.2, regexp.MustCompile(`\b(business|inventory|storefront|small shop)\b`)},
}

// ParseCategory normalizes a category label; unknown labels map to other.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := baseAmounts[c]; ok {
		return c
	}
	return Other
}

// Goal is a synthesized goal with the multipliers that produced it.
type Goal struct {
	Amount  float64  `json:"amount"`
	Base    float64  `json:"base"`
	Factors []string `json:"factors,omitempty"`
}

// GoalAmount derives a default goal from category, urgency and contextual
// cues in text. With no category, level, or text it returns FallbackGoal.
func GoalAmount(category string, level urgency.Level, text string) float64 {
	return SuggestGoal(category, level, text).Amount
}

// SuggestGoal is GoalAmount with its derivation.
func SuggestGoal(category string, level urgency.Level, text string) Goal {
	return SuggestGoalEntry(category, level, normalize.Of(text))
}

// SuggestGoalEntry is SuggestGoal over an already normalized narrative.
func SuggestGoalEntry(category string, level urgency.Level, in normalize.Entry) (g Goal) {
	defer func() {
		if r := recover(); r != nil {
			g = Goal{Amount: FallbackGoal, Base: FallbackGoal}
		}
	}()
	if strings.TrimSpace(category) == "" && !level.Valid() && in.Trimmed == "" {
		return Goal{Amount: FallbackGoal, Base: FallbackGoal}
	}

	base := baseAmounts[ParseCategory(category)]
	amount := base
	var factors []string
	if m, ok := urgencyMultipliers[level]; ok {
		amount *= m
		factors = append(factors, "urgency_"+strings.ToLower(string(level)))
	}
	for _, cm := range contextMultipliers {
		if cm.re.MatchString(in.Lower) {
			amount *= cm.factor
			factors = append(factors, cm.tag)
		}
	}
	return Goal{Amount: roundAndClamp(amount), Base: base, Factors: factors}
}

func roundAndClamp(v float64) float64 {
	v = math.Round(v/roundTo) * roundTo
	return math.Max(MinGoal, math.Min(MaxGoal, v))
}

var categoryPhrases = map[Category]string{
	Medical:   "medical expenses",
	Housing:   "housing costs",
	Emergency: "an emergency",
	Education: "education costs",
	Funeral:   "funeral costs",
	Legal:     "legal fees",
	Business:  "a small business",
	Family:    "family needs",
	Other:     "urgent expenses",
}

// Title templates the beneficiary name and category into a campaign title.
func Title(name, category string) string {
	name = strings.TrimSpace(name)
	if name == "" && strings.TrimSpace(category) == "" {
		return FallbackTitle
	}
	phrase := categoryPhrases[ParseCategory(category)]
	if name == "" {
		return "Help with " + phrase
	}
	return fmt.Sprintf("Help %s with %s", name, phrase)
}

// Summary templates a one-line summary from the signals that are known.
// A zero goal is omitted.
func Summary(name, category string, goal float64) string {
	name = strings.TrimSpace(name)
	if name == "" && strings.TrimSpace(category) == "" && goal <= 0 {
		return FallbackSummary
	}
	who := name
	if who == "" {
		who = "This fundraiser"
	}
	s := fmt.Sprintf("%s is seeking support for %s", who, categoryPhrases[ParseCategory(category)])
	if goal > 0 {
		s += fmt.Sprintf(", with a goal of $%s", formatDollars(goal))
	}
	return s + "."
}

// formatDollars renders whole dollars with thousands separators.
func formatDollars(v float64) string {
	digits := fmt.Sprintf("%.0f", v)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
