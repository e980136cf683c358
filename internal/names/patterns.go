package names

import "regexp"

// PatternID identifies the introduction template that produced a candidate.
type PatternID string

const (
	PatternLegal        PatternID = "legal_undersigned"
	PatternTitled       PatternID = "titled_introduction"
	PatternSpeaking     PatternID = "this_is_speaking"
	PatternMyNameIs     PatternID = "my_name_is"
	PatternCodeSwitched PatternID = "code_switched"
	PatternSignature    PatternID = "signature"
	PatternCallMe       PatternID = "call_me"
	PatternIAm          PatternID = "i_am"
	PatternCapitalized  PatternID = "capitalized_word"
)

// namePart captures one to four capitalized tokens. Initials such as "J."
// are allowed after the first token.
const namePart = `([A-Z][A-Za-z'’\-]+(?:[ \t]+(?:[A-Z]\.|[A-Z][A-Za-z'’\-]+)){0,3})`

const titles = `(?:Dr|Mr|Mrs|Ms|Miss|Rev|Capt|Prof|Sgt|Lt|Pastor|Father|Sister|Reverend|Doctor|Captain)\.?`

// Strategy is one name-introduction template.
type Strategy struct {
	ID          PatternID
	Specificity int // tie-break weight; higher is more specific
	re          *regexp.Regexp
}

// Candidate is a raw match from one strategy.
type Candidate struct {
	Text    string
	Offset  int
	Pattern PatternID
}

// TryMatch returns every candidate the strategy finds in text.
func (s Strategy) TryMatch(text string) []Candidate {
	var out []Candidate
	for _, m := range s.re.FindAllStringSubmatchIndex(text, -1) {
		if m[2] < 0 {
			continue
		}
		out = append(out, Candidate{
			Text:    text[m[2]:m[3]],
			Offset:  m[2],
			Pattern: s.ID,
		})
	}
	return out
}

func newStrategy(id PatternID, specificity int, expr string) Strategy {
	return Strategy{ID: id, Specificity: specificity, re: regexp.MustCompile(expr)}
}

// DefaultStrategies is the ordered template library, most specific first.
var DefaultStrategies = []Strategy{
	newStrategy(PatternLegal, 5, `(?i:\bthe undersigned),?[ \t]+`+namePart),
	newStrategy(PatternTitled, 4, `(?i:\bmy name is|\bthis is|\bi am|\bi'm|\bi’m)[ \t]+(`+titles+`[ \t]+[A-Z][A-Za-z'’\-]+(?:[ \t]+[A-Z][A-Za-z'’\-]+){0,2})`),
	newStrategy(PatternSpeaking, 3, `(?i:\bthis is)[ \t]+`+namePart+`(?i:[ \t]+(?:speaking|calling|here))\b`),
	newStrategy(PatternMyNameIs, 2, `(?i:\bmy name is|\bmy name's|\bmy full name is|\bmy legal name is)[ \t]+`+namePart),
	newStrategy(PatternCodeSwitched, 2, `(?i:\bme llamo|\bmi nombre es|\bje m'appelle|\bje m’appelle|\bmein name ist|\bich heiße|\bmi chiamo|\bmeu nome é|\bme chamo|\bmeu nome e)[ \t]+`+namePart),
	newStrategy(PatternSignature, 1, `(?i:\bsincerely|\brespectfully|\bbest regards|\byours truly|\bwith gratitude),?[ \t]*\n?[ \t]*`+namePart),
	newStrategy(PatternCallMe, 1, `(?i:\bpeople call me|\bthey call me|\beveryone calls me|\byou can call me|\bcall me)[ \t]+`+namePart),
	newStrategy(PatternIAm, 1, `(?i:\bi'm|\bi’m|\bi am|\bim)[ \t]+`+namePart),
}
