// Package names finds the narrator's (or beneficiary's) personal name in a
// free-form narrative.
package names

import (
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/storysignals/internal/normalize"
)

// DefaultMaxScan bounds how much of the narrative is searched. Names are
// introduced early, so a longer tail only adds cost.
const DefaultMaxScan = 5000

// Fallback tags.
const (
	FallbackCapitalized   = "name_capitalized_word" // last-resort scan
	FallbackInternalFault = "name_internal_fault"   // main path faulted
)

const fallbackConfidence = 0.1

// specificityBonus orders equally scored candidates by template specificity.
const specificityBonus = 0.02

// Result is the extracted name signal. An empty Value means no name.
type Result struct {
	Value      string    `json:"value,omitempty"`
	Confidence float64   `json:"confidence"`
	Pattern    PatternID `json:"pattern,omitempty"`
	Fallback   string    `json:"fallback,omitempty"`
}

type Options struct {
	MaxScan    int
	Strategies []Strategy
}

func DefaultOptions() Options {
	return Options{MaxScan: DefaultMaxScan, Strategies: DefaultStrategies}
}

// Engine runs the strategy library against narratives. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	opts Options
}

func New(opts Options) *Engine {
	if opts.MaxScan <= 0 {
		opts.MaxScan = DefaultMaxScan
	}
	if len(opts.Strategies) == 0 {
		opts.Strategies = DefaultStrategies
	}
	return &Engine{opts: opts}
}

var defaultEngine = New(DefaultOptions())

// Extract runs the default engine.
func Extract(text string) Result {
	return defaultEngine.Extract(text)
}

// Extract returns the highest scoring valid candidate, the capitalized-word
// fallback, or an empty result. It never panics.
func (e *Engine) Extract(text string) Result {
	return e.ExtractEntry(normalize.Of(text))
}

// ExtractEntry is Extract over an already normalized narrative.
func (e *Engine) ExtractEntry(in normalize.Entry) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = e.degraded(in.Trimmed)
		}
	}()

	view := e.prepare(in)
	if strings.TrimSpace(view.Trimmed) == "" {
		return Result{}
	}
	if found := e.rank(view); len(found) > 0 {
		return found[0].Result
	}
	return capitalizedFallback(view.Trimmed)
}

// prepare cleans disfluent speech and applies the scan cap. The caller's
// folded view is kept when cleaning changed nothing.
func (e *Engine) prepare(in normalize.Entry) normalize.Entry {
	if cleaned := Clean(in.Trimmed); cleaned != in.Trimmed {
		in = normalize.Of(cleaned)
	}
	return in.Prefix(e.opts.MaxScan)
}

type ranked struct {
	Result
	rank   float64
	offset int
}

// rank validates every strategy match, best first. Equal ranks go to the
// earlier mention, then to the earlier strategy.
func (e *Engine) rank(view normalize.Entry) []ranked {
	var out []ranked
	for _, s := range e.opts.Strategies {
		for _, c := range s.TryMatch(view.Trimmed) {
			v := Validate(c, view.Lower)
			if !v.Valid {
				continue
			}
			out = append(out, ranked{
				Result: Result{Value: v.Name, Confidence: v.Confidence, Pattern: s.ID},
				rank:   v.Confidence + specificityBonus*float64(s.Specificity),
				offset: c.Offset,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].rank != out[j].rank {
			return out[i].rank > out[j].rank
		}
		return out[i].offset < out[j].offset
	})
	return out
}

// degraded is the single recovery attempt after a fault in the main path.
func (e *Engine) degraded(text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Fallback: FallbackInternalFault}
		}
	}()
	if len(text) > e.opts.MaxScan {
		text = truncate(text, e.opts.MaxScan)
	}
	res = capitalizedFallback(text)
	res.Fallback = FallbackInternalFault
	return res
}

var capitalizedRe = regexp.MustCompile(`\b[A-Z][a-z'’]+(?:-[A-Z][a-z]+)?\b`)

// sentenceStarters are capitalized words that begin sentences far more often
// than they name anyone.
var sentenceStarters = toSet(
	"i", "my", "me", "we", "our", "us", "he", "she", "his", "her", "they",
	"their", "them", "it", "its", "you", "your", "this", "that", "these",
	"those", "there", "then", "the", "a", "an", "and", "but", "if", "when",
	"after", "before", "because", "since", "please", "dear", "hello", "hi",
	"hey", "thank", "thanks", "any", "anything", "every", "all", "some",
	"what", "who", "how", "why", "where", "last", "next", "now", "today",
	"tomorrow", "tonight", "yesterday", "recently", "unfortunately",
	"hopefully", "sincerely", "regards", "god", "im", "ive", "id", "we're",
	"i'm", "i've", "i'd", "it's", "that's", "there's", "can", "could",
	"would", "should", "will", "as", "so", "also", "even", "just", "not",
)

func capitalizedFallback(text string) Result {
	for _, m := range capitalizedRe.FindAllString(text, -1) {
		w := strings.ToLower(m)
		if sentenceStarters[w] || stopWords[w] || rejectShape(m) {
			continue
		}
		return Result{Value: m, Confidence: fallbackConfidence, Pattern: PatternCapitalized, Fallback: FallbackCapitalized}
	}
	return Result{}
}

// truncate cuts text to at most n bytes without splitting a UTF-8 sequence.
func truncate(text string, n int) string {
	for n > 0 && n < len(text) && text[n]&0xC0 == 0x80 {
		n--
	}
	return text[:n]
}

// Candidates returns every valid candidate with its score, best first.
// Its first element is what Extract returns. It is used by diagnostics and
// tests.
func (e *Engine) Candidates(text string) []Result {
	view := e.prepare(normalize.Of(text))
	out := e.rank(view)
	results := make([]Result, len(out))
	for i, o := range out {
		results[i] = o.Result
	}
	return results
}
