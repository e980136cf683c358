// Package urgency classifies how time-critical a narrative is from layered
// keyword, deadline and crisis signals.
package urgency

import (
	"strings"

	"github.com/dgallion1/storysignals/internal/normalize"
)

// DefaultMaxScan caps how much text is scored.
const DefaultMaxScan = 20_000

const (
	ReasonFailed    = "extraction_failed"
	ReasonNoText    = "no_text"
	ReasonNoSignals = "no_urgency_signals"
	ReasonDiscount  = "manipulation_discount"
)

// Result is the urgency signal.
type Result struct {
	Level       Level       `json:"level"`
	Score       float64     `json:"score"`
	Confidence  float64     `json:"confidence"`
	Reasons     []string    `json:"reasons"`
	LayerScores LayerScores `json:"layer_scores"`
}

type Options struct {
	Thresholds Thresholds
	MaxScan    int
}

func DefaultOptions() Options {
	return Options{Thresholds: DefaultThresholds(), MaxScan: DefaultMaxScan}
}

// Engine scores narratives. It is immutable and safe for concurrent use.
type Engine struct {
	opts Options
}

// New returns an engine. Invalid thresholds fall back to the defaults.
func New(opts Options) *Engine {
	if opts.Thresholds.Validate() != nil {
		opts.Thresholds = DefaultThresholds()
	}
	if opts.MaxScan <= 0 {
		opts.MaxScan = DefaultMaxScan
	}
	return &Engine{opts: opts}
}

var defaultEngine = New(DefaultOptions())

// Assess scores text with the default engine.
func Assess(text string) Result {
	return defaultEngine.Assess(text)
}

func (e *Engine) Thresholds() Thresholds { return e.opts.Thresholds }

// Failed is the result reported when assessment faults.
func Failed() Result {
	return Result{Level: Low, Reasons: []string{ReasonFailed}, LayerScores: LayerScores{Discount: 1}}
}

// Assess scores text. It never panics; a fault yields Failed().
func (e *Engine) Assess(text string) Result {
	return e.AssessEntry(normalize.Of(text))
}

// AssessEntry is Assess over an already normalized narrative.
func (e *Engine) AssessEntry(in normalize.Entry) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failed()
		}
	}()

	in = in.Prefix(e.opts.MaxScan)
	if strings.TrimSpace(in.Trimmed) == "" {
		return Result{Level: Low, Reasons: []string{ReasonNoText}, LayerScores: LayerScores{Discount: 1}}
	}
	text, lower := in.Trimmed, in.Lower

	var (
		layers  LayerScores
		reasons []string
		r       []string
	)
	layers.Explicit, r = keywordLayer(explicitRe, lower, explicitWeight, explicitCap, "explicit")
	reasons = append(reasons, r...)
	layers.Medium, r = keywordLayer(mediumRe, lower, mediumWeight, mediumCap, "medium")
	reasons = append(reasons, r...)
	layers.Temporal, r = temporalLayer(lower)
	reasons = append(reasons, r...)
	layers.Crisis, r = crisisLayer(lower)
	reasons = append(reasons, r...)

	layers.Discount = 1
	if manipulated(text) && layers.Explicit+layers.Medium > 0 {
		layers.Discount = manipulationFactor
		layers.Explicit *= manipulationFactor
		layers.Medium *= manipulationFactor
		reasons = append(reasons, ReasonDiscount)
	}

	score := clamp01(layers.Sum())
	n := layers.Contributing()
	if n == 0 {
		reasons = append(reasons, ReasonNoSignals)
	}
	return Result{
		Level:       e.opts.Thresholds.Level(score),
		Score:       score,
		Confidence:  confidence(n),
		Reasons:     reasons,
		LayerScores: layers,
	}
}

// confidence grows with the number of independent layers that agree. With
// no signals the LOW call itself is moderately certain.
func confidence(layers int) float64 {
	if layers == 0 {
		return 0.4
	}
	return min(0.45+0.15*float64(layers), 0.95)
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
