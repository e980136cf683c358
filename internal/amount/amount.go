package amount

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/storysignals/internal/normalize"
	"github.com/dgallion1/storysignals/internal/segment"
)

// Provenance classifies how a goal amount was obtained.
type Provenance string

const (
	ProvenanceExplicit   Provenance = "explicit"
	ProvenanceContextual Provenance = "contextual"
	ProvenanceVague      Provenance = "vague"
	ProvenanceInferred   Provenance = "inferred"
	ProvenanceNone       Provenance = "none"
)

// ReasonFailed marks a result produced after an internal fault.
const ReasonFailed = "extraction_failed"

// Confidence tiers.
const (
	tierExplicit   = 0.95
	tierNeed       = 0.7
	tierCurrency   = 0.5
	tierNegated    = 0.4
	tierVagueCap   = 0.45
	framingPenalty = 0.3
)

// Format identifies which numeral pass produced a candidate.
type Format string

const (
	FormatScientific Format = "scientific"
	FormatRoman      Format = "roman"
	FormatVague      Format = "vague_quantity"
	FormatWords      Format = "written_words"
	FormatDigits     Format = "digits"
)

// Result is the outcome of goal-amount extraction.
type Result struct {
	Value      *float64   `json:"value"`
	Confidence float64    `json:"confidence"`
	Provenance Provenance `json:"provenance"`
	Reasons    []string   `json:"reasons"`
}

// Options bound the engine.
type Options struct {
	Min     float64 // values below are rejected
	Max     float64 // values above are clamped
	MaxScan int     // bytes of input examined
}

func DefaultOptions() Options {
	return Options{Min: 50, Max: 100_000, MaxScan: 20_000}
}

// Engine extracts the requested goal amount from narrative text.
type Engine struct {
	opts Options
}

func New(opts Options) *Engine {
	def := DefaultOptions()
	if opts.Min <= 0 {
		opts.Min = def.Min
	}
	if opts.Max <= 0 || opts.Max < opts.Min {
		opts.Max = def.Max
	}
	if opts.MaxScan <= 0 {
		opts.MaxScan = def.MaxScan
	}
	return &Engine{opts: opts}
}

var (
	scientificRe = regexp.MustCompile(`\b(\d+(?:\.\d+)?)(?:e\+?(\d{1,2})\b|\s*[*x]\s*10\s*\^\s*(\d{1,2})\b)`)
	romanRe      = regexp.MustCompile(`\b([ivxlcdm]{1,15})\s+(hundred|thousand|million|k)\b`)
	vagueRe      = regexp.MustCompile(`\b(a few|a couple(?: of)?|several)\s+(hundred|thousand)\b`)
	digitsRe     = regexp.MustCompile(`(\$\s?)?\b(\d{1,3}(?:,\d{3})+|\d+)(?:\.(\d+))?(?:\s*(k|grand|thousand|million|mil)\b)?`)
	yearLikeRe   = regexp.MustCompile(`^(19|20)\d\d$`)
)

var vagueMultipliers = map[string]float64{
	"a few": 3, "a couple": 2, "a couple of": 2, "several": 5,
}

var suffixScale = map[string]float64{
	"k": 1_000, "grand": 1_000, "thousand": 1_000, "million": 1_000_000, "mil": 1_000_000,
}

type candidate struct {
	value      float64
	start, end int
	ctxEnd     int
	format     Format
	hasSymbol  bool
	decimals   int
	rangeLower bool
	dropped    bool
}

// Extract finds the most plausible goal amount. It never panics; an
// internal fault degrades to a single simple dollar-sign scan, then to an
// empty result.
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

	in = in.Prefix(e.opts.MaxScan)
	if strings.TrimSpace(in.Trimmed) == "" {
		return empty("no_text")
	}

	original, lower := in.Trimmed, in.Lower
	spans := segment.Sentences(original)

	work := []byte(lower)
	cands := e.collect(original, work)
	if len(cands) == 0 {
		return empty("no_numeric_candidates")
	}
	markRanges(lower, cands)

	type scored struct {
		c          candidate
		ctx        amountContext
		confidence float64
		reasons    []string
	}
	var pool []scored
	rejections := map[string]bool{}

	for _, c := range cands {
		if c.dropped {
			continue
		}
		end := c.end
		if c.ctxEnd > end {
			end = c.ctxEnd
		}
		ctx := classify(lower, spans, c.start, end, c.hasSymbol)
		if ctx.rejected {
			rejections["rate_or_age_context"] = true
			continue
		}
		if c.format == FormatDigits && !c.hasSymbol && yearLikeRe.MatchString(strconv.Itoa(int(c.value))) && c.value == math.Trunc(c.value) && !ctx.need {
			rejections["year_like_number"] = true
			continue
		}
		if c.decimals > 2 || hasExcessPrecision(c.value) {
			rejections["excess_precision"] = true
			continue
		}
		if c.value < e.opts.Min {
			rejections["below_minimum"] = true
			continue
		}

		conf, reasons := score(ctx)
		if conf == 0 {
			rejections["no_monetary_context"] = true
			continue
		}
		if c.format == FormatVague && conf > tierVagueCap {
			conf = tierVagueCap
		}
		reasons = append(reasons, "format:"+string(c.format))
		if c.rangeLower {
			reasons = append(reasons, "range_lower_bound")
		}
		pool = append(pool, scored{c: c, ctx: ctx, confidence: clamp01(conf), reasons: reasons})
	}

	if len(pool) == 0 {
		res := empty("no_valid_candidates")
		for _, k := range sortedKeys(rejections) {
			res.Reasons = append(res.Reasons, "rejected:"+k)
		}
		return res
	}

	// Unframed present-tense asks first, then confidence, then position.
	sort.SliceStable(pool, func(i, j int) bool {
		fi, fj := pool[i].ctx.framed(), pool[j].ctx.framed()
		if fi != fj {
			return !fi
		}
		if pool[i].confidence != pool[j].confidence {
			return pool[i].confidence > pool[j].confidence
		}
		return pool[i].c.start < pool[j].c.start
	})

	best := pool[0]
	value := best.c.value
	reasons := best.reasons
	if value > e.opts.Max {
		value = e.opts.Max
		reasons = append(reasons, "clamped_to_maximum")
	}
	if len(pool) > 1 {
		reasons = append(reasons, fmt.Sprintf("candidates:%d", len(pool)))
	}

	prov := ProvenanceContextual
	switch {
	case best.c.format == FormatVague:
		prov = ProvenanceVague
	case best.ctx.need && best.ctx.currency && !best.ctx.negated:
		prov = ProvenanceExplicit
	}

	return Result{
		Value:      &value,
		Confidence: best.confidence,
		Provenance: prov,
		Reasons:    reasons,
	}
}

// collect runs the numeral passes in priority order. Each pass blanks the
// bytes it consumed in work so later passes cannot re-match them. Digits run
// before spelled-out words so "2 thousand" is read as one amount.
func (e *Engine) collect(original string, work []byte) []candidate {
	var cands []candidate

	mask := func(start, end int) {
		for i := start; i < end; i++ {
			work[i] = ' '
		}
	}

	for _, m := range scientificRe.FindAllSubmatchIndex(work, -1) {
		mantissa, err := strconv.ParseFloat(string(work[m[2]:m[3]]), 64)
		if err != nil {
			continue
		}
		expStr := ""
		if m[4] >= 0 {
			expStr = string(work[m[4]:m[5]])
		} else if m[6] >= 0 {
			expStr = string(work[m[6]:m[7]])
		}
		exp, err := strconv.Atoi(expStr)
		if err != nil || exp > 9 {
			continue
		}
		start := m[0]
		hasSymbol := start > 0 && work[start-1] == '$'
		if hasSymbol {
			start--
		}
		cands = append(cands, candidate{
			value:     mantissa * math.Pow10(exp),
			start:     start,
			end:       m[1],
			format:    FormatScientific,
			hasSymbol: hasSymbol,
		})
		mask(start, m[1])
	}

	for _, m := range romanRe.FindAllSubmatchIndex(work, -1) {
		numeral := original[m[2]:m[3]]
		if numeral != strings.ToUpper(numeral) || numeral == "I" {
			continue
		}
		n, ok := parseRoman(numeral)
		if !ok {
			continue
		}
		scale := suffixScale[string(work[m[4]:m[5]])]
		if string(work[m[4]:m[5]]) == "hundred" {
			scale = 100
		}
		cands = append(cands, candidate{
			value:  float64(n) * scale,
			start:  m[0],
			end:    m[1],
			format: FormatRoman,
		})
		mask(m[0], m[1])
	}

	for _, m := range vagueRe.FindAllSubmatchIndex(work, -1) {
		mult := vagueMultipliers[string(work[m[2]:m[3]])]
		scale := 100.0
		if string(work[m[4]:m[5]]) == "thousand" {
			scale = 1_000
		}
		cands = append(cands, candidate{
			value:  mult * scale,
			start:  m[0],
			end:    m[1],
			format: FormatVague,
		})
		mask(m[0], m[1])
	}

	for _, m := range digitsRe.FindAllSubmatchIndex(work, -1) {
		intPart := strings.ReplaceAll(string(work[m[4]:m[5]]), ",", "")
		numStr := intPart
		decimals := 0
		if m[6] >= 0 {
			frac := string(work[m[6]:m[7]])
			decimals = decimalPlaces(frac)
			numStr += "." + frac
		}
		v, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			continue
		}
		hasSymbol := m[2] >= 0
		if m[8] >= 0 {
			suffix := string(work[m[8]:m[9]])
			v *= suffixScale[suffix]
			if suffix == "grand" {
				hasSymbol = true
			}
		}
		cands = append(cands, candidate{
			value:     v,
			start:     m[0],
			end:       m[1],
			format:    FormatDigits,
			hasSymbol: hasSymbol,
			decimals:  decimals,
		})
		mask(m[0], m[1])
	}

	for _, run := range findWordRuns(string(work)) {
		v, ok := parseWords(run.words)
		if !ok {
			continue
		}
		cands = append(cands, candidate{
			value:  v,
			start:  run.start,
			end:    run.end,
			format: FormatWords,
		})
		mask(run.start, run.end)
	}

	sort.Slice(cands, func(i, j int) bool { return cands[i].start < cands[j].start })
	return cands
}

// markRanges collapses "between A and B" / "A-B" / "A to B" into A.
func markRanges(lower string, cands []candidate) {
	for i := 0; i+1 < len(cands); i++ {
		a, b := &cands[i], &cands[i+1]
		if a.dropped || b.start < a.end {
			continue
		}
		between := lower[a.end:b.start]
		if !rangeSepRe.MatchString(between) {
			continue
		}
		sep := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(between), "$"))
		opener := rangeOpenerRe.MatchString(lower[maxInt(0, a.start-30):a.start])
		if !opener && sep == "and" {
			continue
		}
		if b.value < a.value {
			continue
		}
		a.rangeLower = true
		a.ctxEnd = b.end
		if b.hasSymbol {
			a.hasSymbol = true
		}
		b.dropped = true
	}
}

func score(ctx amountContext) (float64, []string) {
	var reasons []string
	if ctx.need {
		reasons = append(reasons, "need_verb")
	}
	if ctx.goal {
		reasons = append(reasons, "goal_keyword")
	}
	if ctx.currency {
		reasons = append(reasons, "currency_context")
	}

	var conf float64
	switch {
	case ctx.need && ctx.currency:
		conf = tierExplicit
	case ctx.need || ctx.goal:
		conf = tierNeed
	case ctx.currency:
		conf = tierCurrency
	default:
		return 0, nil
	}

	if ctx.negated {
		reasons = append(reasons, "negated")
		if conf > tierNegated {
			conf = tierNegated
		}
	}
	if ctx.past {
		reasons = append(reasons, "past_framing")
	}
	if ctx.debt {
		reasons = append(reasons, "debt_framing")
	}
	if ctx.hypothetical {
		reasons = append(reasons, "hypothetical_framing")
	}
	if ctx.framed() {
		conf -= framingPenalty
	}
	return clamp01(conf), reasons
}

var degradedRe = regexp.MustCompile(`\$\s?(\d{1,3}(?:,\d{3})+|\d+)`)

// degraded is the single best-effort pass after an internal fault.
func (e *Engine) degraded(text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = empty(ReasonFailed)
		}
	}()
	if len(text) > e.opts.MaxScan {
		text = text[:e.opts.MaxScan]
	}
	m := degradedRe.FindStringSubmatch(text)
	if m == nil {
		return empty(ReasonFailed)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || v < e.opts.Min {
		return empty(ReasonFailed)
	}
	if v > e.opts.Max {
		v = e.opts.Max
	}
	return Result{
		Value:      &v,
		Confidence: 0.2,
		Provenance: ProvenanceContextual,
		Reasons:    []string{ReasonFailed, "degraded_dollar_scan"},
	}
}

// Faulted reports whether the result came from the fault path.
func (r Result) Faulted() bool {
	for _, reason := range r.Reasons {
		if reason == ReasonFailed {
			return true
		}
	}
	return false
}

// Empty is a no-value result carrying reason.
func Empty(reason string) Result { return empty(reason) }

func empty(reason string) Result {
	return Result{Provenance: ProvenanceNone, Reasons: []string{reason}}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var defaultEngine = New(DefaultOptions())

// Extract runs the default engine.
func Extract(text string) Result {
	return defaultEngine.Extract(text)
}
