// Package extract assembles the name, goal amount, urgency and beneficiary
// signals for one narrative and reports the session to telemetry.
package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/storysignals/internal/amount"
	"github.com/dgallion1/storysignals/internal/defaults"
	"github.com/dgallion1/storysignals/internal/names"
	"github.com/dgallion1/storysignals/internal/normalize"
	"github.com/dgallion1/storysignals/internal/relationship"
	"github.com/dgallion1/storysignals/internal/telemetry"
	"github.com/dgallion1/storysignals/internal/urgency"
)

type (
	NameSignal    = names.Result
	AmountSignal  = amount.Result
	UrgencySignal = urgency.Result
)

// Input is one extraction request.
type Input struct {
	Narrative    string `json:"narrative"`
	Category     string `json:"category,omitempty"`
	UrgencyHint  string `json:"urgency_hint,omitempty"`
	FillDefaults bool   `json:"fill_defaults,omitempty"`
}

// Session identifies one extraction call. The ID is random and never
// derived from the narrative.
type Session struct {
	ID    string
	Start time.Time
}

// Bundle is the structured result of one extraction.
type Bundle struct {
	SessionID    string                    `json:"session_id"`
	Name         NameSignal                `json:"name"`
	Goal         AmountSignal              `json:"goal"`
	Urgency      UrgencySignal             `json:"urgency"`
	Relationship relationship.Relationship `json:"relationship"`
	Category     string                    `json:"category,omitempty"`
	Title        string                    `json:"title,omitempty"`
	Summary      string                    `json:"summary,omitempty"`
	Fallbacks    []string                  `json:"fallbacks"`
	DurationMs   float64                   `json:"duration_ms"`
}

// Options configures the signal engines.
type Options struct {
	CacheSize int
	Names     names.Options
	Amount    amount.Options
	Urgency   urgency.Options
}

func DefaultOptions() Options {
	return Options{
		CacheSize: normalize.DefaultMaxEntries,
		Names:     names.DefaultOptions(),
		Amount:    amount.DefaultOptions(),
		Urgency:   urgency.DefaultOptions(),
	}
}

// Extractor runs the signal passes. It is safe for concurrent use; the
// normalizer cache and the telemetry recorder are its only shared state.
type Extractor struct {
	cache    *normalize.Cache
	names    *names.Engine
	amounts  *amount.Engine
	urgency  *urgency.Engine
	recorder *telemetry.Recorder
	log      *slog.Logger
	now      func() time.Time
}

// New builds an Extractor. recorder may be nil to disable telemetry.
func New(opts Options, recorder *telemetry.Recorder, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		cache:    normalize.NewCache(opts.CacheSize),
		names:    names.New(opts.Names),
		amounts:  amount.New(opts.Amount),
		urgency:  urgency.New(opts.Urgency),
		recorder: recorder,
		log:      log,
		now:      time.Now,
	}
}

// Cache exposes the normalizer cache for system sampling.
func (e *Extractor) Cache() *normalize.Cache { return e.cache }

// passResults collects each pass through its own buffered channel so a
// canceled call can read whatever finished without racing the rest.
type passResults struct {
	name    chan outcome[NameSignal]
	goal    chan outcome[AmountSignal]
	urgency chan outcome[UrgencySignal]
	rel     chan outcome[relOutcome]
}

type relOutcome struct {
	value relationship.Relationship
	rule  string
}

type outcome[T any] struct {
	val   T
	fault bool
}

// guard runs fn and converts a panic into a faulted zero outcome.
func guard[T any](fn func() T) (o outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			o = outcome[T]{fault: true}
		}
	}()
	return outcome[T]{val: fn()}
}

// Extract never returns an error. Faults and cancellation degrade the
// affected signals to their zero-confidence defaults and are listed in
// Bundle.Fallbacks.
func (e *Extractor) Extract(ctx context.Context, in Input) Bundle {
	session := Session{ID: uuid.NewString(), Start: e.now()}
	// Every pass reads the same cached view; none re-folds the narrative.
	entry := e.cache.Normalize(in.Narrative)

	res := passResults{
		name:    make(chan outcome[NameSignal], 1),
		goal:    make(chan outcome[AmountSignal], 1),
		urgency: make(chan outcome[UrgencySignal], 1),
		rel:     make(chan outcome[relOutcome], 1),
	}

	done := make(chan struct{})
	if ctx.Err() == nil {
		var g errgroup.Group
		g.Go(func() error {
			res.name <- guard(func() NameSignal { return e.names.ExtractEntry(entry) })
			return nil
		})
		g.Go(func() error {
			res.goal <- guard(func() AmountSignal { return e.amounts.ExtractEntry(entry) })
			return nil
		})
		g.Go(func() error {
			res.urgency <- guard(func() UrgencySignal { return e.urgency.AssessEntry(entry) })
			return nil
		})
		g.Go(func() error {
			res.rel <- guard(func() relOutcome {
				v, rule := relationship.ClassifyEntry(entry)
				return relOutcome{value: v, rule: rule}
			})
			return nil
		})
		go func() {
			_ = g.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}

	b, st := e.assemble(session, res)
	if st.canceled {
		b.Fallbacks = append(b.Fallbacks, telemetry.FallbackCanceled)
	}
	e.applyHint(&b, in.UrgencyHint)
	if in.Category != "" {
		b.Category = string(defaults.ParseCategory(in.Category))
	}
	if in.FillDefaults {
		b = e.FillDefaults(b, in)
	}
	b.DurationMs = float64(e.now().Sub(session.Start).Microseconds()) / 1000

	e.report(b, len(in.Narrative), st)
	if st.faulted || st.canceled {
		e.log.Warn("extraction degraded",
			"session_id", b.SessionID,
			"faulted", st.faulted,
			"canceled", st.canceled,
		)
	}
	e.log.Debug("extraction complete",
		"session_id", b.SessionID,
		"narrative_length", len(in.Narrative),
		"duration_ms", b.DurationMs,
		"fallbacks", len(b.Fallbacks),
	)
	return b
}

// relRuleDefault is the rule name ClassifyEntry reports when nothing
// matched; a default relationship does not count as extracted.
const relRuleDefault = "default"

type passState struct {
	faulted  bool
	canceled bool
	relRule  string
}

func (e *Extractor) assemble(session Session, res passResults) (Bundle, passState) {
	var st passState
	b := Bundle{
		SessionID:    session.ID,
		Relationship: relationship.Myself,
		Fallbacks:    []string{},
	}

	select {
	case o := <-res.name:
		b.Name = o.val
		if o.fault {
			b.Name = NameSignal{Fallback: names.FallbackInternalFault}
		}
		if b.Name.Fallback != "" {
			b.Fallbacks = append(b.Fallbacks, b.Name.Fallback)
		}
		if b.Name.Fallback == names.FallbackInternalFault {
			st.faulted = true
		}
	default:
		st.canceled = true
	}

	select {
	case o := <-res.goal:
		b.Goal = o.val
		if o.fault {
			b.Goal = amount.Empty(amount.ReasonFailed)
		}
		if b.Goal.Faulted() {
			b.Fallbacks = append(b.Fallbacks, telemetry.FallbackAmountInternalFault)
			st.faulted = true
		}
	default:
		b.Goal = amount.Empty(telemetry.FallbackCanceled)
		st.canceled = true
	}

	select {
	case o := <-res.urgency:
		b.Urgency = o.val
		if o.fault {
			b.Urgency = urgency.Failed()
		}
		if hasReason(b.Urgency.Reasons, urgency.ReasonFailed) {
			b.Fallbacks = append(b.Fallbacks, telemetry.FallbackUrgencyInternalFault)
			st.faulted = true
		}
	default:
		b.Urgency = urgency.Failed()
		b.Urgency.Reasons = []string{telemetry.FallbackCanceled}
		st.canceled = true
	}

	select {
	case o := <-res.rel:
		if o.fault {
			b.Fallbacks = append(b.Fallbacks, telemetry.FallbackRelationInternalFault)
			st.faulted = true
		} else {
			b.Relationship, st.relRule = o.val.value, o.val.rule
		}
	default:
		st.canceled = true
	}
	return b, st
}

const (
	hintConfidence = 0.3
	reasonHint     = "caller_hint"
)

// applyHint uses a caller-supplied urgency level when the narrative itself
// carried no urgency signal. Faulted or canceled assessments are left alone.
func (e *Extractor) applyHint(b *Bundle, hint string) {
	level, ok := urgency.ParseLevel(hint)
	if !ok || b.Urgency.Score > 0 {
		return
	}
	for _, r := range b.Urgency.Reasons {
		if r != urgency.ReasonNoSignals && r != urgency.ReasonNoText {
			return
		}
	}
	b.Urgency.Level = level
	b.Urgency.Confidence = hintConfidence
	b.Urgency.Reasons = append(b.Urgency.Reasons, reasonHint)
	b.Fallbacks = append(b.Fallbacks, telemetry.FallbackUrgencyHint)
}

// FillDefaults synthesizes a goal, title and summary for whatever the
// narrative left out. An extracted goal is kept.
func (e *Extractor) FillDefaults(b Bundle, in Input) Bundle {
	category := in.Category
	if category == "" {
		category = b.Category
	}
	if b.Goal.Value == nil {
		// A LOW level that only means "nothing found" must not scale the goal.
		var level urgency.Level
		if signaled(b.Urgency) {
			level = b.Urgency.Level
		}
		g := defaults.SuggestGoalEntry(category, level, e.cache.Normalize(in.Narrative))
		v := g.Amount
		b.Goal = AmountSignal{
			Value:      &v,
			Confidence: inferredConfidence,
			Provenance: amount.ProvenanceInferred,
			Reasons:    append([]string{"default_synthesized"}, g.Factors...),
		}
		b.Fallbacks = append(b.Fallbacks, telemetry.FallbackGoalDefault)
	}
	var goal float64
	if b.Goal.Value != nil {
		goal = *b.Goal.Value
	}
	b.Title = defaults.Title(b.Name.Value, category)
	b.Summary = defaults.Summary(b.Name.Value, category, goal)
	return b
}

const inferredConfidence = 0.2

func (e *Extractor) report(b Bundle, narrativeLen int, st passState) {
	if e.recorder == nil {
		return
	}
	e.recorder.RecordParsing(telemetry.ParsingRecord{
		SessionID:       b.SessionID,
		DurationMs:      b.DurationMs,
		NarrativeLength: narrativeLen,
		Name: telemetry.FieldOutcome{
			Extracted:  b.Name.Value != "",
			Confidence: b.Name.Confidence,
		},
		Amount: telemetry.FieldOutcome{
			Extracted:  b.Goal.Value != nil && b.Goal.Provenance != amount.ProvenanceInferred,
			Confidence: b.Goal.Confidence,
		},
		Relationship:          string(b.Relationship),
		RelationshipExtracted: st.relRule != "" && st.relRule != relRuleDefault,
		Urgency:               string(b.Urgency.Level),
		UrgencyExtracted:      b.Urgency.Confidence > 0,
		Fallbacks:             b.Fallbacks,
		Error:                 st.faulted,
	})
}

// signaled reports whether the urgency level came from the narrative or a
// caller hint rather than from an empty, failed or canceled assessment.
func signaled(u UrgencySignal) bool {
	for _, r := range u.Reasons {
		switch r {
		case urgency.ReasonNoSignals, urgency.ReasonNoText, urgency.ReasonFailed, telemetry.FallbackCanceled:
		default:
			return true
		}
	}
	return false
}

func hasReason(reasons []string, want string) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}
