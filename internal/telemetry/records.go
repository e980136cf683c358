package telemetry

import (
	"time"
)

// Fallback mechanism identifiers. Records may only carry names from this
// closed set; anything else is dropped on record.
const (
	FallbackNameCapitalized       = "name_capitalized_word"
	FallbackGoalDefault           = "goal_default_synthesized"
	FallbackUrgencyHint           = "urgency_caller_hint"
	FallbackNameInternalFault     = "name_internal_fault"
	FallbackAmountInternalFault   = "amount_internal_fault"
	FallbackUrgencyInternalFault  = "urgency_internal_fault"
	FallbackRelationInternalFault = "relationship_internal_fault"
	FallbackCanceled              = "extraction_canceled"
)

var allowedFallbacks = map[string]bool{
	FallbackNameCapitalized:       true,
	FallbackGoalDefault:           true,
	FallbackUrgencyHint:           true,
	FallbackNameInternalFault:     true,
	FallbackAmountInternalFault:   true,
	FallbackUrgencyInternalFault:  true,
	FallbackRelationInternalFault: true,
	FallbackCanceled:              true,
}

// AllowedFallback reports whether name is a known fallback identifier.
func AllowedFallback(name string) bool { return allowedFallbacks[name] }

var (
	allowedUrgency      = map[string]bool{"LOW": true, "MEDIUM": true, "HIGH": true, "CRITICAL": true}
	allowedRelationship = map[string]bool{"myself": true, "family_member": true, "other": true}
	allowedFormats      = map[string]bool{"txt": true, "md": true, "html": true, "pdf": true, "docx": true, "csv": true, "json": true, "vtt": true, "srt": true}
)

// FieldOutcome is whether a scored field was found, and how confidently.
type FieldOutcome struct {
	Extracted  bool    `json:"extracted"`
	Confidence float64 `json:"confidence"`
}

// ParsingRecord describes one extraction session. It holds structure only:
// lengths, flags, scores and closed enums. Narrative text and extracted
// values never enter a record.
type ParsingRecord struct {
	Timestamp             time.Time    `json:"timestamp"`
	SessionID             string       `json:"session_id"`
	DurationMs            float64      `json:"duration_ms"`
	NarrativeLength       int          `json:"narrative_length"`
	Name                  FieldOutcome `json:"name"`
	Amount                FieldOutcome `json:"amount"`
	Relationship          string       `json:"relationship,omitempty"`
	RelationshipExtracted bool         `json:"relationship_extracted"`
	Urgency               string       `json:"urgency,omitempty"`
	UrgencyExtracted      bool         `json:"urgency_extracted"`
	Fallbacks             []string     `json:"fallbacks,omitempty"`
	QualityScore          float64      `json:"quality_score"`
	Error                 bool         `json:"error"`

	seq uint64 // insertion order, assigned by the Recorder
}

// DocumentRecord describes one transcript file read before extraction.
type DocumentRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Format     string    `json:"format"`
	SizeBytes  int64     `json:"size_bytes"`
	ParseMs    float64   `json:"parse_ms"`
	TextLength int       `json:"text_length"`
	Success    bool      `json:"success"`
}

// SystemRecord is a periodic process sample.
type SystemRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	HeapAllocBytes uint64    `json:"heap_alloc_bytes"`
	Goroutines     int       `json:"goroutines"`
	CacheEntries   int       `json:"cache_entries"`
	CacheHits      uint64    `json:"cache_hits"`
	CacheMisses    uint64    `json:"cache_misses"`
}

// Quality weights, in points out of 100.
const (
	qualityName         = 25.0
	qualityAmount       = 35.0
	qualityRelationship = 20.0
	qualityUrgency      = 20.0
)

// QualityScore is the 0-100 weighted completeness of a session. Name and
// amount scale with confidence; relationship and urgency are flat.
func QualityScore(rec ParsingRecord) float64 {
	var q float64
	if rec.Name.Extracted {
		q += qualityName * clampUnit(rec.Name.Confidence)
	}
	if rec.Amount.Extracted {
		q += qualityAmount * clampUnit(rec.Amount.Confidence)
	}
	if rec.RelationshipExtracted {
		q += qualityRelationship
	}
	if rec.UrgencyExtracted {
		q += qualityUrgency
	}
	return min(max(q, 0), 100)
}

// Tier is a quality histogram bucket.
type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierFair      Tier = "fair"
	TierPoor      Tier = "poor"
)

func TierOf(score float64) Tier {
	switch {
	case score >= 80:
		return TierExcellent
	case score >= 60:
		return TierGood
	case score >= 40:
		return TierFair
	}
	return TierPoor
}
