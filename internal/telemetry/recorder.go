// Package telemetry records structural, PII-free metrics about extraction
// sessions and serves dashboard, health and scrape views over them.
package telemetry

import (
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Config bounds the recorder's buffers.
type Config struct {
	MaxParsingRecords  int              `yaml:"max_parsing_records"`
	MaxDocumentRecords int              `yaml:"max_document_records"`
	MaxSystemRecords   int              `yaml:"max_system_records"`
	Retention          time.Duration    `yaml:"retention"`
	HealthWindow       time.Duration    `yaml:"health_window"`
	Health             HealthThresholds `yaml:"health"`
}

func DefaultConfig() Config {
	return Config{
		MaxParsingRecords:  1000,
		MaxDocumentRecords: 500,
		MaxSystemRecords:   200,
		Retention:          24 * time.Hour,
		HealthWindow:       15 * time.Minute,
		Health:             DefaultHealthThresholds(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxParsingRecords <= 0 {
		c.MaxParsingRecords = d.MaxParsingRecords
	}
	if c.MaxDocumentRecords <= 0 {
		c.MaxDocumentRecords = d.MaxDocumentRecords
	}
	if c.MaxSystemRecords <= 0 {
		c.MaxSystemRecords = d.MaxSystemRecords
	}
	if c.Retention <= 0 {
		c.Retention = d.Retention
	}
	if c.HealthWindow <= 0 {
		c.HealthWindow = d.HealthWindow
	}
	c.Health = c.Health.withDefaults()
	return c
}

// counters are monotonic totals since process start.
type counters struct {
	sessions       uint64
	errors         uint64
	documents      uint64
	documentErrors uint64
	dropped        uint64
	fallbacks      map[string]uint64
	documentsByFmt map[string]uint64
}

// Recorder buffers telemetry records. Construct one per process and pass it
// to the components that report into it. All methods are safe for
// concurrent use and never panic.
type Recorder struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	parsing   *ring[ParsingRecord]
	documents *ring[DocumentRecord]
	system    *ring[SystemRecord]
	totals    counters
	seq       uint64

	now      func() time.Time
	heapFunc func() uint64
	registry *prometheus.Registry
}

func NewRecorder(cfg Config, logger *slog.Logger) *Recorder {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		cfg:       cfg,
		logger:    logger,
		parsing:   newRing(cfg.MaxParsingRecords, func(r ParsingRecord) time.Time { return r.Timestamp }),
		documents: newRing(cfg.MaxDocumentRecords, func(r DocumentRecord) time.Time { return r.Timestamp }),
		system:    newRing(cfg.MaxSystemRecords, func(r SystemRecord) time.Time { return r.Timestamp }),
		totals: counters{
			fallbacks:      make(map[string]uint64),
			documentsByFmt: make(map[string]uint64),
		},
		now:      time.Now,
		heapFunc: readHeapAlloc,
	}
	r.registry = newRegistry(r)
	return r
}

func (r *Recorder) Config() Config { return r.cfg }

// RecordParsing stores one session record. Malformed fields are clamped or
// dropped; the quality score is always recomputed from the fields.
func (r *Recorder) RecordParsing(rec ParsingRecord) {
	if r == nil {
		return
	}
	defer r.recoverRecord("parsing")

	rec, problems := r.sanitizeParsing(rec)
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	rec.seq = r.seq
	if r.parsing.push(rec) {
		r.totals.dropped++
	}
	r.pruneLocked(r.now())
	r.totals.sessions++
	if rec.Error {
		r.totals.errors++
	}
	for _, f := range rec.Fallbacks {
		r.totals.fallbacks[f]++
	}
	if problems > 0 {
		r.logger.Warn("telemetry record sanitized", "kind", "parsing", "fields", problems)
	}
}

// RecordDocument stores one file-intake record.
func (r *Recorder) RecordDocument(rec DocumentRecord) {
	if r == nil {
		return
	}
	defer r.recoverRecord("document")

	problems := 0
	if rec.Timestamp.IsZero() {
		rec.Timestamp = r.now()
	}
	if !allowedFormats[rec.Format] {
		rec.Format = "unknown"
		problems++
	}
	rec.ParseMs = sanitizeNonNegative(rec.ParseMs, &problems)
	if rec.SizeBytes < 0 {
		rec.SizeBytes = 0
		problems++
	}
	if rec.TextLength < 0 {
		rec.TextLength = 0
		problems++
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.documents.push(rec) {
		r.totals.dropped++
	}
	r.pruneLocked(r.now())
	r.totals.documents++
	r.totals.documentsByFmt[rec.Format]++
	if !rec.Success {
		r.totals.documentErrors++
	}
	if problems > 0 {
		r.logger.Warn("telemetry record sanitized", "kind", "document", "fields", problems)
	}
}

// RecordSystem stores a process sample.
func (r *Recorder) RecordSystem(rec SystemRecord) {
	if r == nil {
		return
	}
	defer r.recoverRecord("system")
	if rec.Timestamp.IsZero() {
		rec.Timestamp = r.now()
	}
	if rec.Goroutines < 0 || rec.CacheEntries < 0 {
		rec.Goroutines = max(rec.Goroutines, 0)
		rec.CacheEntries = max(rec.CacheEntries, 0)
		r.logger.Warn("telemetry record sanitized", "kind", "system", "fields", 1)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.system.push(rec) {
		r.totals.dropped++
	}
	r.pruneLocked(r.now())
}

// CacheStats is the slice of normalizer cache state a system sample needs.
type CacheStats interface {
	Len() int
	Stats() (hits, misses uint64)
}

// SampleSystem records current heap, goroutine and cache figures. cache may
// be nil.
func (r *Recorder) SampleSystem(cache CacheStats) {
	if r == nil {
		return
	}
	rec := SystemRecord{
		Timestamp:      r.now(),
		HeapAllocBytes: r.heapFunc(),
		Goroutines:     runtime.NumGoroutine(),
	}
	if cache != nil {
		rec.CacheEntries = cache.Len()
		rec.CacheHits, rec.CacheMisses = cache.Stats()
	}
	r.RecordSystem(rec)
}

// Prune drops records older than the retention window.
func (r *Recorder) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pruneLocked(r.now())
}

func (r *Recorder) pruneLocked(now time.Time) int {
	cutoff := now.Add(-r.cfg.Retention)
	return r.parsing.pruneBefore(cutoff) +
		r.documents.pruneBefore(cutoff) +
		r.system.pruneBefore(cutoff)
}

// ParsingSince returns the session records stamped at or after t.
func (r *Recorder) ParsingSince(t time.Time) []ParsingRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs := r.parsing.since(t)
	for i := range recs {
		recs[i].Fallbacks = append([]string(nil), recs[i].Fallbacks...)
	}
	return recs
}

// parsingAfter returns the records inserted after seq and the sequence
// number of the newest one (seq itself when there are none).
func (r *Recorder) parsingAfter(seq uint64) ([]ParsingRecord, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ParsingRecord
	for _, rec := range r.parsing.items {
		if rec.seq > seq {
			rec.Fallbacks = append([]string(nil), rec.Fallbacks...)
			out = append(out, rec)
		}
	}
	return out, max(seq, r.seq)
}

// Len reports buffered record counts.
func (r *Recorder) Len() (parsing, documents, system int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.parsing.len(), r.documents.len(), r.system.len()
}

func (r *Recorder) recoverRecord(kind string) {
	if p := recover(); p != nil {
		r.logger.Error("telemetry record dropped", "kind", kind)
	}
}

func (r *Recorder) sanitizeParsing(rec ParsingRecord) (ParsingRecord, int) {
	problems := 0
	if rec.Timestamp.IsZero() {
		rec.Timestamp = r.now()
	}
	if rec.SessionID != "" {
		if _, err := uuid.Parse(rec.SessionID); err != nil {
			rec.SessionID = ""
			problems++
		}
	}
	rec.DurationMs = sanitizeNonNegative(rec.DurationMs, &problems)
	if rec.NarrativeLength < 0 {
		rec.NarrativeLength = 0
		problems++
	}
	rec.Name.Confidence = sanitizeConfidence(rec.Name.Confidence, &problems)
	rec.Amount.Confidence = sanitizeConfidence(rec.Amount.Confidence, &problems)
	if rec.Relationship != "" && !allowedRelationship[rec.Relationship] {
		rec.Relationship = ""
		rec.RelationshipExtracted = false
		problems++
	}
	if rec.Urgency != "" && !allowedUrgency[rec.Urgency] {
		rec.Urgency = ""
		rec.UrgencyExtracted = false
		problems++
	}

	var kept []string
	seen := map[string]bool{}
	for _, f := range rec.Fallbacks {
		if !allowedFallbacks[f] {
			problems++
			continue
		}
		if !seen[f] {
			seen[f] = true
			kept = append(kept, f)
		}
	}
	rec.Fallbacks = kept
	rec.QualityScore = QualityScore(rec)
	return rec, problems
}

func sanitizeConfidence(v float64, problems *int) float64 {
	if math.IsNaN(v) || v < 0 || v > 1 {
		*problems++
		return clampUnit(v)
	}
	return v
}

func sanitizeNonNegative(v float64, problems *int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		*problems++
		return 0
	}
	return v
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func readHeapAlloc() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}
