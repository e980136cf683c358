package telemetry

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newTestRecorder(cfg Config) (*Recorder, *time.Time) {
	r := NewRecorder(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	now := testNow
	r.now = func() time.Time { return now }
	r.heapFunc = func() uint64 { return 64 << 20 }
	return r, &now
}

func goodRecord(at time.Time) ParsingRecord {
	return ParsingRecord{
		Timestamp:             at,
		SessionID:             uuid.NewString(),
		DurationMs:            12,
		NarrativeLength:       48,
		Name:                  FieldOutcome{Extracted: true, Confidence: 1},
		Amount:                FieldOutcome{Extracted: true, Confidence: 0.95},
		Relationship:          "myself",
		RelationshipExtracted: true,
		Urgency:               "LOW",
		UrgencyExtracted:      true,
	}
}

func TestQualityScore(t *testing.T) {
	tests := []struct {
		name string
		rec  ParsingRecord
		want float64
	}{
		{"empty", ParsingRecord{}, 0},
		{"all fields", goodRecord(testNow), 25 + 35*0.95 + 20 + 20},
		{"flat fields only", ParsingRecord{RelationshipExtracted: true, UrgencyExtracted: true}, 40},
		{"confidence ignored when not extracted", ParsingRecord{Name: FieldOutcome{Confidence: 1}}, 0},
		{"half name", ParsingRecord{Name: FieldOutcome{Extracted: true, Confidence: 0.5}}, 12.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, QualityScore(tc.rec), 1e-9)
		})
	}
}

func TestTierOf(t *testing.T) {
	assert.Equal(t, TierExcellent, TierOf(80))
	assert.Equal(t, TierGood, TierOf(79.9))
	assert.Equal(t, TierFair, TierOf(40))
	assert.Equal(t, TierPoor, TierOf(39.9))
}

func TestRecordParsing_SanitizesMalformedInput(t *testing.T) {
	r, _ := newTestRecorder(DefaultConfig())
	r.RecordParsing(ParsingRecord{
		SessionID:       "not-a-uuid",
		DurationMs:      math.NaN(),
		NarrativeLength: -5,
		Name:            FieldOutcome{Extracted: true, Confidence: 7},
		Amount:          FieldOutcome{Extracted: true, Confidence: math.Inf(-1)},
		Relationship:    "my landlord Bob",
		Urgency:         "SEVERE",
		Fallbacks:       []string{"name_capitalized_word", "John Smith said so", "name_capitalized_word"},
		QualityScore:    1e9,
	})

	recs := r.ParsingSince(time.Time{})
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Empty(t, rec.SessionID)
	assert.Zero(t, rec.DurationMs)
	assert.Zero(t, rec.NarrativeLength)
	assert.Equal(t, 1.0, rec.Name.Confidence)
	assert.Zero(t, rec.Amount.Confidence)
	assert.Empty(t, rec.Relationship)
	assert.Empty(t, rec.Urgency)
	assert.Equal(t, []string{FallbackNameCapitalized}, rec.Fallbacks)
	assert.InDelta(t, 25.0, rec.QualityScore, 1e-9)
	assert.Equal(t, testNow, rec.Timestamp)
}

func TestRecord_NilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordParsing(ParsingRecord{})
		r.RecordDocument(DocumentRecord{})
		r.RecordSystem(SystemRecord{})
		r.SampleSystem(nil)
	})
}

func TestRing_CapsAndCountsDisplaced(t *testing.T) {
	r, _ := newTestRecorder(Config{MaxParsingRecords: 3, MaxDocumentRecords: 2, MaxSystemRecords: 1})
	for i := range 5 {
		rec := goodRecord(testNow)
		rec.NarrativeLength = i
		r.RecordParsing(rec)
		r.RecordDocument(DocumentRecord{Format: "txt", Success: true})
		r.RecordSystem(SystemRecord{Goroutines: i})
	}
	p, d, s := r.Len()
	assert.Equal(t, 3, p)
	assert.Equal(t, 2, d)
	assert.Equal(t, 1, s)

	recs := r.ParsingSince(time.Time{})
	assert.Equal(t, 2, recs[0].NarrativeLength, "oldest records are displaced first")
	assert.Equal(t, uint64(2+3+4), r.totals.dropped)
}

func TestPrune_ByAge(t *testing.T) {
	r, now := newTestRecorder(Config{Retention: time.Hour})
	r.RecordParsing(goodRecord(testNow.Add(-2 * time.Hour)))
	r.RecordParsing(goodRecord(testNow.Add(-30 * time.Minute)))
	r.RecordDocument(DocumentRecord{Timestamp: testNow.Add(-3 * time.Hour), Format: "pdf"})

	p, d, _ := r.Len()
	assert.Equal(t, 1, p, "stale record pruned on write")
	assert.Equal(t, 0, d)

	*now = now.Add(time.Hour)
	assert.Equal(t, 1, r.Prune())
	p, _, _ = r.Len()
	assert.Zero(t, p)
}

func TestDashboard(t *testing.T) {
	r, _ := newTestRecorder(DefaultConfig())

	r.RecordParsing(goodRecord(testNow.Add(-10 * time.Minute)))

	weak := goodRecord(testNow.Add(-5 * time.Minute))
	weak.Name = FieldOutcome{Extracted: true, Confidence: 0.1}
	weak.Amount = FieldOutcome{}
	weak.Fallbacks = []string{FallbackNameCapitalized, FallbackGoalDefault}
	weak.DurationMs = 30
	r.RecordParsing(weak)

	failed := goodRecord(testNow.Add(-time.Minute))
	failed.Error = true
	failed.Name = FieldOutcome{}
	failed.Amount = FieldOutcome{}
	failed.UrgencyExtracted = false
	failed.RelationshipExtracted = false
	failed.Fallbacks = []string{FallbackNameInternalFault}
	failed.DurationMs = 3
	r.RecordParsing(failed)

	outside := goodRecord(testNow.Add(-2 * time.Hour))
	r.RecordParsing(outside)

	r.RecordDocument(DocumentRecord{Timestamp: testNow, Format: "pdf", Success: false})

	d := r.Dashboard(time.Hour)
	assert.Equal(t, "1h0m0s", d.Window)
	assert.Equal(t, 3, d.Sessions)
	assert.Equal(t, 1, d.Errors)
	assert.InDelta(t, 2.0/3.0, d.NameRate, 1e-9)
	assert.InDelta(t, 1.0/3.0, d.AmountRate, 1e-9)
	assert.InDelta(t, 0.55, d.AvgNameConfidence, 1e-9)
	assert.InDelta(t, 0.95, d.AvgAmountConf, 1e-9)
	assert.InDelta(t, 2.0/3.0, d.FallbackRate, 1e-9)
	assert.Equal(t, QualityHistogram{Excellent: 1, Good: 0, Fair: 1, Poor: 1}, d.Quality)
	assert.Equal(t, []FallbackCount{
		{Name: FallbackGoalDefault, Count: 1},
		{Name: FallbackNameCapitalized, Count: 1},
		{Name: FallbackNameInternalFault, Count: 1},
	}, d.Fallbacks)
	assert.Equal(t, 3, d.Urgency["LOW"])
	assert.Equal(t, 3, d.Latency.Count)
	assert.Equal(t, 30.0, d.Latency.MaxMs)
	assert.Equal(t, 12.0, d.Latency.P50Ms)
	assert.Equal(t, 1, d.Documents)
	assert.Equal(t, 1, d.DocumentFailures)

	all := r.Dashboard(0)
	assert.Equal(t, 4, all.Sessions)
}

func TestDashboard_Empty(t *testing.T) {
	r, _ := newTestRecorder(DefaultConfig())
	d := r.Dashboard(time.Hour)
	assert.Zero(t, d.Sessions)
	assert.NotNil(t, d.Fallbacks)
	assert.Zero(t, d.Latency.Count)
}

func TestHealth(t *testing.T) {
	t.Run("healthy when idle", func(t *testing.T) {
		r, _ := newTestRecorder(DefaultConfig())
		h := r.Health()
		assert.Equal(t, StatusHealthy, h.Status)
		assert.Len(t, h.Checks, 3)
	})

	t.Run("error rate critical", func(t *testing.T) {
		r, _ := newTestRecorder(DefaultConfig())
		for i := range 10 {
			rec := goodRecord(testNow)
			rec.Error = i < 2
			r.RecordParsing(rec)
		}
		h := r.Health()
		assert.Equal(t, StatusCritical, h.Status)
		assert.Equal(t, StatusCritical, h.Checks[1].Status)
		assert.InDelta(t, 0.2, h.Checks[1].Value, 1e-9)
	})

	t.Run("latency warning", func(t *testing.T) {
		r, _ := newTestRecorder(DefaultConfig())
		rec := goodRecord(testNow)
		rec.DurationMs = 75
		r.RecordParsing(rec)
		h := r.Health()
		assert.Equal(t, StatusWarning, h.Status)
		assert.Equal(t, StatusWarning, h.Checks[2].Status)
	})

	t.Run("memory critical", func(t *testing.T) {
		r, _ := newTestRecorder(DefaultConfig())
		r.heapFunc = func() uint64 { return 600 << 20 }
		assert.Equal(t, StatusCritical, r.Health().Status)
	})

	t.Run("old sessions outside health window", func(t *testing.T) {
		r, _ := newTestRecorder(DefaultConfig())
		rec := goodRecord(testNow.Add(-time.Hour))
		rec.Error = true
		r.RecordParsing(rec)
		assert.Equal(t, StatusHealthy, r.Health().Status)
	})
}

func TestHealthThresholds_InvalidPairsFallBack(t *testing.T) {
	h := HealthThresholds{ErrorRateWarn: 0.5, ErrorRateCritical: 0.1}.withDefaults()
	assert.Equal(t, DefaultHealthThresholds(), h)
}

func TestExposition(t *testing.T) {
	r, _ := newTestRecorder(DefaultConfig())
	rec := goodRecord(testNow)
	rec.Fallbacks = []string{FallbackGoalDefault}
	r.RecordParsing(rec)
	r.RecordDocument(DocumentRecord{Format: "docx", Success: true})
	r.SampleSystem(nil)

	out := r.Exposition()
	for _, want := range []string{
		"# HELP storysignals_extractions_total",
		"# TYPE storysignals_extractions_total counter",
		"storysignals_extractions_total 1\n",
		`storysignals_fallbacks_total{mechanism="goal_default_synthesized"} 1`,
		`storysignals_documents_total{format="docx"} 1`,
		`storysignals_extraction_duration_ms{quantile="0.5"} 12`,
		"storysignals_extraction_duration_ms_count 1\n",
		`storysignals_quality_sessions{tier="excellent"} 1`,
		"storysignals_heap_alloc_bytes 6.7108864e+07\n",
		"storysignals_health_status 0\n",
	} {
		assert.Contains(t, out, want)
	}
}

func TestMetricsHandler(t *testing.T) {
	r, _ := newTestRecorder(DefaultConfig())
	r.RecordParsing(goodRecord(testNow))

	w := httptest.NewRecorder()
	r.MetricsHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))

	body := w.Body.String()
	assert.Contains(t, body, "storysignals_extractions_total 1\n")
	assert.Contains(t, body, "go_goroutines ")

	// The text view carries only the recorder's own families.
	assert.NotContains(t, r.Exposition(), "go_goroutines")
}

// No record, dashboard, or exposition may carry narrative text or values.
func TestNoNarrativeContentLeaks(t *testing.T) {
	r, _ := newTestRecorder(DefaultConfig())
	narrative := "My name is Jonathan Whitfield and I need $2,347 for rent"
	rec := goodRecord(testNow)
	rec.SessionID = "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"
	rec.NarrativeLength = len(narrative)
	rec.Fallbacks = []string{"Jonathan Whitfield", "2347", narrative, FallbackGoalDefault}
	rec.Relationship = "Jonathan Whitfield"
	rec.Urgency = "2347"
	r.RecordParsing(rec)

	var blobs []string
	for _, v := range []any{r.ParsingSince(time.Time{}), r.Dashboard(0), r.Health()} {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		blobs = append(blobs, string(b))
	}
	blobs = append(blobs, r.Exposition())

	for _, blob := range blobs {
		for _, secret := range []string{narrative, "Jonathan", "Whitfield", "2347", "2,347"} {
			assert.NotContains(t, blob, secret)
		}
	}
}

func TestRecorder_Concurrent(t *testing.T) {
	r, _ := newTestRecorder(Config{MaxParsingRecords: 50})
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				r.RecordParsing(goodRecord(testNow))
				_ = r.Dashboard(time.Hour)
				_ = r.Exposition()
			}
		}()
	}
	wg.Wait()
	p, _, _ := r.Len()
	assert.Equal(t, 50, p)
}

func TestPercentile(t *testing.T) {
	values := []float64{10, 20, 30, 40}
	assert.Equal(t, 10.0, percentile(values, 0))
	assert.Equal(t, 40.0, percentile(values, 100))
	assert.InDelta(t, 25.0, percentile(values, 50), 1e-9)
	assert.Zero(t, percentile(nil, 50))
}
