package telemetry

import (
	"sort"
	"time"
)

// QualityHistogram counts sessions per quality tier.
type QualityHistogram struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Fair      int `json:"fair"`
	Poor      int `json:"poor"`
}

func (h *QualityHistogram) add(t Tier) {
	switch t {
	case TierExcellent:
		h.Excellent++
	case TierGood:
		h.Good++
	case TierFair:
		h.Fair++
	default:
		h.Poor++
	}
}

// FallbackCount is one fallback mechanism's firing count.
type FallbackCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Dashboard aggregates records inside a rolling window.
type Dashboard struct {
	Window      string    `json:"window"`
	GeneratedAt time.Time `json:"generated_at"`

	Sessions          int     `json:"sessions"`
	Errors            int     `json:"errors"`
	NameRate          float64 `json:"name_extraction_rate"`
	AmountRate        float64 `json:"amount_extraction_rate"`
	AvgNameConfidence float64 `json:"avg_name_confidence"`
	AvgAmountConf     float64 `json:"avg_amount_confidence"`
	FallbackRate      float64 `json:"fallback_rate"`
	AvgQuality        float64 `json:"avg_quality"`

	Quality      QualityHistogram `json:"quality"`
	Fallbacks    []FallbackCount  `json:"fallbacks"`
	Urgency      map[string]int   `json:"urgency"`
	Relationship map[string]int   `json:"relationship"`
	Latency      LatencySnapshot  `json:"latency"`

	Documents        int `json:"documents"`
	DocumentFailures int `json:"document_failures"`

	LastSystem *SystemRecord `json:"last_system,omitempty"`
}

// Dashboard summarizes the records stamped within window of now. A
// non-positive window covers the whole retention period.
func (r *Recorder) Dashboard(window time.Duration) Dashboard {
	if window <= 0 || window > r.cfg.Retention {
		window = r.cfg.Retention
	}
	now := r.now()
	cutoff := now.Add(-window)

	r.mu.Lock()
	r.pruneLocked(now)
	sessions := r.parsing.since(cutoff)
	docs := r.documents.since(cutoff)
	sys, hasSys := r.system.last()
	r.mu.Unlock()

	d := Dashboard{
		Window:       window.String(),
		GeneratedAt:  now,
		Sessions:     len(sessions),
		Urgency:      map[string]int{},
		Relationship: map[string]int{},
		Documents:    len(docs),
	}
	if hasSys {
		d.LastSystem = &sys
	}
	for _, doc := range docs {
		if !doc.Success {
			d.DocumentFailures++
		}
	}
	if len(sessions) == 0 {
		d.Fallbacks = []FallbackCount{}
		return d
	}

	var names, amounts, withFallback int
	var nameConf, amountConf, qual float64
	durations := make([]float64, 0, len(sessions))
	fallbacks := map[string]int{}
	for _, s := range sessions {
		if s.Error {
			d.Errors++
		}
		if s.Name.Extracted {
			names++
			nameConf += s.Name.Confidence
		}
		if s.Amount.Extracted {
			amounts++
			amountConf += s.Amount.Confidence
		}
		if len(s.Fallbacks) > 0 {
			withFallback++
		}
		for _, f := range s.Fallbacks {
			fallbacks[f]++
		}
		if s.Urgency != "" {
			d.Urgency[s.Urgency]++
		}
		if s.Relationship != "" {
			d.Relationship[s.Relationship]++
		}
		qual += s.QualityScore
		d.Quality.add(TierOf(s.QualityScore))
		durations = append(durations, s.DurationMs)
	}

	n := float64(len(sessions))
	d.NameRate = float64(names) / n
	d.AmountRate = float64(amounts) / n
	if names > 0 {
		d.AvgNameConfidence = nameConf / float64(names)
	}
	if amounts > 0 {
		d.AvgAmountConf = amountConf / float64(amounts)
	}
	d.FallbackRate = float64(withFallback) / n
	d.AvgQuality = qual / n
	d.Latency = summarizeLatency(durations)

	d.Fallbacks = make([]FallbackCount, 0, len(fallbacks))
	for name, c := range fallbacks {
		d.Fallbacks = append(d.Fallbacks, FallbackCount{Name: name, Count: c})
	}
	sort.Slice(d.Fallbacks, func(i, j int) bool {
		if d.Fallbacks[i].Count != d.Fallbacks[j].Count {
			return d.Fallbacks[i].Count > d.Fallbacks[j].Count
		}
		return d.Fallbacks[i].Name < d.Fallbacks[j].Name
	})
	return d
}
