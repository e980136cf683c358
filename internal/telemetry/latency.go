package telemetry

import "sort"

// LatencySnapshot aggregates extraction durations.
type LatencySnapshot struct {
	Count int     `json:"count"`
	MinMs float64 `json:"min_ms"`
	MaxMs float64 `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

func summarizeLatency(values []float64) LatencySnapshot {
	if len(values) == 0 {
		return LatencySnapshot{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return LatencySnapshot{
		Count: len(sorted),
		MinMs: sorted[0],
		MaxMs: sorted[len(sorted)-1],
		AvgMs: sum / float64(len(sorted)),
		P50Ms: percentile(sorted, 50),
		P95Ms: percentile(sorted, 95),
		P99Ms: percentile(sorted, 99),
	}
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sortedValues []float64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return sortedValues[0]
	}
	if pct >= 100 {
		return sortedValues[len(sortedValues)-1]
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return sortedValues[lower]
	}
	weight := index - float64(lower)
	lo := sortedValues[lower]
	hi := sortedValues[upper]
	return lo + ((hi - lo) * weight)
}
