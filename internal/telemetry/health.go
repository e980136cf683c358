package telemetry

import (
	"fmt"
	"time"
)

// Status is a health classification.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

func (s Status) rank() int {
	switch s {
	case StatusWarning:
		return 1
	case StatusCritical:
		return 2
	}
	return 0
}

// HealthThresholds are the warning and critical limits for each check.
type HealthThresholds struct {
	MemoryWarnBytes     uint64  `yaml:"memory_warn_bytes"`
	MemoryCriticalBytes uint64  `yaml:"memory_critical_bytes"`
	ErrorRateWarn       float64 `yaml:"error_rate_warn"`
	ErrorRateCritical   float64 `yaml:"error_rate_critical"`
	LatencyWarnMs       float64 `yaml:"latency_warn_ms"`
	LatencyCriticalMs   float64 `yaml:"latency_critical_ms"`
}

func DefaultHealthThresholds() HealthThresholds {
	return HealthThresholds{
		MemoryWarnBytes:     256 << 20,
		MemoryCriticalBytes: 512 << 20,
		ErrorRateWarn:       0.05,
		ErrorRateCritical:   0.15,
		LatencyWarnMs:       50,
		LatencyCriticalMs:   100,
	}
}

func (h HealthThresholds) withDefaults() HealthThresholds {
	d := DefaultHealthThresholds()
	if h.MemoryWarnBytes == 0 || h.MemoryCriticalBytes <= h.MemoryWarnBytes {
		h.MemoryWarnBytes, h.MemoryCriticalBytes = d.MemoryWarnBytes, d.MemoryCriticalBytes
	}
	if h.ErrorRateWarn <= 0 || h.ErrorRateCritical <= h.ErrorRateWarn {
		h.ErrorRateWarn, h.ErrorRateCritical = d.ErrorRateWarn, d.ErrorRateCritical
	}
	if h.LatencyWarnMs <= 0 || h.LatencyCriticalMs <= h.LatencyWarnMs {
		h.LatencyWarnMs, h.LatencyCriticalMs = d.LatencyWarnMs, d.LatencyCriticalMs
	}
	return h
}

// Check is one health dimension.
type Check struct {
	Name    string  `json:"name"`
	Status  Status  `json:"status"`
	Value   float64 `json:"value"`
	Message string  `json:"message"`
}

// Health is the overall classification; the worst check decides.
type Health struct {
	Status    Status    `json:"status"`
	Checks    []Check   `json:"checks"`
	CheckedAt time.Time `json:"checked_at"`
}

func classify(value, warn, critical float64) Status {
	switch {
	case value >= critical:
		return StatusCritical
	case value >= warn:
		return StatusWarning
	}
	return StatusHealthy
}

// Health classifies memory, error rate and average latency. Error rate and
// latency cover the configured health window.
func (r *Recorder) Health() Health {
	now := r.now()
	th := r.cfg.Health

	r.mu.Lock()
	sessions := r.parsing.since(now.Add(-r.cfg.HealthWindow))
	r.mu.Unlock()

	var errs int
	var total float64
	for _, s := range sessions {
		if s.Error {
			errs++
		}
		total += s.DurationMs
	}
	var errRate, avgMs float64
	if len(sessions) > 0 {
		errRate = float64(errs) / float64(len(sessions))
		avgMs = total / float64(len(sessions))
	}
	heap := float64(r.heapFunc())

	checks := []Check{
		{
			Name:    "memory",
			Status:  classify(heap, float64(th.MemoryWarnBytes), float64(th.MemoryCriticalBytes)),
			Value:   heap,
			Message: fmt.Sprintf("heap %.1f MiB", heap/(1<<20)),
		},
		{
			Name:    "error_rate",
			Status:  classify(errRate, th.ErrorRateWarn, th.ErrorRateCritical),
			Value:   errRate,
			Message: fmt.Sprintf("%d of %d sessions failed", errs, len(sessions)),
		},
		{
			Name:    "latency",
			Status:  classify(avgMs, th.LatencyWarnMs, th.LatencyCriticalMs),
			Value:   avgMs,
			Message: fmt.Sprintf("average %.1f ms", avgMs),
		},
	}
	h := Health{Status: StatusHealthy, Checks: checks, CheckedAt: now}
	for _, c := range checks {
		if c.Status.rank() > h.Status.rank() {
			h.Status = c.Status
		}
	}
	return h
}
