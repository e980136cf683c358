package telemetry

import (
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

const metricNamespace = "storysignals"

func desc(name, help string, labels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(metricNamespace, "", name), help, labels, nil)
}

var (
	extractionsDesc     = desc("extractions_total", "Extraction sessions recorded since start.")
	extractionErrsDesc  = desc("extraction_errors_total", "Extraction sessions with an internal fault.")
	fallbacksDesc       = desc("fallbacks_total", "Fallback mechanisms fired, by mechanism.", "mechanism")
	documentsDesc       = desc("documents_total", "Transcript files read, by format.", "format")
	documentErrsDesc    = desc("document_errors_total", "Transcript files that failed to parse.")
	displacedDesc       = desc("records_displaced_total", "Records displaced from full buffers.")
	durationDesc        = desc("extraction_duration_ms", "Extraction latency over the retention window.")
	qualityAvgDesc      = desc("quality_score_avg", "Average session quality score (0-100) over the retention window.")
	qualityTierDesc     = desc("quality_sessions", "Sessions per quality tier over the retention window.", "tier")
	nameConfDesc        = desc("name_confidence_avg", "Average confidence of extracted names.")
	amountConfDesc      = desc("amount_confidence_avg", "Average confidence of extracted goal amounts.")
	fallbackRateDesc    = desc("fallback_rate", "Share of sessions where any fallback fired.")
	heapDesc            = desc("heap_alloc_bytes", "Heap bytes at the last system sample.")
	cacheEntriesDesc    = desc("normalizer_cache_entries", "Normalizer cache size at the last system sample.")
	healthStatusDesc    = desc("health_status", "Health classification: 0 healthy, 1 warning, 2 critical.")
	recorderDescriptors = []*prometheus.Desc{
		extractionsDesc, extractionErrsDesc, fallbacksDesc, documentsDesc,
		documentErrsDesc, displacedDesc, durationDesc, qualityAvgDesc,
		qualityTierDesc, nameConfDesc, amountConfDesc, fallbackRateDesc,
		heapDesc, cacheEntriesDesc, healthStatusDesc,
	}
)

// collector exposes the recorder's totals and windowed aggregates as const
// metrics computed at scrape time.
type collector struct {
	r *Recorder
}

func (c collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range recorderDescriptors {
		ch <- d
	}
}

func (c collector) Collect(ch chan<- prometheus.Metric) {
	r := c.r
	dash := r.Dashboard(0)
	health := r.Health()

	r.mu.Lock()
	t := r.totals
	fallbacks := maps.Clone(t.fallbacks)
	formats := maps.Clone(t.documentsByFmt)
	r.mu.Unlock()

	counter := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, labels...)
	}
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	counter(extractionsDesc, float64(t.sessions))
	counter(extractionErrsDesc, float64(t.errors))
	for name, n := range fallbacks {
		counter(fallbacksDesc, float64(n), name)
	}
	for format, n := range formats {
		counter(documentsDesc, float64(n), format)
	}
	counter(documentErrsDesc, float64(t.documentErrors))
	counter(displacedDesc, float64(t.dropped))

	ch <- prometheus.MustNewConstSummary(durationDesc,
		uint64(dash.Latency.Count),
		dash.Latency.AvgMs*float64(dash.Latency.Count),
		map[float64]float64{0.5: dash.Latency.P50Ms, 0.95: dash.Latency.P95Ms, 0.99: dash.Latency.P99Ms},
	)

	gauge(qualityAvgDesc, dash.AvgQuality)
	gauge(qualityTierDesc, float64(dash.Quality.Excellent), "excellent")
	gauge(qualityTierDesc, float64(dash.Quality.Good), "good")
	gauge(qualityTierDesc, float64(dash.Quality.Fair), "fair")
	gauge(qualityTierDesc, float64(dash.Quality.Poor), "poor")
	gauge(nameConfDesc, dash.AvgNameConfidence)
	gauge(amountConfDesc, dash.AvgAmountConf)
	gauge(fallbackRateDesc, dash.FallbackRate)

	if dash.LastSystem != nil {
		gauge(heapDesc, float64(dash.LastSystem.HeapAllocBytes))
		gauge(cacheEntriesDesc, float64(dash.LastSystem.CacheEntries))
	}
	gauge(healthStatusDesc, float64(health.Status.rank()))
}

// newRegistry registers the recorder's metrics alongside the Go runtime
// collector.
func newRegistry(r *Recorder) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collector{r: r}, collectors.NewGoCollector())
	return reg
}

// MetricsHandler serves the registry in the Prometheus exposition format.
func (r *Recorder) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		ErrorLog:      slogErrorLog{r},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// slogErrorLog routes promhttp errors to the recorder's logger.
type slogErrorLog struct{ r *Recorder }

func (l slogErrorLog) Println(v ...any) {
	l.r.logger.Error("metrics scrape failed", "error", fmt.Sprint(v...))
}

// WriteExposition writes the recorder's own metric families in the text
// format.
func (r *Recorder) WriteExposition(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), metricNamespace+"_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Exposition returns the metrics text.
func (r *Recorder) Exposition() string {
	var sb strings.Builder
	_ = r.WriteExposition(&sb)
	return sb.String()
}
