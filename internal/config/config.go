package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Draft service connection; empty URL disables forwarding
	DraftServiceURL    string
	DraftServiceAPIKey string

	// Worker pool
	WorkerCount       int
	MaxQueueSize      int
	MaxConcurrentSink int

	// Upload and body limits
	MaxUploadBytes    int64
	MaxNarrativeBytes int

	// Rate limiting on /api
	RateLimit float64
	RateBurst int

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Extraction
	NormalizerCacheSize int
	CalibrationFile     string

	// Telemetry
	TelemetryArchivePath   string
	TelemetryFlushInterval time.Duration
	SystemSampleInterval   time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("STORYSIGNALS_API_KEY"),

		DraftServiceURL:    os.Getenv("DRAFT_SERVICE_URL"),
		DraftServiceAPIKey: os.Getenv("DRAFT_SERVICE_API_KEY"),

		WorkerCount:       envInt("WORKER_COUNT", 4),
		MaxQueueSize:      envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentSink: envInt("MAX_CONCURRENT_SINK", 10),

		MaxUploadBytes:    envInt64("MAX_UPLOAD_BYTES", 10485760), // 10MB
		MaxNarrativeBytes: envInt("MAX_NARRATIVE_BYTES", 100000),

		RateLimit: envFloat("RATE_LIMIT_RPS", 20),
		RateBurst: envInt("RATE_LIMIT_BURST", 40),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		NormalizerCacheSize: envInt("NORMALIZER_CACHE_SIZE", 1000),
		CalibrationFile:     os.Getenv("CALIBRATION_FILE"),

		TelemetryArchivePath:   os.Getenv("TELEMETRY_ARCHIVE_PATH"),
		TelemetryFlushInterval: envDuration("TELEMETRY_FLUSH_INTERVAL", 1*time.Minute),
		SystemSampleInterval:   envDuration("SYSTEM_SAMPLE_INTERVAL", 30*time.Second),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentSink <= 0 {
		cfg.MaxConcurrentSink = 10
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10485760
	}
	if cfg.MaxNarrativeBytes <= 0 {
		cfg.MaxNarrativeBytes = 100000
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 20
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 40
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.NormalizerCacheSize <= 0 {
		cfg.NormalizerCacheSize = 1000
	}
	if cfg.TelemetryFlushInterval <= 0 {
		cfg.TelemetryFlushInterval = 1 * time.Minute
	}
	if cfg.SystemSampleInterval <= 0 {
		cfg.SystemSampleInterval = 30 * time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("STORYSIGNALS_API_KEY is required")
	}
	if c.DraftServiceURL != "" && c.DraftServiceAPIKey == "" {
		return fmt.Errorf("DRAFT_SERVICE_API_KEY is required when DRAFT_SERVICE_URL is set")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
