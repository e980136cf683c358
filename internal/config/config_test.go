package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "WORKER_COUNT", "RATE_LIMIT_RPS", "JOB_TTL", "CALIBRATION_FILE"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("Port = %q, want 8090", cfg.Port)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want 4", cfg.WorkerCount)
	}
	if cfg.RateLimit != 20 || cfg.RateBurst != 40 {
		t.Errorf("rate limit = %v/%d, want 20/40", cfg.RateLimit, cfg.RateBurst)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("JobTTL = %v, want 1h", cfg.JobTTL)
	}
}

func TestLoad_ClampsInvalid(t *testing.T) {
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("RATE_LIMIT_RPS", "abc")
	t.Setenv("SYSTEM_SAMPLE_INTERVAL", "0s")
	cfg := Load()
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want 4", cfg.WorkerCount)
	}
	if cfg.RateLimit != 20 {
		t.Errorf("RateLimit = %v, want 20", cfg.RateLimit)
	}
	if cfg.SystemSampleInterval != 30*time.Second {
		t.Errorf("SystemSampleInterval = %v, want 30s", cfg.SystemSampleInterval)
	}
}

func TestValidate(t *testing.T) {
	if err := (Config{}).Validate(); err == nil {
		t.Error("expected error without API key")
	}
	if err := (Config{APIKey: "k", DraftServiceURL: "http://drafts"}).Validate(); err == nil {
		t.Error("expected error for draft URL without key")
	}
	if err := (Config{APIKey: "k"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadCalibration_Partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	doc := `urgency:
  critical: 0.8
  high: 0.55
  medium: 0.3
telemetry:
  retention: 6h
  health:
    latency_warn_ms: 20
    latency_critical_ms: 40
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write calibration: %v", err)
	}

	cal, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration: %v", err)
	}
	if cal.Urgency.Critical != 0.8 || cal.Urgency.Medium != 0.3 {
		t.Errorf("urgency = %+v", cal.Urgency)
	}
	if cal.Amount.Min != 50 || cal.Amount.Max != 100000 {
		t.Errorf("amount bounds should keep defaults, got %+v", cal.Amount)
	}
	if cal.Telemetry.Retention != 6*time.Hour {
		t.Errorf("retention = %v, want 6h", cal.Telemetry.Retention)
	}
	if cal.Telemetry.MaxParsingRecords != 1000 {
		t.Errorf("max parsing records = %d, want default 1000", cal.Telemetry.MaxParsingRecords)
	}
	if cal.Telemetry.Health.LatencyWarnMs != 20 {
		t.Errorf("latency warn = %v, want 20", cal.Telemetry.Health.LatencyWarnMs)
	}

	opts := cal.ExtractOptions(250)
	if opts.CacheSize != 250 || opts.Urgency.Thresholds.High != 0.55 {
		t.Errorf("extract options = %+v", opts)
	}
}

func TestLoadCalibration_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unordered": "urgency:\n  critical: 0.3\n  high: 0.5\n  medium: 0.7\n",
		"bounds":    "amount:\n  min: 500\n  max: 100\n",
		"syntax":    "urgency: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := LoadCalibration(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadCalibration_EmptyPath(t *testing.T) {
	cal, err := LoadCalibration("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cal != DefaultCalibration() {
		t.Errorf("expected defaults, got %+v", cal)
	}
}

func TestLoadCalibration_Missing(t *testing.T) {
	if _, err := LoadCalibration(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
