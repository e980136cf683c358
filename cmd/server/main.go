package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/storysignals/internal/api"
	"github.com/dgallion1/storysignals/internal/config"
	"github.com/dgallion1/storysignals/internal/draftsink"
	"github.com/dgallion1/storysignals/internal/extract"
	"github.com/dgallion1/storysignals/internal/pipeline"
	"github.com/dgallion1/storysignals/internal/telemetry"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	cal, err := config.LoadCalibration(cfg.CalibrationFile)
	if err != nil {
		log.Error("invalid calibration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := telemetry.NewRecorder(cal.Telemetry, log)
	ex := extract.New(cal.ExtractOptions(cfg.NormalizerCacheSize), rec, log)

	// Forwarding is optional; without it bundles are only held for polling.
	var sink pipeline.DraftSink
	var drafts *draftsink.Client
	if cfg.DraftServiceURL != "" {
		drafts = draftsink.NewClient(cfg.DraftServiceURL, cfg.DraftServiceAPIKey)
		sink = drafts
	}

	orch := pipeline.NewOrchestrator(cfg, ex, sink, rec, log)
	orch.Start(ctx)

	go sampleSystem(ctx, rec, ex, cfg.SystemSampleInterval)

	archiverDone := make(chan struct{})
	if cfg.TelemetryArchivePath != "" {
		archive, err := telemetry.OpenArchive(cfg.TelemetryArchivePath)
		if err != nil {
			log.Error("open telemetry archive", "error", err, "path", cfg.TelemetryArchivePath)
			os.Exit(1)
		}
		go func() {
			defer close(archiverDone)
			defer archive.Close()
			rec.RunArchiver(ctx, archive, cfg.TelemetryFlushInterval)
		}()
	} else {
		close(archiverDone)
	}

	srv := api.NewServer(orch, ex, rec, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		if drafts != nil {
			drafts.Close()
		}
		cancel()
	}()

	log.Info("starting storysignals",
		"port", cfg.Port,
		"workers", cfg.WorkerCount,
		"forwarding", sink != nil,
		"archive", cfg.TelemetryArchivePath != "",
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-archiverDone
}

// sampleSystem records a process sample every interval until ctx is done.
func sampleSystem(ctx context.Context, rec *telemetry.Recorder, ex *extract.Extractor, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	rec.SampleSystem(ex.Cache())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rec.SampleSystem(ex.Cache())
		}
	}
}
