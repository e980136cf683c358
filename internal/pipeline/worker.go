package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/storysignals/internal/draftsink"
	"github.com/dgallion1/storysignals/internal/extract"
	"github.com/dgallion1/storysignals/internal/parser"
	"github.com/dgallion1/storysignals/internal/telemetry"
)

// DraftSink receives finished bundles. *draftsink.Client satisfies it.
type DraftSink interface {
	PutDraft(ctx context.Context, key string, d draftsink.Draft) error
}

// Worker processes a single file job.
type Worker struct {
	ex       *extract.Extractor
	sink     DraftSink
	jobs     *JobStore
	recorder *telemetry.Recorder
	log      *slog.Logger
	sinkSem  chan struct{}

	pdfFallback bool
	backoff     func(int) time.Duration
}

func NewWorker(ex *extract.Extractor, sink DraftSink, jobs *JobStore, rec *telemetry.Recorder, log *slog.Logger, sinkSem chan struct{}) *Worker {
	if sinkSem == nil {
		sinkSem = make(chan struct{}, 1)
	}
	return &Worker{
		ex:       ex,
		sink:     sink,
		jobs:     jobs,
		recorder: rec,
		log:      log,
		sinkSem:  sinkSem,
		backoff:  Backoff,
	}
}

// Process parses, extracts and forwards one job. Log lines carry ids and
// sizes only; the narrative and the extracted values never reach the log.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "batch_id", job.BatchID)

	// Phase 1: parse
	job.SetStatus(StatusParsing, "parsing")
	doc, err := parser.Read(bytes.NewReader(job.FileData()), job.Filename, parser.Options{PDFFallbackPdftotext: w.pdfFallback}, w.recorder)
	job.releaseFileData()
	if err != nil {
		log.Error("parse failed", "format", parser.Format(job.Filename), "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if strings.TrimSpace(doc.Narrative) == "" {
		log.Warn("no narrative text", "format", doc.Format)
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	// Phase 1.5: dedup within the job store's retention
	hash := ContentHashHex([]byte(doc.Narrative))
	job.SetContent(hash, len(doc.Narrative))
	if w.jobs != nil {
		if orig := w.jobs.FindByHash(hash, job.ID); orig != nil {
			log.Info("duplicate narrative, skipping", "original_job_id", orig.ID)
			if b, ok := orig.Bundle(); ok {
				job.SetBundle(b)
			}
			job.MarkDuplicate(orig.ID)
			return
		}
	}

	// Phase 2: extract
	job.SetStatus(StatusExtracting, "extracting")
	bundle := w.ex.Extract(ctx, extract.Input{
		Narrative:    doc.Narrative,
		Category:     job.Category,
		UrgencyHint:  job.UrgencyHint,
		FillDefaults: job.FillDefaults,
	})
	job.SetBundle(bundle)
	log.Info("extraction complete",
		"session_id", bundle.SessionID,
		"narrative_length", len(doc.Narrative),
		"fallbacks", len(bundle.Fallbacks),
	)

	if w.sink == nil {
		job.SetStatus(StatusCompleted, "done")
		return
	}

	// Phase 3: forward to the draft service with bounded concurrency
	job.SetStatus(StatusForwarding, "forwarding")
	select {
	case w.sinkSem <- struct{}{}:
	case <-ctx.Done():
		job.AddError("forward: " + ctx.Err().Error())
		job.SetStatus(StatusPartial, "forwarding")
		return
	}
	defer func() { <-w.sinkSem }()

	key := draftsink.Key(job.BatchID, job.Filename)
	draft := draftsink.Draft{
		Source:     "batch",
		BatchID:    job.BatchID,
		Bundle:     bundle,
		ReceivedAt: job.CreatedAt.UTC().Format(time.RFC3339),
	}
	attempts, err := withRetry(ctx, w.backoff, func() error {
		job.IncrSinkAttempts()
		err := w.sink.PutDraft(ctx, key, draft)
		if err != nil && IsRetryable(err) {
			log.Warn("retryable draft service error", "error", err)
		}
		return err
	})
	if err != nil {
		log.Error("forward failed", "attempts", attempts, "error", err)
		job.AddError(fmt.Sprintf("forward: %s", err))
		job.SetStatus(StatusPartial, "forwarding")
		return
	}

	job.SetForwarded()
	job.SetStatus(StatusCompleted, "done")
}
