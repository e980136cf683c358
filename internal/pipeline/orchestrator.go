package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/storysignals/internal/config"
	"github.com/dgallion1/storysignals/internal/extract"
	"github.com/dgallion1/storysignals/internal/telemetry"
)

// Orchestrator runs batch extraction jobs on a fixed worker pool.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	ex       *extract.Extractor
	sink     DraftSink
	recorder *telemetry.Recorder
	log      *slog.Logger
	cfg      config.Config
	sinkSem  chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. sink may be nil, in which case
// bundles are only kept on the job for polling.
func NewOrchestrator(cfg config.Config, ex *extract.Extractor, sink DraftSink, rec *telemetry.Recorder, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		queue:    make(chan *Job, cfg.MaxQueueSize),
		ex:       ex,
		sink:     sink,
		recorder: rec,
		log:      log,
		cfg:      cfg,
		sinkSem:  make(chan struct{}, max(cfg.MaxConcurrentSink, 1)),
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := o.newWorker()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

func (o *Orchestrator) newWorker() *Worker {
	w := NewWorker(o.ex, o.sink, o.jobs, o.recorder, o.log, o.sinkSem)
	w.pdfFallback = o.cfg.PDFFallbackPdftotext
	return w
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// Batch returns snapshots of every job in a batch.
func (o *Orchestrator) Batch(batchID string) []JobSnapshot {
	jobs := o.jobs.Batch(batchID)
	out := make([]JobSnapshot, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Snapshot())
	}
	return out
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Capacity returns the queue size.
func (o *Orchestrator) Capacity() int {
	return cap(o.queue)
}
