package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/storysignals/internal/extract"
)

// JobStatus represents the state of a batch extraction job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusExtracting JobStatus = "extracting"
	StatusForwarding JobStatus = "forwarding"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial, StatusDupSkipped:
		return true
	}
	return false
}

// Job tracks the extraction of a single uploaded file.
type Job struct {
	mu sync.Mutex

	ID      string `json:"job_id"`
	BatchID string `json:"batch_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	Category     string `json:"category,omitempty"`
	UrgencyHint  string `json:"urgency_hint,omitempty"`
	FillDefaults bool   `json:"fill_defaults"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	DuplicateOf string    `json:"duplicate_of,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	bundle   *extract.Bundle
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	NarrativeLength int      `json:"narrative_length"`
	SinkAttempts    int      `json:"sink_attempts"`
	Forwarded       bool     `json:"forwarded"`
	Errors          []string `json:"errors"`
}

// NewJob returns a queued job for one file.
func NewJob(id, batchID, filename string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:        id,
		BatchID:   batchID,
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Batch returns every job in a batch.
func (s *JobStore) Batch(batchID string) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Job
	for _, j := range s.jobs {
		if j.BatchID == batchID {
			out = append(out, j)
		}
	}
	return out
}

// FindByHash returns another job that already extracted the same narrative
// and finished successfully, or nil.
func (s *JobStore) FindByHash(hash, exceptID string) *Job {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if j.ID != exceptID {
			jobs = append(jobs, j)
		}
	}
	s.mu.Unlock()

	for _, j := range jobs {
		snap := j.Snapshot()
		if snap.ContentHash == hash && (snap.Status == StatusCompleted || snap.Status == StatusPartial) {
			return j
		}
	}
	return nil
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetContent records the narrative hash and length once parsing is done.
func (j *Job) SetContent(hash string, length int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
	j.Progress.NarrativeLength = length
	j.UpdatedAt = time.Now()
}

// MarkDuplicate finishes the job as a repeat of an earlier one.
func (j *Job) MarkDuplicate(originalID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.DuplicateOf = originalID
	j.Status = StatusDupSkipped
	j.Phase = "dedup"
	j.UpdatedAt = time.Now()
}

// SetBundle stores the extraction result.
func (j *Job) SetBundle(b extract.Bundle) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.bundle = &b
	j.UpdatedAt = time.Now()
}

// Bundle returns the extraction result, if any.
func (j *Job) Bundle() (extract.Bundle, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.bundle == nil {
		return extract.Bundle{}, false
	}
	return *j.bundle, true
}

// IncrSinkAttempts counts one draft-service call.
func (j *Job) IncrSinkAttempts() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.SinkAttempts++
	j.UpdatedAt = time.Now()
}

// SetForwarded marks the bundle as delivered to the draft service.
func (j *Job) SetForwarded() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Forwarded = true
	j.UpdatedAt = time.Now()
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// releaseFileData drops the upload once it has been parsed.
func (j *Job) releaseFileData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string          `json:"job_id"`
	BatchID     string          `json:"batch_id"`
	Status      JobStatus       `json:"status"`
	Phase       string          `json:"phase"`
	Filename    string          `json:"filename"`
	ContentHash string          `json:"content_hash,omitempty"`
	DuplicateOf string          `json:"duplicate_of,omitempty"`
	Progress    Progress        `json:"progress"`
	Bundle      *extract.Bundle `json:"bundle,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	var bundle *extract.Bundle
	if j.bundle != nil {
		b := *j.bundle
		b.Fallbacks = append([]string{}, b.Fallbacks...)
		bundle = &b
	}
	return JobSnapshot{
		ID:          j.ID,
		BatchID:     j.BatchID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		ContentHash: j.ContentHash,
		DuplicateOf: j.DuplicateOf,
		Progress: Progress{
			NarrativeLength: j.Progress.NarrativeLength,
			SinkAttempts:    j.Progress.SinkAttempts,
			Forwarded:       j.Progress.Forwarded,
			Errors:          errs,
		},
		Bundle:    bundle,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
