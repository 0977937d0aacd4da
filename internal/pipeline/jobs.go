package pipeline

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/isdaudit/internal/extract"
)

// JobStatus represents the state of an extraction job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusReading    JobStatus = "reading"
	StatusExtracting JobStatus = "extracting"
	StatusStoring    JobStatus = "storing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Terminal reports whether no further transitions follow.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial, StatusDupSkipped:
		return true
	}
	return false
}

// Job tracks the state of a single document extraction.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	Filename string    `json:"filename"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`

	// Force re-extracts documents whose text was already saved.
	Force bool `json:"force"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
	result   *Result
	done     chan struct{}
	doneOnce sync.Once
}

// Result is what a finished job produced.
type Result struct {
	Record extract.FinancialRecord `json:"record"`
	Debug  extract.DebugInfo       `json:"-"`

	// ReportKey is the saved report, or the earlier one for duplicates.
	ReportKey string        `json:"report_key,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// NewJob creates a queued job for the given file contents.
func NewJob(filename string, data []byte, force bool) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Filename:  filename,
		Status:    StatusQueued,
		Phase:     "queued",
		Force:     force,
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
		done:      make(chan struct{}),
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

// Cleanup removes finished jobs older than the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		snap := job.Snapshot()
		if snap.Status.Terminal() && now.Sub(snap.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically. Terminal statuses release
// anyone blocked in Wait.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
	j.mu.Unlock()

	if status.Terminal() {
		j.doneOnce.Do(func() {
			if j.done != nil {
				close(j.done)
			}
		})
	}
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

func (j *Job) setResult(r *Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = r
}

func (j *Job) setContentHash(h string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = h
}

// Result returns the job outcome, or nil before it has one.
func (j *Job) Result() *Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// Wait blocks until the job finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) (JobSnapshot, error) {
	select {
	case <-j.done:
		return j.Snapshot(), nil
	case <-ctx.Done():
		return j.Snapshot(), ctx.Err()
	}
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Filename    string    `json:"filename"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	ContentHash string    `json:"content_hash,omitempty"`
	Errors      []string  `json:"errors"`
	Result      *Result   `json:"result,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	return JobSnapshot{
		ID:          j.ID,
		Filename:    j.Filename,
		Status:      j.Status,
		Phase:       j.Phase,
		ContentHash: j.ContentHash,
		Errors:      errs,
		Result:      j.result,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
