package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a static export.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusLoading   JobStatus = "loading"
	StatusRendering JobStatus = "rendering"
	StatusIndexing  JobStatus = "indexing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
)

// Job tracks the state of a single static export.
type Job struct {
	mu sync.Mutex

	ID        string   `json:"job_id"`
	Sets      []string `json:"sets"`
	OutputDir string   `json:"output_dir"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	errors []string
}

// Progress tracks export progress.
type Progress struct {
	TotalPages     int      `json:"total_pages"`
	PagesWritten   int      `json:"pages_written"`
	PagesUnchanged int      `json:"pages_unchanged"`
	PagesFailed    int      `json:"pages_failed"`
	Errors         []string `json:"errors"`
}

// NewJob creates a queued export of sets (all sets when empty) into outDir.
func NewJob(sets []string, outDir string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Sets:      append([]string(nil), sets...),
		OutputDir: outDir,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
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

// Cleanup removes finished jobs not updated within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.finished() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
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

// AddTotalPages grows the number of pages the export expects to write.
func (j *Job) AddTotalPages(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalPages += n
	j.UpdatedAt = time.Now()
}

// RecordPage counts one finished page.
func (j *Job) RecordPage(written, unchanged, failed bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch {
	case failed:
		j.Progress.PagesFailed++
	case unchanged:
		j.Progress.PagesUnchanged++
	case written:
		j.Progress.PagesWritten++
	}
	j.UpdatedAt = time.Now()
}

// Finish derives the final status from the page counts.
func (j *Job) Finish() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	ok := j.Progress.PagesWritten + j.Progress.PagesUnchanged
	switch {
	case len(j.errors) == 0:
		j.Status = StatusCompleted
	case ok > 0:
		j.Status = StatusPartial
	default:
		j.Status = StatusFailed
	}
	j.Phase = "done"
	j.UpdatedAt = time.Now()
	return j.Status
}

func (j *Job) finished() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed || j.Status == StatusPartial
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Sets      []string  `json:"sets"`
	OutputDir string    `json:"output_dir"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	sets := j.Sets
	if sets == nil {
		sets = []string{}
	}
	return JobSnapshot{
		ID:        j.ID,
		Sets:      append([]string(nil), sets...),
		OutputDir: j.OutputDir,
		Status:    j.Status,
		Phase:     j.Phase,
		Progress: Progress{
			TotalPages:     j.Progress.TotalPages,
			PagesWritten:   j.Progress.PagesWritten,
			PagesUnchanged: j.Progress.PagesUnchanged,
			PagesFailed:    j.Progress.PagesFailed,
			Errors:         errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
