package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/sheetgen/internal/genealogy"
	"github.com/dgallion1/sheetgen/internal/ocr"
	"github.com/google/uuid"
)

// JobStatus represents the state of an OCR extraction job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusRecognizing JobStatus = "recognizing"
	StatusParsing     JobStatus = "parsing"
	StatusCompleted   JobStatus = "completed"
	StatusEmpty       JobStatus = "empty"
	StatusFailed      JobStatus = "failed"
)

// Terminal reports whether no further transitions will happen.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusEmpty || s == StatusFailed
}

// Job tracks one scanned sheet from upload to parsed document. Every run is a
// new job; results are never merged into an earlier one.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	Progress ocr.Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	image  []byte
	text   string
	doc    *genealogy.Document
	errors []string
}

// NewJob creates a queued job for an uploaded image.
func NewJob(filename string, image []byte) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		ContentHash: ContentHashHex(image),
		CreatedAt:   now,
		UpdatedAt:   now,
		image:       image,
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

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs that have not changed within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
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

// SetProgress records an OCR progress event. Its signature matches
// ocr.ProgressFunc.
func (j *Job) SetProgress(p ocr.Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress = p
	j.Phase = p.Phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetResult stores the recognized text and the parsed document, and drops
// the image, which is no longer needed.
func (j *Job) SetResult(text string, doc *genealogy.Document) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.text = text
	j.doc = doc
	j.image = nil
	j.UpdatedAt = time.Now()
}

// Result returns the recognized text and parsed document; doc is nil until
// the job has been parsed.
func (j *Job) Result() (text string, doc *genealogy.Document) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.text, j.doc
}

// Image returns the uploaded image bytes.
func (j *Job) Image() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.image
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID              string       `json:"job_id"`
	Status          JobStatus    `json:"status"`
	Phase           string       `json:"phase"`
	Filename        string       `json:"filename"`
	Progress        ocr.Progress `json:"progress"`
	ContentHash     string       `json:"content_hash,omitempty"`
	GenerationTitle string       `json:"generation_title,omitempty"`
	Persons         int          `json:"persons"`
	Errors          []string     `json:"errors"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.errors...)
	snap := JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Progress:    j.Progress,
		ContentHash: j.ContentHash,
		Errors:      errs,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	if j.doc != nil {
		snap.GenerationTitle = j.doc.GenerationTitle
		snap.Persons = len(j.doc.Persons)
	}
	return snap
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
