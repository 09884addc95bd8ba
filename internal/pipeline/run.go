package pipeline

import (
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/patrickmn/go-cache"

	"github.com/dgallion1/quizzer/internal/quiz"
)

// RunStatus represents the state of a quiz generation run.
type RunStatus string

const (
	StatusQueued     RunStatus = "queued"
	StatusIngesting  RunStatus = "ingesting"
	StatusSegmenting RunStatus = "segmenting"
	StatusGenerating RunStatus = "generating"
	StatusCompleted  RunStatus = "completed"
	StatusPartial    RunStatus = "partial"
	StatusFailed     RunStatus = "failed"
)

// Done reports whether the status is terminal.
func (s RunStatus) Done() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusFailed
}

// NewRunID returns a fresh, time-ordered run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// Run tracks the state of a single document-to-quiz run.
type Run struct {
	mu sync.Mutex

	ID       string    `json:"run_id"`
	Filename string    `json:"filename"`
	Status   RunStatus `json:"status"`
	Phase    string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	source     string
	candidates []quiz.Candidate
	errors     []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalChunks     int      `json:"total_chunks"`
	ChunksProcessed int      `json:"chunks_processed"`
	ChunksFailed    int      `json:"chunks_failed"`
	ChunksResumed   int      `json:"chunks_resumed"`
	Questions       int      `json:"questions"`
	Errors          []string `json:"errors"`
}

// NewRun creates a queued run for source, which is a file path or data URI.
// filename is only used for display.
func NewRun(source, filename string) *Run {
	now := time.Now()
	return &Run{
		ID:        NewRunID(),
		Filename:  filename,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		source:    source,
	}
}

// Source returns the document reference the run was created with.
func (r *Run) Source() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.source
}

// SetStatus updates run status atomically.
func (r *Run) SetStatus(status RunStatus, phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	r.Phase = phase
	r.UpdatedAt = time.Now()
}

// AddError records an error.
func (r *Run) AddError(err string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
	r.Progress.Errors = r.errors
	r.UpdatedAt = time.Now()
}

// SetTotalChunks records total chunk count.
func (r *Run) SetTotalChunks(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.TotalChunks = n
	r.UpdatedAt = time.Now()
}

// RecordUnit counts a finished unit. resumed marks one served from the
// checkpoint.
func (r *Run) RecordUnit(questions int, failed, resumed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.ChunksProcessed++
	if failed {
		r.Progress.ChunksFailed++
	}
	if resumed {
		r.Progress.ChunksResumed++
	}
	r.Progress.Questions += questions
	r.UpdatedAt = time.Now()
}

// SetCandidates stores the run's final questions.
func (r *Run) SetCandidates(cands []quiz.Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates = cands
	r.UpdatedAt = time.Now()
}

// Candidates returns a copy of the run's final questions.
func (r *Run) Candidates() []quiz.Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.candidates)
}

// Reset returns a finished run to the queued state so it can be executed
// again under the same ID.
func (r *Run) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = StatusQueued
	r.Phase = "queued"
	r.Progress = Progress{}
	r.candidates = nil
	r.errors = nil
	r.UpdatedAt = time.Now()
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID        string    `json:"run_id"`
	Filename  string    `json:"filename"`
	Status    RunStatus `json:"status"`
	Phase     string    `json:"phase"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.Progress
	p.Errors = slices.Clone(r.Progress.Errors)
	if p.Errors == nil {
		p.Errors = []string{}
	}
	return RunSnapshot{
		ID:        r.ID,
		Filename:  r.Filename,
		Status:    r.Status,
		Phase:     r.Phase,
		Progress:  p,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// RunStore is a thread-safe in-memory run registry. Runs expire ttl after
// their last Put.
type RunStore struct {
	c *cache.Cache
}

func NewRunStore(ttl time.Duration) *RunStore {
	cleanup := ttl / 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &RunStore{c: cache.New(ttl, cleanup)}
}

func (s *RunStore) Put(run *Run) {
	s.c.SetDefault(run.ID, run)
}

func (s *RunStore) Get(id string) *Run {
	v, ok := s.c.Get(id)
	if !ok {
		return nil
	}
	return v.(*Run)
}

// Len returns the number of unexpired runs.
func (s *RunStore) Len() int {
	return s.c.ItemCount()
}
