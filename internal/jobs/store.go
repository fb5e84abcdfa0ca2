package jobs

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"reviewlens/internal/model"
)

// Status is the lifecycle state of an analysis job.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Job is the externally visible state of one analysis run.
type Job struct {
	ID        string             `json:"id"`
	Query     string             `json:"query"`
	Status    Status             `json:"status"`
	Progress  []string           `json:"progress"`
	Errors    []string           `json:"errors"`
	Report    *model.FinalReport `json:"report,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Store tracks jobs with TTL expiry. Updates are serialized: the job
// value in the cache is immutable and replaced wholesale, so readers
// never observe a partially updated job.
type Store struct {
	cache *gocache.Cache
	mu    sync.Mutex
	now   func() time.Time
}

// NewStore creates a store whose jobs expire ttl after their last
// update.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		cache: gocache.New(ttl, 10*time.Minute),
		now:   time.Now,
	}
}

// Create registers a new running job and returns it.
func (s *Store) Create(query string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	job := &Job{
		ID:        newJobID(),
		Query:     query,
		Status:    StatusRunning,
		Progress:  []string{},
		Errors:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.cache.SetDefault(job.ID, job)
	return cloneJob(job)
}

// Get returns a snapshot of the job.
func (s *Store) Get(id string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.lookup(id)
	if !ok {
		return nil, false
	}
	return cloneJob(job), true
}

// AppendProgress adds progress lines to a running job.
func (s *Store) AppendProgress(id string, lines ...string) {
	s.update(id, func(job *Job) {
		job.Progress = append(job.Progress, lines...)
	})
}

// AppendErrors adds error lines without changing the job status.
func (s *Store) AppendErrors(id string, lines ...string) {
	s.update(id, func(job *Job) {
		job.Errors = append(job.Errors, lines...)
	})
}

// Complete marks the job done and attaches its report.
func (s *Store) Complete(id string, report *model.FinalReport) {
	s.update(id, func(job *Job) {
		job.Status = StatusComplete
		job.Report = report
	})
}

// Fail marks the job failed with a reason.
func (s *Store) Fail(id, reason string) {
	s.update(id, func(job *Job) {
		job.Status = StatusError
		if reason != "" {
			job.Errors = append(job.Errors, reason)
		}
	})
}

func (s *Store) update(id string, mutate func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.lookup(id)
	if !ok {
		return
	}
	next := cloneJob(job)
	mutate(next)
	next.UpdatedAt = s.now().UTC()
	s.cache.SetDefault(id, next)
}

func (s *Store) lookup(id string) (*Job, bool) {
	val, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	job, ok := val.(*Job)
	return job, ok
}

func cloneJob(job *Job) *Job {
	next := *job
	next.Progress = append([]string(nil), job.Progress...)
	next.Errors = append([]string(nil), job.Errors...)
	return &next
}

func newJobID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("job-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
