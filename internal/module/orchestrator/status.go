package orchestrator

import (
	"sync"
	"time"
)

// Status describes the current or last run
type Status struct {
	RunID         string    `json:"run_id"`
	Running       bool      `json:"running"`
	CurrentSource string    `json:"current_source"`
	SourcesDone   int       `json:"sources_done"`
	SourcesTotal  int       `json:"sources_total"`
	JobsFound     int       `json:"jobs_found"`
	Progress      int       `json:"progress"` // percent of sources done
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

// statusBox owns the run status. Only the orchestrator writes it; readers
// get copies.
type statusBox struct {
	mu sync.RWMutex
	s  Status
}

func (b *statusBox) snapshot() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.s
}

func (b *statusBox) update(fn func(s *Status)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.s)
}
