package pipeline

import (
	"sync"
	"time"
)

// Status is a point-in-time view of a collection run.
type Status struct {
	RunID     string    `json:"run_id"`
	Phase     string    `json:"phase"`
	Scenario  string    `json:"scenario,omitempty"`
	Completed []string  `json:"completed"`
	Records   int       `json:"records"`
	Snapshots int       `json:"snapshots"`
	Failures  int       `json:"poll_failures"`
	Alerts    int       `json:"alerts"`
	StartedAt time.Time `json:"started_at"`
	LastError string    `json:"last_error,omitempty"`
}

type statusTracker struct {
	mu sync.RWMutex
	s  Status
}

func (t *statusTracker) update(fn func(s *Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.s)
}

func (t *statusTracker) get() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.s
	s.Completed = append([]string(nil), t.s.Completed...)
	return s
}
