package store

import (
	"sync"

	"github.com/Jbase16/AraUltra/internal/domain/finding"
)

// FindingsStore accumulates normalized findings for the current run.
// Append-only between clears; BulkAdd is atomic so readers never observe a
// partial batch.
type FindingsStore struct {
	mu       sync.Mutex
	findings []finding.Finding
	notifier
}

// NewFindingsStore returns an empty findings store.
func NewFindingsStore() *FindingsStore {
	return &FindingsStore{}
}

// Subscribe registers a callback fired once per mutation.
func (s *FindingsStore) Subscribe(fn Subscriber) {
	s.subscribe(fn)
}

// Add appends a single finding and notifies subscribers.
func (s *FindingsStore) Add(f finding.Finding) {
	s.mu.Lock()
	s.findings = append(s.findings, f)
	s.mu.Unlock()
	s.notify()
}

// BulkAdd appends a batch atomically, emitting one notification for the
// whole batch. Empty batches are a no-op.
func (s *FindingsStore) BulkAdd(batch []finding.Finding) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	s.findings = append(s.findings, batch...)
	s.mu.Unlock()
	s.notify()
}

// GetAll returns a copy of the current findings.
func (s *FindingsStore) GetAll() []finding.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]finding.Finding, len(s.findings))
	copy(out, s.findings)
	return out
}

// Len returns the number of stored findings.
func (s *FindingsStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.findings)
}

// Clear removes all findings and notifies subscribers.
func (s *FindingsStore) Clear() {
	s.mu.Lock()
	s.findings = nil
	s.mu.Unlock()
	s.notify()
}
