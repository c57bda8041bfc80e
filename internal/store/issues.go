package store

import (
	"sync"

	"github.com/Jbase16/AraUltra/internal/domain/issue"
)

// IssuesStore holds the correlated issue set. Each enrichment refresh
// replaces the set wholesale so stale issues from earlier passes never
// linger alongside their recomputed versions.
type IssuesStore struct {
	mu     sync.Mutex
	issues []issue.Issue
	notifier
}

// NewIssuesStore returns an empty issues store.
func NewIssuesStore() *IssuesStore {
	return &IssuesStore{}
}

// Subscribe registers a callback fired once per mutation.
func (s *IssuesStore) Subscribe(fn Subscriber) {
	s.subscribe(fn)
}

// Add appends a single issue.
func (s *IssuesStore) Add(i issue.Issue) {
	s.mu.Lock()
	s.issues = append(s.issues, i)
	s.mu.Unlock()
	s.notify()
}

// BulkAdd appends a batch of issues atomically. Empty batches are a no-op.
func (s *IssuesStore) BulkAdd(batch []issue.Issue) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	s.issues = append(s.issues, batch...)
	s.mu.Unlock()
	s.notify()
}

// ReplaceAll supersedes the entire issue set.
func (s *IssuesStore) ReplaceAll(issues []issue.Issue) {
	next := make([]issue.Issue, len(issues))
	copy(next, issues)
	s.mu.Lock()
	s.issues = next
	s.mu.Unlock()
	s.notify()
}

// GetAll returns a copy of the current issues.
func (s *IssuesStore) GetAll() []issue.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]issue.Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

// GetByAsset returns issues whose asset or target matches.
func (s *IssuesStore) GetByAsset(asset string) []issue.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []issue.Issue
	for _, i := range s.issues {
		if i.Asset == asset || i.Target == asset {
			out = append(out, i)
		}
	}
	return out
}

// Clear removes all issues and notifies subscribers.
func (s *IssuesStore) Clear() {
	s.mu.Lock()
	s.issues = nil
	s.mu.Unlock()
	s.notify()
}
