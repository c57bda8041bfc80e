package store

import (
	"sync"

	"github.com/Jbase16/AraUltra/internal/domain/killchain"
)

// KillchainStore holds the directed relationship edges for the current run.
// Enrichment edges are replaced on every refresh while behavioral recon
// edges accumulate; Refresh recomputes the visible list as the union of the
// two rather than storing it redundantly.
type KillchainStore struct {
	mu    sync.Mutex
	edges []killchain.Edge
	notifier
}

// NewKillchainStore returns an empty killchain store.
func NewKillchainStore() *KillchainStore {
	return &KillchainStore{}
}

// Subscribe registers a callback fired once per mutation.
func (s *KillchainStore) Subscribe(fn Subscriber) {
	s.subscribe(fn)
}

// Add appends a single edge.
func (s *KillchainStore) Add(e killchain.Edge) {
	s.mu.Lock()
	s.edges = append(s.edges, e)
	s.mu.Unlock()
	s.notify()
}

// BulkAdd appends a batch of edges atomically. Empty batches are a no-op.
func (s *KillchainStore) BulkAdd(batch []killchain.Edge) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	s.edges = append(s.edges, batch...)
	s.mu.Unlock()
	s.notify()
}

// ReplaceAll supersedes the entire visible edge list.
func (s *KillchainStore) ReplaceAll(edges []killchain.Edge) {
	next := make([]killchain.Edge, len(edges))
	copy(next, edges)
	s.mu.Lock()
	s.edges = next
	s.mu.Unlock()
	s.notify()
}

// Refresh replaces the visible edge list with the union of the latest
// enrichment edges and the run's accumulated recon edges.
func (s *KillchainStore) Refresh(enrichment, recon []killchain.Edge) {
	combined := make([]killchain.Edge, 0, len(enrichment)+len(recon))
	combined = append(combined, enrichment...)
	combined = append(combined, recon...)
	s.mu.Lock()
	s.edges = combined
	s.mu.Unlock()
	s.notify()
}

// GetAll returns a copy of the visible edges.
func (s *KillchainStore) GetAll() []killchain.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]killchain.Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// GetByAsset returns edges touching the given asset on either end.
func (s *KillchainStore) GetByAsset(asset string) []killchain.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []killchain.Edge
	for _, e := range s.edges {
		if e.Source == asset || e.Target == asset {
			out = append(out, e)
		}
	}
	return out
}

// Clear removes all edges and notifies subscribers.
func (s *KillchainStore) Clear() {
	s.mu.Lock()
	s.edges = nil
	s.mu.Unlock()
	s.notify()
}
