// Package evidence persists raw tool output so findings always trace back to
// the text they were extracted from.
package evidence

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Jbase16/AraUltra/internal/domain/finding"
	sharederrors "github.com/Jbase16/AraUltra/internal/shared/errors"
)

// Entry is one captured piece of tool output plus the structured data later
// attached to it.
type Entry struct {
	ID        string            `json:"id"`
	Tool      string            `json:"tool"`
	RawOutput string            `json:"raw_output"`
	Summary   string            `json:"summary,omitempty"`
	Findings  []finding.Finding `json:"findings,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store keeps evidence entries in memory and mirrors raw text captures to
// files under the results directory.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry
	dir     string
}

// NewStore creates the evidence store. dir may be empty to disable the file
// mirror (useful in tests).
func NewStore(dir string) (*Store, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create evidence directory: %w", err)
		}
	}
	return &Store{entries: make(map[string]Entry), dir: dir}, nil
}

// SaveText persists one tool's raw capture keyed by tool and target. File
// write failures are swallowed; evidence mirroring must never fail a scan.
func (s *Store) SaveText(tool, target, text string) {
	if s.dir == "" {
		return
	}
	name := fmt.Sprintf("%s_%s_%d.txt", sanitize(tool), sanitize(target), time.Now().UnixNano())
	_ = os.WriteFile(filepath.Join(s.dir, name), []byte(text), 0o644)
}

// AddEvidence records a raw capture and returns its generated ID.
func (s *Store) AddEvidence(tool, rawOutput string, metadata map[string]string) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.entries[id] = Entry{
		ID:        id,
		Tool:      tool,
		RawOutput: rawOutput,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Unlock()
	return id
}

// UpdateEvidence attaches a summary and extracted findings to an entry.
func (s *Store) UpdateEvidence(id, summary string, findings []finding.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", sharederrors.ErrEvidenceNotFound, id)
	}
	entry.Summary = summary
	entry.Findings = findings
	s.entries[id] = entry
	return nil
}

// GetAll returns a copy of every evidence entry keyed by ID.
func (s *Store) GetAll() map[string]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Entry, len(s.entries))
	for id, e := range s.entries {
		out[id] = e
	}
	return out
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sanitize keeps filenames portable: anything outside [a-zA-Z0-9._-]
// becomes an underscore.
func sanitize(part string) string {
	var b strings.Builder
	for _, r := range part {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
