package issue

import "github.com/Jbase16/AraUltra/internal/domain/finding"

// Issue is a correlated, higher-level concern derived from one or more
// findings by the enrichment pass. The issue set is recomputed wholesale on
// every enrichment refresh; issues are never patched in place.
type Issue struct {
	Title       string           `json:"title"`
	Type        string           `json:"type"`
	Severity    finding.Severity `json:"severity"`
	Asset       string           `json:"asset"`
	Target      string           `json:"target"`
	Description string           `json:"description,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	Tools       []string         `json:"tools,omitempty"`
	Evidence    int              `json:"evidence_count"`
}
