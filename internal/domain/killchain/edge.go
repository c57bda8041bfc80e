package killchain

import "github.com/Jbase16/AraUltra/internal/domain/finding"

// Edge types distinguish correlation edges built from issues from behavioral
// edges built directly from recon-phase findings.
const (
	EdgeTypeCorrelation = "issue-correlation"
	EdgeTypeBehavioral  = "behavioral-signal"
)

// Edge is a directed relationship between an asset and either another issue
// or a recon-phase marker.
type Edge struct {
	Source   string           `json:"source"`
	Target   string           `json:"target"`
	Label    string           `json:"label"`
	Severity finding.Severity `json:"severity"`
	EdgeType string           `json:"edge_type"`
	Signal   string           `json:"signal,omitempty"`
	Tags     []string         `json:"tags,omitempty"`
	Families []string         `json:"families,omitempty"`
}

// Signature is the dedup key for recon-phase edges accumulated across a run.
type Signature struct {
	Source   string
	Target   string
	Label    string
	EdgeType string
	Severity finding.Severity
}

// Sig returns the edge's dedup signature.
func (e Edge) Sig() Signature {
	return Signature{
		Source:   e.Source,
		Target:   e.Target,
		Label:    e.Label,
		EdgeType: e.EdgeType,
		Severity: e.Severity,
	}
}
