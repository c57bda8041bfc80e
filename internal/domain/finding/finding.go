package finding

import (
	"fmt"
	"strings"
)

// Severity is the normalized severity rank of a finding.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// NormalizeSeverity upper-cases a raw severity string and falls back to INFO
// when the value is empty or unrecognized.
func NormalizeSeverity(raw string) Severity {
	switch Severity(strings.ToUpper(strings.TrimSpace(raw))) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	case SeverityLow:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// Raw is a finding as emitted by a classifier or recon phase, before
// normalization. Optional fields may be left zero-valued.
type Raw struct {
	Tool     string            `json:"tool"`
	Type     string            `json:"type"`
	Severity string            `json:"severity,omitempty"`
	Message  string            `json:"message,omitempty"`
	Proof    string            `json:"proof,omitempty"`
	Target   string            `json:"target,omitempty"`
	Asset    string            `json:"asset,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Families []string          `json:"families,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Finding is an immutable normalized observation extracted from one tool's
// output. Asset and Target always carry the same normalized host; the
// pre-normalization value is kept under Metadata["original_target"].
type Finding struct {
	Tool        string            `json:"tool"`
	Type        string            `json:"type"`
	Severity    Severity          `json:"severity"`
	Message     string            `json:"message"`
	Asset       string            `json:"asset"`
	Target      string            `json:"target"`
	Tags        []string          `json:"tags"`
	Families    []string          `json:"families"`
	Metadata    map[string]string `json:"metadata"`
	Fingerprint string            `json:"fingerprint"`
}

// MakeFingerprint builds the dedup key for a finding within one scan run.
func MakeFingerprint(tool, asset, ftype string, severity Severity) string {
	return fmt.Sprintf("%s:%s:%s:%s", tool, asset, ftype, severity)
}

// HostNormalizer maps a raw target/asset value to its canonical host form.
type HostNormalizer func(raw string) string

// FromRaw applies the defaulting rules to one raw finding: message defaults
// from proof, tags/families default to empty slices, metadata to an empty map,
// severity is upper-cased, and the asset is normalized through hostOf.
func FromRaw(raw Raw, hostOf HostNormalizer) Finding {
	tool := raw.Tool
	if tool == "" {
		tool = "scanner"
	}
	ftype := raw.Type
	if ftype == "" {
		ftype = "generic"
	}
	message := raw.Message
	if message == "" {
		message = raw.Proof
	}

	severity := NormalizeSeverity(raw.Severity)

	originalTarget := raw.Target
	if originalTarget == "" {
		originalTarget = raw.Asset
	}
	if originalTarget == "" {
		originalTarget = "unknown"
	}
	asset := originalTarget
	if hostOf != nil {
		asset = hostOf(originalTarget)
	}

	tags := raw.Tags
	if tags == nil {
		tags = []string{}
	}
	families := raw.Families
	if families == nil {
		families = []string{}
	}
	metadata := make(map[string]string, len(raw.Metadata)+1)
	for k, v := range raw.Metadata {
		metadata[k] = v
	}
	if _, ok := metadata["original_target"]; !ok {
		metadata["original_target"] = originalTarget
	}

	return Finding{
		Tool:        tool,
		Type:        ftype,
		Severity:    severity,
		Message:     message,
		Asset:       asset,
		Target:      asset,
		Tags:        tags,
		Families:    families,
		Metadata:    metadata,
		Fingerprint: MakeFingerprint(tool, asset, ftype, severity),
	}
}

// Deduper tracks fingerprints seen within a single scan run.
type Deduper struct {
	seen map[string]struct{}
}

// NewDeduper returns an empty scan-run-scoped dedup set.
func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]struct{})}
}

// Admit records the fingerprint and reports whether it was new.
func (d *Deduper) Admit(fingerprint string) bool {
	if _, dup := d.seen[fingerprint]; dup {
		return false
	}
	d.seen[fingerprint] = struct{}{}
	return true
}

// Len returns the number of distinct fingerprints admitted so far.
func (d *Deduper) Len() int {
	return len(d.seen)
}

// NormalizeBatch converts a batch of raw findings, dropping any whose
// fingerprint the deduper has already admitted. It is pure given a fresh
// deduper: the same input against separate empty dedupers yields identical
// output, and a second pass against the same deduper yields nothing.
func NormalizeBatch(raws []Raw, hostOf HostNormalizer, dedupe *Deduper) []Finding {
	out := make([]Finding, 0, len(raws))
	for _, raw := range raws {
		f := FromRaw(raw, hostOf)
		if dedupe != nil && !dedupe.Admit(f.Fingerprint) {
			continue
		}
		out = append(out, f)
	}
	return out
}
