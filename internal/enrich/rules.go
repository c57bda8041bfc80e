// Package enrich implements the correlation pass turning raw findings into
// issues and killchain edges. Apply is pure and deterministic: the same
// finding set always yields the same issue set, so callers may replace the
// issues store wholesale on every refresh.
package enrich

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Jbase16/AraUltra/internal/domain/finding"
	"github.com/Jbase16/AraUltra/internal/domain/issue"
	"github.com/Jbase16/AraUltra/internal/domain/killchain"
)

var severityRank = map[finding.Severity]int{
	finding.SeverityInfo:     0,
	finding.SeverityLow:      1,
	finding.SeverityMedium:   2,
	finding.SeverityHigh:     3,
	finding.SeverityCritical: 4,
}

var rankSeverity = []finding.Severity{
	finding.SeverityInfo,
	finding.SeverityLow,
	finding.SeverityMedium,
	finding.SeverityHigh,
	finding.SeverityCritical,
}

// Apply correlates the accumulated findings of a run. Findings sharing an
// asset and type collapse into one issue; corroboration by two or more
// distinct tools escalates the issue one severity rank. Each issue also
// yields a correlation edge from its asset.
func Apply(findings []finding.Finding) ([]issue.Issue, []killchain.Edge) {
	type groupKey struct {
		asset string
		ftype string
	}
	type group struct {
		severity finding.Severity
		tools    map[string]struct{}
		tags     map[string]struct{}
		message  string
		count    int
	}

	groups := make(map[groupKey]*group)
	for _, f := range findings {
		key := groupKey{asset: f.Asset, ftype: f.Type}
		g, ok := groups[key]
		if !ok {
			g = &group{
				severity: f.Severity,
				tools:    make(map[string]struct{}),
				tags:     make(map[string]struct{}),
				message:  f.Message,
			}
			groups[key] = g
		}
		if severityRank[f.Severity] > severityRank[g.severity] {
			g.severity = f.Severity
			g.message = f.Message
		}
		g.tools[f.Tool] = struct{}{}
		for _, tag := range f.Tags {
			g.tags[tag] = struct{}{}
		}
		g.count++
	}

	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].asset != keys[j].asset {
			return keys[i].asset < keys[j].asset
		}
		return keys[i].ftype < keys[j].ftype
	})

	issues := make([]issue.Issue, 0, len(keys))
	edges := make([]killchain.Edge, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		severity := g.severity
		if len(g.tools) >= 2 {
			severity = escalate(severity)
		}
		title := fmt.Sprintf("%s on %s", humanize(key.ftype), key.asset)
		issues = append(issues, issue.Issue{
			Title:       title,
			Type:        key.ftype,
			Severity:    severity,
			Asset:       key.asset,
			Target:      key.asset,
			Description: g.message,
			Tags:        sortedSet(g.tags),
			Tools:       sortedSet(g.tools),
			Evidence:    g.count,
		})
		edges = append(edges, killchain.Edge{
			Source:   key.asset,
			Target:   title,
			Label:    key.ftype,
			Severity: severity,
			EdgeType: killchain.EdgeTypeCorrelation,
			Tags:     sortedSet(g.tags),
		})
	}
	return issues, edges
}

// escalate bumps a severity one rank, capped at CRITICAL.
func escalate(s finding.Severity) finding.Severity {
	rank := severityRank[s]
	if rank >= len(rankSeverity)-1 {
		return finding.SeverityCritical
	}
	return rankSeverity[rank+1]
}

func humanize(ftype string) string {
	words := strings.Split(strings.ReplaceAll(ftype, "_", " "), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
