// Package risk scores assets from the correlated issue set.
package risk

import (
	"sort"
	"sync"

	"github.com/Jbase16/AraUltra/internal/domain/finding"
	"github.com/Jbase16/AraUltra/internal/store"
)

// SeverityWeights maps issue severity to its contribution to an asset's
// risk score.
var SeverityWeights = map[finding.Severity]float64{
	finding.SeverityCritical: 10,
	finding.SeverityHigh:     6,
	finding.SeverityMedium:   3,
	finding.SeverityLow:      1,
	finding.SeverityInfo:     0.5,
}

// Engine recomputes per-asset risk scores whenever the issues store changes.
type Engine struct {
	issues *store.IssuesStore

	mu     sync.Mutex
	scores map[string]float64
}

// NewEngine builds the risk engine and subscribes it to the issues store.
func NewEngine(issues *store.IssuesStore) *Engine {
	e := &Engine{issues: issues, scores: make(map[string]float64)}
	issues.Subscribe(e.Recalculate)
	e.Recalculate()
	return e
}

// Recalculate rebuilds the score table from the current issue set.
func (e *Engine) Recalculate() {
	scores := make(map[string]float64)
	for _, i := range e.issues.GetAll() {
		asset := i.Target
		if asset == "" {
			asset = i.Asset
		}
		if asset == "" {
			asset = "unknown"
		}
		weight, ok := SeverityWeights[i.Severity]
		if !ok {
			weight = SeverityWeights[finding.SeverityInfo]
		}
		scores[asset] += weight
	}
	e.mu.Lock()
	e.scores = scores
	e.mu.Unlock()
}

// Scores returns a snapshot of the per-asset risk scores.
func (e *Engine) Scores() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]float64, len(e.scores))
	for k, v := range e.scores {
		out[k] = v
	}
	return out
}

// Ranked returns assets ordered by descending score, ties broken by name.
func (e *Engine) Ranked() []Score {
	snapshot := e.Scores()
	out := make([]Score, 0, len(snapshot))
	for asset, value := range snapshot {
		out = append(out, Score{Asset: asset, Value: value})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Asset < out[j].Asset
	})
	return out
}

// Score is one asset's risk value.
type Score struct {
	Asset string  `json:"asset"`
	Value float64 `json:"value"`
}
