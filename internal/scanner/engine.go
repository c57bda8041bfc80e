package scanner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Jbase16/AraUltra/internal/domain/finding"
	"github.com/Jbase16/AraUltra/internal/domain/issue"
	"github.com/Jbase16/AraUltra/internal/domain/killchain"
	"github.com/Jbase16/AraUltra/internal/shared/constants"
	sharederrors "github.com/Jbase16/AraUltra/internal/shared/errors"
	"github.com/Jbase16/AraUltra/internal/store"
)

// EnrichFunc correlates the accumulated findings of a run into issues and
// relationship edges. It must be pure and deterministic.
type EnrichFunc func([]finding.Finding) ([]issue.Issue, []killchain.Edge)

// Options select and bound one scan run.
type Options struct {
	// Tools is an explicit selection; empty means every installed tool.
	Tools []string
	// Aggressive opts in to intrusive tools; they are skipped otherwise.
	Aggressive bool
	// Concurrency overrides the default bound when positive.
	Concurrency int
}

// Engine is the bounded-concurrency scan coordinator. It schedules tool
// subprocesses, streams their interleaved output, normalizes and dedupes
// findings, and fans results out to the reactive stores.
type Engine struct {
	registry   *Registry
	findings   *store.FindingsStore
	issues     *store.IssuesStore
	killchain  *store.KillchainStore
	evidence   EvidenceSink
	classifier Classifier
	phases     PhaseRunner
	enrich     EnrichFunc
	launches   *rate.Limiter
	logger     *zap.SugaredLogger

	mu          sync.Mutex
	lastResults []finding.Finding
}

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	Registry   *Registry
	Findings   *store.FindingsStore
	Issues     *store.IssuesStore
	Killchain  *store.KillchainStore
	Evidence   EvidenceSink
	Classifier Classifier
	Phases     PhaseRunner
	Enrich     EnrichFunc
	LaunchRate float64
	Logger     *zap.SugaredLogger
}

// NewEngine constructs the coordinator.
func NewEngine(cfg EngineConfig) *Engine {
	launchRate := cfg.LaunchRate
	if launchRate <= 0 {
		launchRate = constants.DefaultLaunchRate
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{
		registry:   cfg.Registry,
		findings:   cfg.Findings,
		issues:     cfg.Issues,
		killchain:  cfg.Killchain,
		evidence:   cfg.Evidence,
		classifier: cfg.Classifier,
		phases:     cfg.Phases,
		enrich:     cfg.Enrich,
		launches:   rate.NewLimiter(rate.Limit(launchRate), 1),
		logger:     logger,
	}
}

// LastResults returns the findings produced by the most recent scan.
func (e *Engine) LastResults() []finding.Finding {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]finding.Finding, len(e.lastResults))
	copy(out, e.lastResults)
	return out
}

// Scan runs the full pipeline against one target and returns the live log
// stream. The channel is closed when the run reaches its terminal state.
// Cancelling ctx stops the coordinator loop and log delivery; subprocesses
// already launched run to completion in the background.
func (e *Engine) Scan(ctx context.Context, target string, opts Options) (<-chan string, error) {
	if strings.TrimSpace(target) == "" {
		return nil, sharederrors.ErrEmptyTarget
	}
	out := make(chan string, 64)
	go func() {
		defer close(out)
		e.run(ctx, target, opts, out)
	}()
	return out, nil
}

// runState is the per-run context discarded when the next scan begins.
type runState struct {
	dedupe     *finding.Deduper
	reconEdges []killchain.Edge
	reconSigs  map[killchain.Signature]struct{}
}

func (e *Engine) run(ctx context.Context, target string, opts Options, out chan<- string) {
	state := &runState{
		dedupe:    finding.NewDeduper(),
		reconSigs: make(map[killchain.Signature]struct{}),
	}
	e.mu.Lock()
	e.lastResults = nil
	e.mu.Unlock()

	installed := e.registry.Installed()
	toolsToRun, missing, gated := e.selectTools(installed, opts)

	if len(opts.Tools) > 0 {
		emit(ctx, out, fmt.Sprintf("[scanner] Selected tools: %s", strings.Join(intersectCatalog(e.registry, opts.Tools), ", ")))
	}
	if len(missing) > 0 {
		emit(ctx, out, fmt.Sprintf("[scanner] Skipping (not installed): %s", strings.Join(missing, ", ")))
	}
	if len(gated) > 0 {
		emit(ctx, out, fmt.Sprintf("[scanner] Skipping aggressive tools (enable with --aggressive): %s", strings.Join(gated, ", ")))
	}

	if len(toolsToRun) == 0 {
		emit(ctx, out, "[scanner] No supported tools available in PATH. Skipping tool phase.")
		return
	}
	emit(ctx, out, fmt.Sprintf("Installed tools: %s", strings.Join(toolsToRun, ", ")))

	e.runToolPhase(ctx, target, toolsToRun, installed, opts, out, state)
	if ctx.Err() != nil {
		return
	}

	e.runExtraPhases(ctx, target, out, state)
	if ctx.Err() != nil {
		return
	}

	issueCount, edgeCount := e.refreshEnrichment(state)
	emit(ctx, out, fmt.Sprintf("[rules] %d correlated issue(s).", issueCount))
	emit(ctx, out, fmt.Sprintf("[killchain] %d relationship edge(s) generated.", edgeCount))
	emit(ctx, out, "[scanner] Scan run complete.")
}

// selectTools intersects the explicit selection with availability, splitting
// out the skipped names: missing (requested but unavailable) and gated
// (aggressive without opt-in).
func (e *Engine) selectTools(installed map[string]Tool, opts Options) (run, missing, gated []string) {
	var candidates []string
	if len(opts.Tools) > 0 {
		for _, name := range intersectCatalog(e.registry, opts.Tools) {
			if _, ok := installed[name]; ok {
				candidates = append(candidates, name)
			} else {
				missing = append(missing, name)
			}
		}
	} else {
		for name := range installed {
			candidates = append(candidates, name)
		}
		sort.Strings(candidates)
	}

	for _, name := range candidates {
		if installed[name].Aggressive && !opts.Aggressive {
			gated = append(gated, name)
			continue
		}
		run = append(run, name)
	}
	return run, missing, gated
}

// intersectCatalog filters a selection down to names the catalog knows,
// preserving the caller's order.
func intersectCatalog(r *Registry, names []string) []string {
	var out []string
	for _, name := range names {
		if _, ok := r.Get(name); ok {
			out = append(out, name)
		}
	}
	return out
}

// runToolPhase is the work-conserving bounded-concurrency scheduler. Pending
// tools launch FIFO into at most C running slots; each completion frees its
// slot for the next pending tool, and queued log lines are drained between
// completions so output interleaves live.
func (e *Engine) runToolPhase(ctx context.Context, target string, toolsToRun []string, installed map[string]Tool, opts Options, out chan<- string, state *runState) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrency
	}

	logq := make(chan string, 256)
	results := make(chan toolResult, len(toolsToRun))

	pending := append([]string{}, toolsToRun...)
	running := make(map[string]struct{}, concurrency)

	launch := func(name string) {
		tool := installed[name]
		argv := e.registry.Command(tool, target)
		running[name] = struct{}{}
		emit(ctx, out, fmt.Sprintf("[scanner] Started %s (batch launch)", name))
		go func() {
			_ = e.launches.Wait(ctx)
			results <- runToolTask(ctx, tool, argv, target, logq, e.evidence, e.classifier)
		}()
	}

	for len(pending) > 0 && len(running) < concurrency {
		launch(pending[0])
		pending = pending[1:]
	}

	for len(running) > 0 {
		select {
		case line := <-logq:
			emit(ctx, out, line)
		case res := <-results:
			// Flush lines the finished task queued before its completion
			// signal, so its exit line precedes the next launch line.
			drainLogQueue(ctx, logq, out)
			delete(running, res.tool)
			e.logger.Debugw("tool completed", "tool", res.tool, "started", res.started, "exit_code", res.exitCode)
			e.publishBatch(ctx, res.tool, res.raws, out, state)
			if len(pending) > 0 {
				launch(pending[0])
				pending = pending[1:]
			}
		case <-ctx.Done():
			e.logger.Infow("scan cancelled; launched tools run to completion in background", "target", target)
			return
		}
	}

	// Drain any lines still queued after the last completion.
	drainLogQueue(ctx, logq, out)
}

// drainLogQueue forwards every line currently queued without blocking.
func drainLogQueue(ctx context.Context, logq <-chan string, out chan<- string) {
	for {
		select {
		case line := <-logq:
			emit(ctx, out, line)
		default:
			return
		}
	}
}

// publishBatch normalizes one tool's raw findings against the run's dedup
// set, appends the batch atomically, and triggers an enrichment refresh over
// the entire accumulated finding set.
func (e *Engine) publishBatch(ctx context.Context, source string, raws []finding.Raw, out chan<- string, state *runState) {
	normalized := finding.NormalizeBatch(raws, HostOf, state.dedupe)
	if len(normalized) == 0 {
		return
	}
	e.findings.BulkAdd(normalized)
	e.mu.Lock()
	e.lastResults = append(e.lastResults, normalized...)
	e.mu.Unlock()
	emit(ctx, out, fmt.Sprintf("[scanner] Recorded %d finding(s) from %s.", len(normalized), source))
	e.refreshEnrichment(state)
}

// runExtraPhases executes the fixed post-tool phase sequence, publishing each
// phase's findings and accumulating recon-phase behavioral edges.
func (e *Engine) runExtraPhases(ctx context.Context, target string, out chan<- string, state *runState) {
	if e.phases == nil {
		return
	}
	phaseResults := e.phases.RunAllPhases(ctx, target, func(line string) {
		emit(ctx, out, line)
	})

	names := make([]string, 0, len(phaseResults))
	for name := range phaseResults {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		normalized := finding.NormalizeBatch(phaseResults[name], HostOf, state.dedupe)
		if len(normalized) == 0 {
			continue
		}
		e.findings.BulkAdd(normalized)
		e.mu.Lock()
		e.lastResults = append(e.lastResults, normalized...)
		e.mu.Unlock()
		emit(ctx, out, fmt.Sprintf("[phase] %s produced %d finding(s).", name, len(normalized)))
		e.recordReconEdges(buildReconEdges(normalized), state)
		e.refreshEnrichment(state)
	}
}

// buildReconEdges derives behavioral edges from findings whose families carry
// a recon-phase prefix.
func buildReconEdges(findings []finding.Finding) []killchain.Edge {
	var edges []killchain.Edge
	for _, f := range findings {
		for _, fam := range f.Families {
			if !strings.HasPrefix(fam, "recon-phase") {
				continue
			}
			variant := f.Metadata["variant"]
			if variant == "" {
				variant = "behavior"
			}
			edges = append(edges, killchain.Edge{
				Source:   f.Asset,
				Target:   fmt.Sprintf("%s:%s", fam, variant),
				Label:    f.Type,
				Severity: f.Severity,
				EdgeType: killchain.EdgeTypeBehavioral,
				Signal:   f.Message,
				Tags:     f.Tags,
				Families: f.Families,
			})
		}
	}
	return edges
}

// recordReconEdges accumulates recon edges across the run, deduplicated by
// signature.
func (e *Engine) recordReconEdges(edges []killchain.Edge, state *runState) {
	for _, edge := range edges {
		sig := edge.Sig()
		if _, dup := state.reconSigs[sig]; dup {
			continue
		}
		state.reconSigs[sig] = struct{}{}
		state.reconEdges = append(state.reconEdges, edge)
	}
}

// refreshEnrichment recomputes issues and edges over the entire accumulated
// finding set. Issues are replaced wholesale; the killchain's visible list is
// the latest enrichment edges plus the run's accumulated recon edges.
func (e *Engine) refreshEnrichment(state *runState) (issueCount, edgeCount int) {
	e.mu.Lock()
	accumulated := make([]finding.Finding, len(e.lastResults))
	copy(accumulated, e.lastResults)
	e.mu.Unlock()

	var issues []issue.Issue
	var enrichEdges []killchain.Edge
	if len(accumulated) > 0 && e.enrich != nil {
		issues, enrichEdges = e.enrich(accumulated)
	}
	e.issues.ReplaceAll(issues)
	e.killchain.Refresh(enrichEdges, state.reconEdges)
	return len(issues), len(enrichEdges) + len(state.reconEdges)
}
