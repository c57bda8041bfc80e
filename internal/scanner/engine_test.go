package scanner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Jbase16/AraUltra/internal/domain/finding"
	"github.com/Jbase16/AraUltra/internal/domain/killchain"
	"github.com/Jbase16/AraUltra/internal/enrich"
	"github.com/Jbase16/AraUltra/internal/store"
)

type memEvidence struct {
	mu    sync.Mutex
	texts map[string]string
}

func newMemEvidence() *memEvidence {
	return &memEvidence{texts: make(map[string]string)}
}

func (m *memEvidence) SaveText(tool, target, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts[tool+"|"+target] = text
}

type stubClassifier struct {
	raws map[string][]finding.Raw
	err  error
}

func (s stubClassifier) Classify(tool, target, output string) ([]finding.Raw, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.raws[tool], nil
}

type stubPhases struct {
	results map[string][]finding.Raw
	lines   []string
}

func (s stubPhases) RunAllPhases(ctx context.Context, target string, log func(string)) map[string][]finding.Raw {
	for _, line := range s.lines {
		log(line)
	}
	return s.results
}

type testEngine struct {
	engine    *Engine
	findings  *store.FindingsStore
	issues    *store.IssuesStore
	killchain *store.KillchainStore
	evidence  *memEvidence
}

func newTestEngine(t *testing.T, reg *Registry, classifier Classifier, phases PhaseRunner) *testEngine {
	t.Helper()
	te := &testEngine{
		findings:  store.NewFindingsStore(),
		issues:    store.NewIssuesStore(),
		killchain: store.NewKillchainStore(),
		evidence:  newMemEvidence(),
	}
	te.engine = NewEngine(EngineConfig{
		Registry:   reg,
		Findings:   te.findings,
		Issues:     te.issues,
		Killchain:  te.killchain,
		Evidence:   te.evidence,
		Classifier: classifier,
		Phases:     phases,
		Enrich:     enrich.Apply,
		LaunchRate: 1000,
	})
	return te
}

func collectLogs(t *testing.T, logs <-chan string) []string {
	t.Helper()
	var lines []string
	timeout := time.After(30 * time.Second)
	for {
		select {
		case line, ok := <-logs:
			if !ok {
				return lines
			}
			lines = append(lines, line)
		case <-timeout:
			t.Fatalf("scan did not terminate; lines so far: %v", lines)
		}
	}
}

func hasLine(lines []string, substr string) bool {
	for _, line := range lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func countLines(lines []string, substr string) int {
	n := 0
	for _, line := range lines {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

// shellTool builds a tool definition running a short shell snippet, available
// through the fake lookPath under the "sh" executable.
func shellTool(name, script string) Tool {
	return Tool{
		Name:       name,
		Cmd:        []string{"sh", "-c", script},
		TargetType: TargetHost,
		Binary:     "sh",
	}
}

func TestScanRejectsEmptyTarget(t *testing.T) {
	te := newTestEngine(t, testRegistry(nil, nil), stubClassifier{}, stubPhases{})
	if _, err := te.engine.Scan(context.Background(), "   ", Options{}); err == nil {
		t.Error("Scan() with blank target should fail")
	}
}

func TestScanEmptySelectionTerminatesImmediately(t *testing.T) {
	reg := testRegistry([]Tool{
		{Name: "ghost-tool", Cmd: []string{"ghost-tool", placeholder}, TargetType: TargetURL},
	}, nil)
	te := newTestEngine(t, reg, stubClassifier{}, stubPhases{})

	logs, err := te.engine.Scan(context.Background(), "example.com", Options{})
	if err != nil {
		t.Fatal(err)
	}
	lines := collectLogs(t, logs)

	if !hasLine(lines, "No supported tools available") {
		t.Errorf("missing no-op notice, got %v", lines)
	}
	if hasLine(lines, "Scan run complete") {
		t.Error("empty selection terminates before the phase pipeline")
	}
}

func TestScanSkipsUnavailableSelectedTool(t *testing.T) {
	reg := testRegistry([]Tool{
		shellTool("echo-tool", "echo hello"),
		{Name: "ghost-tool", Cmd: []string{"ghost-tool", placeholder}, TargetType: TargetURL},
	}, map[string]bool{"sh": true})
	te := newTestEngine(t, reg, stubClassifier{}, stubPhases{})

	logs, err := te.engine.Scan(context.Background(), "example.com", Options{
		Tools: []string{"echo-tool", "ghost-tool"},
	})
	if err != nil {
		t.Fatal(err)
	}
	lines := collectLogs(t, logs)

	if !hasLine(lines, "Skipping (not installed): ghost-tool") {
		t.Errorf("ghost-tool not reported as skipped, got %v", lines)
	}
	if !hasLine(lines, "[echo-tool] hello") {
		t.Error("echo-tool output not streamed")
	}
	if !hasLine(lines, "[echo-tool] Exit code: 0") {
		t.Error("echo-tool exit code not reported")
	}
	if !hasLine(lines, "Scan run complete") {
		t.Error("run did not reach its terminal state")
	}
}

func TestSchedulerNeverExceedsConcurrencyBound(t *testing.T) {
	tools := []Tool{
		shellTool("t1", "sleep 0.2; echo done"),
		shellTool("t2", "sleep 0.2; echo done"),
		shellTool("t3", "sleep 0.2; echo done"),
		shellTool("t4", "sleep 0.2; echo done"),
		shellTool("t5", "sleep 0.2; echo done"),
	}
	reg := testRegistry(tools, map[string]bool{"sh": true})
	te := newTestEngine(t, reg, stubClassifier{}, stubPhases{})

	logs, err := te.engine.Scan(context.Background(), "example.com", Options{Concurrency: 2})
	if err != nil {
		t.Fatal(err)
	}
	lines := collectLogs(t, logs)

	open, maxOpen := 0, 0
	for _, line := range lines {
		if strings.Contains(line, "Started t") {
			open++
			if open > maxOpen {
				maxOpen = open
			}
		}
		if strings.Contains(line, "Exit code:") {
			open--
		}
	}
	if maxOpen > 2 {
		t.Errorf("running set reached %d, bound is 2; log: %v", maxOpen, lines)
	}
	if got := countLines(lines, "Exit code:"); got != 5 {
		t.Errorf("got %d exit lines, want 5", got)
	}
	if !hasLine(lines, "Scan run complete") {
		t.Error("run did not reach its terminal state")
	}
}

func TestMissingExecutableIsDiagnosedNotFatal(t *testing.T) {
	reg := testRegistry([]Tool{
		{Name: "phantom", Cmd: []string{"araultra-test-definitely-missing", placeholder}, TargetType: TargetHost},
		shellTool("echo-tool", "echo hi"),
	}, map[string]bool{"araultra-test-definitely-missing": true, "sh": true})
	te := newTestEngine(t, reg, stubClassifier{}, stubPhases{})

	logs, err := te.engine.Scan(context.Background(), "example.com", Options{})
	if err != nil {
		t.Fatal(err)
	}
	lines := collectLogs(t, logs)

	if got := countLines(lines, "NOT INSTALLED"); got != 1 {
		t.Errorf("got %d NOT INSTALLED diagnostics, want exactly 1; log: %v", got, lines)
	}
	if te.findings.Len() != 0 {
		t.Errorf("phantom tool contributed %d findings, want 0", te.findings.Len())
	}
	if !hasLine(lines, "Scan run complete") {
		t.Error("run did not reach its terminal state")
	}
}

func TestClassifierFailureIsDiagnosedNotFatal(t *testing.T) {
	reg := testRegistry([]Tool{shellTool("echo-tool", "echo hi")}, map[string]bool{"sh": true})
	te := newTestEngine(t, reg, stubClassifier{err: errors.New("boom")}, stubPhases{})

	logs, err := te.engine.Scan(context.Background(), "example.com", Options{})
	if err != nil {
		t.Fatal(err)
	}
	lines := collectLogs(t, logs)

	if !hasLine(lines, "classifier error") {
		t.Errorf("classifier failure not surfaced, got %v", lines)
	}
	if te.findings.Len() != 0 {
		t.Errorf("failed classification contributed %d findings, want 0", te.findings.Len())
	}
	if !hasLine(lines, "Scan run complete") {
		t.Error("run did not reach its terminal state")
	}
}

func TestToolBatchDedupAndPublication(t *testing.T) {
	reg := testRegistry([]Tool{shellTool("echo-tool", "echo open port")}, map[string]bool{"sh": true})
	classifier := stubClassifier{raws: map[string][]finding.Raw{
		"echo-tool": {
			{Tool: "echo-tool", Type: "open_port_indicator", Severity: "medium", Target: "example.com"},
			{Tool: "echo-tool", Type: "open_port_indicator", Severity: "medium", Target: "example.com"},
		},
	}}
	te := newTestEngine(t, reg, classifier, stubPhases{})

	logs, err := te.engine.Scan(context.Background(), "example.com", Options{})
	if err != nil {
		t.Fatal(err)
	}
	lines := collectLogs(t, logs)

	if !hasLine(lines, "Recorded 1 finding(s) from echo-tool") {
		t.Errorf("duplicate finding not dropped, got %v", lines)
	}
	if te.findings.Len() != 1 {
		t.Errorf("findings store has %d entries, want 1", te.findings.Len())
	}
	if got := len(te.issues.GetAll()); got != 1 {
		t.Errorf("issues store has %d entries, want 1", got)
	}
}

func TestAggressiveToolsAreGated(t *testing.T) {
	reg := testRegistry([]Tool{
		shellTool("safe-tool", "echo fine"),
		{Name: "loud-tool", Cmd: []string{"sh", "-c", "echo loud"}, Binary: "sh", TargetType: TargetHost, Aggressive: true},
	}, map[string]bool{"sh": true})
	te := newTestEngine(t, reg, stubClassifier{}, stubPhases{})

	logs, err := te.engine.Scan(context.Background(), "example.com", Options{})
	if err != nil {
		t.Fatal(err)
	}
	lines := collectLogs(t, logs)

	if !hasLine(lines, "Skipping aggressive tools") || !hasLine(lines, "loud-tool") {
		t.Errorf("aggressive tool not gated, got %v", lines)
	}
	if hasLine(lines, "[loud-tool] loud") {
		t.Error("gated tool must not run")
	}
}

func TestReconEdgesAccumulateWithoutDuplication(t *testing.T) {
	reg := testRegistry([]Tool{shellTool("echo-tool", "echo hi")}, map[string]bool{"sh": true})
	reconRaw := func(tool string) finding.Raw {
		return finding.Raw{
			Tool:     tool,
			Type:     "http_exposure",
			Severity: "info",
			Message:  "behavioral probe",
			Target:   "example.com",
			Families: []string{"recon-phase-web"},
			Metadata: map[string]string{"variant": "surface"},
		}
	}
	// Two phases produce findings with distinct fingerprints (different
	// tools) but the same edge signature.
	phases := stubPhases{results: map[string][]finding.Raw{
		"phase-a": {reconRaw("probe-a")},
		"phase-b": {reconRaw("probe-b")},
	}}
	te := newTestEngine(t, reg, stubClassifier{}, phases)

	logs, err := te.engine.Scan(context.Background(), "example.com", Options{})
	if err != nil {
		t.Fatal(err)
	}
	collectLogs(t, logs)

	var recon []killchain.Edge
	for _, e := range te.killchain.GetAll() {
		if e.EdgeType == killchain.EdgeTypeBehavioral {
			recon = append(recon, e)
		}
	}
	if len(recon) != 1 {
		t.Fatalf("got %d recon edges, want 1 (same signature fed twice)", len(recon))
	}
	if recon[0].Target != "recon-phase-web:surface" {
		t.Errorf("edge target = %q, want recon-phase-web:surface", recon[0].Target)
	}
}

func TestKillchainVisibleListIsUnionOfEnrichmentAndRecon(t *testing.T) {
	reg := testRegistry([]Tool{shellTool("echo-tool", "echo hi")}, map[string]bool{"sh": true})
	classifier := stubClassifier{raws: map[string][]finding.Raw{
		"echo-tool": {{Tool: "echo-tool", Type: "open_port_indicator", Severity: "medium", Target: "example.com"}},
	}}
	phases := stubPhases{results: map[string][]finding.Raw{
		"phase-a": {{
			Tool:     "probe-a",
			Type:     "http_exposure",
			Severity: "info",
			Target:   "example.com",
			Families: []string{"recon-phase-web"},
		}},
	}}
	te := newTestEngine(t, reg, classifier, phases)

	logs, err := te.engine.Scan(context.Background(), "example.com", Options{})
	if err != nil {
		t.Fatal(err)
	}
	collectLogs(t, logs)

	var correlation, behavioral int
	for _, e := range te.killchain.GetAll() {
		switch e.EdgeType {
		case killchain.EdgeTypeCorrelation:
			correlation++
		case killchain.EdgeTypeBehavioral:
			behavioral++
		}
	}
	if correlation == 0 {
		t.Error("no correlation edges in visible list")
	}
	if behavioral != 1 {
		t.Errorf("got %d behavioral edges, want 1", behavioral)
	}
}

func TestEnrichmentReplaceAllIsStable(t *testing.T) {
	issues := store.NewIssuesStore()
	findings := []finding.Finding{
		finding.FromRaw(finding.Raw{Tool: "nmap", Type: "open_port_indicator", Severity: "medium", Target: "example.com"}, HostOf),
	}

	first, _ := enrich.Apply(findings)
	issues.ReplaceAll(first)
	snapshot := issues.GetAll()

	second, _ := enrich.Apply(findings)
	issues.ReplaceAll(second)

	got := issues.GetAll()
	if len(got) != len(snapshot) {
		t.Fatalf("issue count changed across identical refreshes: %d vs %d", len(got), len(snapshot))
	}
	for i := range got {
		if got[i].Title != snapshot[i].Title || got[i].Severity != snapshot[i].Severity {
			t.Errorf("issue %d changed across identical refreshes: %+v vs %+v", i, got[i], snapshot[i])
		}
	}
}

func TestScanCancellationStopsConsumption(t *testing.T) {
	reg := testRegistry([]Tool{shellTool("slow-tool", "sleep 5; echo done")}, map[string]bool{"sh": true})
	te := newTestEngine(t, reg, stubClassifier{}, stubPhases{})

	ctx, cancel := context.WithCancel(context.Background())
	logs, err := te.engine.Scan(ctx, "example.com", Options{})
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		for range logs {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Error("log stream did not close promptly after cancellation")
	}

	// The evidence store is still written when the subprocess finishes in
	// the background; unused here, but the run must not panic.
	_ = te.evidence
}
