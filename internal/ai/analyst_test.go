package ai

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Jbase16/AraUltra/internal/domain/finding"
	"github.com/Jbase16/AraUltra/internal/evidence"
	"github.com/Jbase16/AraUltra/internal/store"
)

type fakeClassifier struct {
	raws []finding.Raw
	err  error
}

func (f fakeClassifier) Classify(tool, target, output string) ([]finding.Raw, error) {
	return f.raws, f.err
}

func newOfflineAnalyst(t *testing.T, classifier Classifier) (*Analyst, *store.FindingsStore, *evidence.Store) {
	t.Helper()
	findings := store.NewFindingsStore()
	issues := store.NewIssuesStore()
	kc := store.NewKillchainStore()
	ev, err := evidence.NewStore("")
	if err != nil {
		t.Fatal(err)
	}
	a := NewAnalyst(AnalystConfig{
		Findings:   findings,
		Issues:     issues,
		Killchain:  kc,
		Evidence:   ev,
		Classifier: classifier,
	})
	return a, findings, ev
}

func TestProcessToolOutputOffline(t *testing.T) {
	classifier := fakeClassifier{raws: []finding.Raw{
		{Tool: "nmap", Type: "open_port_indicator", Severity: "medium", Message: "open port", Target: "example.com"},
	}}
	a, findings, ev := newOfflineAnalyst(t, classifier)

	res := a.ProcessToolOutput(context.Background(), "nmap", "example.com", "443/tcp open https", 0)

	if res.EvidenceID == "" {
		t.Fatal("no evidence ID returned")
	}
	if !strings.Contains(res.Summary, "nmap completed with exit code 0.") {
		t.Errorf("summary = %q", res.Summary)
	}
	if len(res.Findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(res.Findings))
	}
	if !reflect.DeepEqual(res.KillchainPhases, []string{"Reconnaissance"}) {
		t.Errorf("phases = %v, want [Reconnaissance]", res.KillchainPhases)
	}
	if findings.Len() != 1 {
		t.Errorf("findings store has %d entries, want 1", findings.Len())
	}

	entry, ok := ev.GetAll()[res.EvidenceID]
	if !ok {
		t.Fatal("evidence entry missing")
	}
	if entry.Summary != res.Summary {
		t.Errorf("evidence summary = %q, want %q", entry.Summary, res.Summary)
	}
	if len(entry.Findings) != 1 {
		t.Errorf("evidence has %d attached findings, want 1", len(entry.Findings))
	}
	if !strings.Contains(res.LiveComment, "nmap on example.com") {
		t.Errorf("live comment = %q", res.LiveComment)
	}
}

func TestProcessToolOutputClassifierFailure(t *testing.T) {
	a, findings, _ := newOfflineAnalyst(t, fakeClassifier{err: errors.New("boom")})

	res := a.ProcessToolOutput(context.Background(), "nmap", "example.com", "output", 1)

	if len(res.Findings) != 0 {
		t.Errorf("got %d findings from a failed classifier, want 0", len(res.Findings))
	}
	if findings.Len() != 0 {
		t.Errorf("findings store has %d entries, want 0", findings.Len())
	}
	if res.EvidenceID == "" {
		t.Error("evidence must still be recorded when classification fails")
	}
	if !strings.Contains(res.Summary, "exit code 1") {
		t.Errorf("summary = %q", res.Summary)
	}
}

func TestSummarizeOutputVariants(t *testing.T) {
	a, _, _ := newOfflineAnalyst(t, nil)

	tests := []struct {
		name     string
		output   string
		exitCode int
		want     string
	}{
		{"empty output", "", 0, "No output captured."},
		{"error marker", "fatal error: refused", 1, "Output appears to contain error messages."},
		{"plain output", "hello world", 0, "Output length: 11 characters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.summarizeOutput(context.Background(), "nmap", tt.output, tt.exitCode)
			if !strings.Contains(got, tt.want) {
				t.Errorf("summary = %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestChatEmptyState(t *testing.T) {
	a, _, _ := newOfflineAnalyst(t, nil)

	answer := a.Chat(context.Background(), "what should I do?")
	if !strings.Contains(answer, "no evidence or findings") {
		t.Errorf("empty-state answer = %q", answer)
	}
}

func TestChatAnswerBranches(t *testing.T) {
	a, findings, _ := newOfflineAnalyst(t, nil)
	findings.Add(finding.FromRaw(finding.Raw{
		Tool: "testssl", Type: "expired_certificate", Severity: "high", Message: "cert expired", Target: "example.com",
	}, nil))

	tests := []struct {
		question string
		want     string
	}{
		{"what is the most critical issue?", "highest-severity findings"},
		{"what's my next step?", "Practical next steps"},
		{"summarize the recon so far", "map services, subdomains"},
		{"tell me something", "early-stage reconnaissance"},
	}
	for _, tt := range tests {
		answer := a.Chat(context.Background(), tt.question)
		if !strings.Contains(answer, tt.want) {
			t.Errorf("Chat(%q) = %q, want substring %q", tt.question, answer, tt.want)
		}
		if !strings.Contains(answer, "Total findings: 1") {
			t.Errorf("Chat(%q) missing store counts", tt.question)
		}
	}
}

func TestInferKillchainPhases(t *testing.T) {
	mk := func(ftype string) finding.Finding {
		return finding.FromRaw(finding.Raw{Tool: "t", Type: ftype, Target: "example.com"}, nil)
	}

	phases := inferKillchainPhases([]finding.Finding{
		mk("open_port_indicator"),
		mk("waf_absent"),
		mk("tool_error"),
		mk("tech_stack"),
	})

	want := []string{"Initial Access", "Reconnaissance", "Resource Development"}
	if !reflect.DeepEqual(phases, want) {
		t.Errorf("phases = %v, want %v", phases, want)
	}

	if got := inferKillchainPhases(nil); len(got) != 0 {
		t.Errorf("phases for no findings = %v, want empty", got)
	}
}

func TestLiveCommentary(t *testing.T) {
	if got := liveCommentary("nmap", "example.com", nil, nil); !strings.Contains(got, "no concrete issues") {
		t.Errorf("empty commentary = %q", got)
	}

	findings := []finding.Finding{
		finding.FromRaw(finding.Raw{Tool: "nmap", Type: "open_port_indicator", Severity: "medium", Target: "example.com"}, nil),
		finding.FromRaw(finding.Raw{Tool: "nmap", Type: "tech_stack", Severity: "low", Target: "example.com"}, nil),
	}
	got := liveCommentary("nmap", "example.com", findings, []string{"Reconnaissance"})
	if !strings.Contains(got, "2 finding(s)") || !strings.Contains(got, "Reconnaissance") {
		t.Errorf("commentary = %q", got)
	}
}
