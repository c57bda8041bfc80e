package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Jbase16/AraUltra/internal/domain/finding"
	"github.com/Jbase16/AraUltra/internal/evidence"
	"github.com/Jbase16/AraUltra/internal/store"
)

// Classifier matches the scanner's classifier collaborator so the analyst
// can extract findings from ad-hoc tool output without importing the
// scanner package.
type Classifier interface {
	Classify(tool, target, output string) ([]finding.Raw, error)
}

// Analyst reasons over the run's stores. Everything it produces has a
// deterministic local form; when a local LLM endpoint is reachable the text
// is elaborated by it, and any LLM failure silently falls back to the
// deterministic output.
type Analyst struct {
	client     *Client
	findings   *store.FindingsStore
	issues     *store.IssuesStore
	killchain  *store.KillchainStore
	evidence   *evidence.Store
	classifier Classifier
	logger     *zap.SugaredLogger
}

// AnalystConfig wires the analyst's collaborators. Client may be nil to run
// fully offline.
type AnalystConfig struct {
	Client     *Client
	Findings   *store.FindingsStore
	Issues     *store.IssuesStore
	Killchain  *store.KillchainStore
	Evidence   *evidence.Store
	Classifier Classifier
	Logger     *zap.SugaredLogger
}

// NewAnalyst constructs the analyst.
func NewAnalyst(cfg AnalystConfig) *Analyst {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Analyst{
		client:     cfg.Client,
		findings:   cfg.Findings,
		issues:     cfg.Issues,
		killchain:  cfg.Killchain,
		evidence:   cfg.Evidence,
		classifier: cfg.Classifier,
		logger:     logger,
	}
}

// ToolOutputResult is what ProcessToolOutput hands back to callers.
type ToolOutputResult struct {
	EvidenceID      string
	Summary         string
	Findings        []finding.Finding
	KillchainPhases []string
	LiveComment     string
}

// ProcessToolOutput is the analyst-side pipeline for one tool's captured
// output: store raw evidence, summarize, extract findings, infer killchain
// phases, enrich the evidence entry, and produce a one-line commentary.
func (a *Analyst) ProcessToolOutput(ctx context.Context, tool, target, output string, exitCode int) ToolOutputResult {
	evidenceID := a.evidence.AddEvidence(tool, output, map[string]string{"target": target})

	summary := a.summarizeOutput(ctx, tool, output, exitCode)

	var normalized []finding.Finding
	if a.classifier != nil {
		raws, err := a.classifier.Classify(tool, target, output)
		if err != nil {
			a.logger.Warnw("classifier failed", "tool", tool, "error", err)
		} else {
			normalized = finding.NormalizeBatch(raws, nil, nil)
		}
	}

	phases := inferKillchainPhases(normalized)

	for _, f := range normalized {
		a.findings.Add(f)
	}
	if err := a.evidence.UpdateEvidence(evidenceID, summary, normalized); err != nil {
		a.logger.Warnw("evidence update failed", "id", evidenceID, "error", err)
	}

	return ToolOutputResult{
		EvidenceID:      evidenceID,
		Summary:         summary,
		Findings:        normalized,
		KillchainPhases: phases,
		LiveComment:     liveCommentary(tool, target, normalized, phases),
	}
}

// summarizeOutput builds the deterministic summary and lets the LLM rewrite
// it when available.
func (a *Analyst) summarizeOutput(ctx context.Context, tool, output string, exitCode int) string {
	output = strings.TrimSpace(output)
	parts := []string{fmt.Sprintf("%s completed with exit code %d.", tool, exitCode)}
	if output == "" {
		parts = append(parts, "No output captured.")
	} else {
		parts = append(parts, fmt.Sprintf("Output length: %d characters.", len(output)))
		if strings.Contains(strings.ToLower(output), "error") {
			parts = append(parts, "Output appears to contain error messages.")
		}
	}
	local := strings.Join(parts, " ")

	if a.client == nil {
		return local
	}
	prompt := fmt.Sprintf(
		"Summarize this security tool output in two sentences for a pentest report.\nTool: %s\nOutput:\n%s",
		tool, truncate(output, 4000))
	elaborated, err := a.client.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(elaborated) == "" {
		if err != nil {
			a.logger.Debugw("analyst endpoint summary fallback", "tool", tool, "error", err)
		}
		return local
	}
	return strings.TrimSpace(elaborated)
}

// Chat answers a natural-language question grounded in the current stores.
// It always has a deterministic answer; the LLM, when reachable, elaborates.
func (a *Analyst) Chat(ctx context.Context, question string) string {
	question = strings.TrimSpace(question)
	entries := a.evidence.GetAll()
	findings := a.findings.GetAll()
	issues := a.issues.GetAll()

	if len(entries) == 0 && len(findings) == 0 {
		return "There is no evidence or findings to reason about yet.\n\n" +
			"Run a scan first, then ask about attack surface, risks, or next steps."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("=== High-level assessment ===\n")
	fmt.Fprintf(&b, "- Total evidence items: %d\n", len(entries))
	fmt.Fprintf(&b, "- Total findings: %d\n", len(findings))
	fmt.Fprintf(&b, "- Correlated issues: %d\n", len(issues))

	if len(findings) > 0 {
		counts := make(map[finding.Severity]int)
		for _, f := range findings {
			counts[f.Severity]++
		}
		sevs := make([]string, 0, len(counts))
		for sev := range counts {
			sevs = append(sevs, string(sev))
		}
		sort.Strings(sevs)
		b.WriteString("\n=== Severity overview ===\n")
		for _, sev := range sevs {
			fmt.Fprintf(&b, "- %s: %d finding(s)\n", sev, counts[finding.Severity(sev)])
		}
	}

	b.WriteString("\n=== Reasoned answer ===\n")
	b.WriteString(a.answerBranch(question, findings))
	local := b.String()

	if a.client == nil {
		return local
	}
	prompt := fmt.Sprintf(
		"You are a penetration testing analyst. Using only this context, answer the question.\n\nContext:\n%s\n\nQuestion: %s",
		truncate(local, 6000), question)
	elaborated, err := a.client.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(elaborated) == "" {
		return local
	}
	return strings.TrimSpace(elaborated)
}

func (a *Analyst) answerBranch(question string, findings []finding.Finding) string {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, "critical", "biggest risk", "most important"):
		var high []finding.Finding
		for _, f := range findings {
			if f.Severity == finding.SeverityHigh || f.Severity == finding.SeverityCritical {
				high = append(high, f)
			}
		}
		if len(high) == 0 {
			return "No findings are marked high or critical yet; the current data looks like " +
				"low-to-medium recon intel rather than confirmed exploitable issues.\n"
		}
		var b strings.Builder
		b.WriteString("The highest-severity findings currently recorded:\n")
		for i, f := range high {
			if i == 10 {
				break
			}
			fmt.Fprintf(&b, "- (%s) %s from %s: %s\n", f.Severity, f.Type, f.Tool, f.Message)
		}
		return b.String()
	case containsAny(q, "next step", "what should i do", "prioritize"):
		return "Treat the current results as reconnaissance data. Practical next steps:\n" +
			"1. Validate that exposed services (open ports, web endpoints) are expected.\n" +
			"2. Lock down anything that isn't strictly necessary.\n" +
			"3. Review the detected tech stack and versions against known CVEs.\n" +
			"4. In a lab target, chain the findings into an attack path and document mitigations.\n"
	case containsAny(q, "recon", "reconnaissance"):
		return "The tools run so far map services, subdomains, and HTTP behavior. That is enough to " +
			"build an inventory of reachable hosts and apps, identify technologies and weak points, " +
			"and decide where deeper authenticated testing would add value.\n"
	default:
		return "Based on the current evidence, this looks like an early-stage reconnaissance " +
			"snapshot rather than a developed attack chain. Drill into individual findings to " +
			"decide what matters in your environment.\n"
	}
}

// inferKillchainPhases maps finding types to high-level phases.
func inferKillchainPhases(findings []finding.Finding) []string {
	set := make(map[string]struct{})
	for _, f := range findings {
		switch f.Type {
		case "open_port_indicator", "tech_stack", "subdomain_surface", "dns_resolution", "http_exposure", "server_banner":
			set["Reconnaissance"] = struct{}{}
		case "waf_absent", "missing_security_headers", "expired_certificate":
			set["Initial Access"] = struct{}{}
		case "tool_error", "non_zero_exit":
			set["Resource Development"] = struct{}{}
		}
	}
	phases := make([]string, 0, len(set))
	for p := range set {
		phases = append(phases, p)
	}
	sort.Strings(phases)
	return phases
}

// liveCommentary produces the one-line feed entry for a tool run.
func liveCommentary(tool, target string, findings []finding.Finding, phases []string) string {
	if target == "" {
		target = "target"
	}
	if len(findings) == 0 {
		return fmt.Sprintf("%s finished against %s; no concrete issues extracted yet.", tool, target)
	}
	counts := make(map[finding.Severity]int)
	for _, f := range findings {
		counts[f.Severity]++
	}
	sevs := make([]string, 0, len(counts))
	for sev := range counts {
		sevs = append(sevs, string(sev))
	}
	sort.Strings(sevs)
	bits := make([]string, 0, len(sevs))
	for _, sev := range sevs {
		bits = append(bits, fmt.Sprintf("%d %s", counts[finding.Severity(sev)], sev))
	}
	phaseStr := "no killchain phase yet"
	if len(phases) > 0 {
		phaseStr = strings.Join(phases, ", ")
	}
	return fmt.Sprintf("%s on %s: %d finding(s) (%s); currently mapped to %s.",
		tool, target, len(findings), strings.Join(bits, ", "), phaseStr)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
