// Package report renders the run's stores into markdown and PDF artifacts.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/Jbase16/AraUltra/internal/ai"
	"github.com/Jbase16/AraUltra/internal/domain/finding"
	"github.com/Jbase16/AraUltra/internal/risk"
	"github.com/Jbase16/AraUltra/internal/shared/constants"
	"github.com/Jbase16/AraUltra/internal/store"
)

// Generator assembles reports from the reactive stores. The AI client is
// optional; without it the executive summary is the deterministic one.
type Generator struct {
	Findings  *store.FindingsStore
	Issues    *store.IssuesStore
	Killchain *store.KillchainStore
	Risk      *risk.Engine
	Client    *ai.Client
}

// Data is the snapshot a report is rendered from.
type Data struct {
	Target      string
	GeneratedAt time.Time
	Findings    []finding.Finding
	Summary     string
	BySeverity  map[finding.Severity]int
	Issues      []issueRow
	Edges       []edgeRow
	RiskTable   []risk.Score
}

type issueRow struct {
	Title    string
	Severity finding.Severity
	Asset    string
	Tools    string
	Evidence int
}

type edgeRow struct {
	Source   string
	Target   string
	Label    string
	EdgeType string
	Severity finding.Severity
}

// Snapshot captures the current store contents for rendering.
func (g *Generator) Snapshot(ctx context.Context, target string) Data {
	findings := g.Findings.GetAll()
	data := Data{
		Target:      target,
		GeneratedAt: time.Now().UTC(),
		Findings:    findings,
		BySeverity:  make(map[finding.Severity]int),
	}
	for _, f := range findings {
		data.BySeverity[f.Severity]++
	}
	for _, i := range g.Issues.GetAll() {
		data.Issues = append(data.Issues, issueRow{
			Title:    i.Title,
			Severity: i.Severity,
			Asset:    i.Asset,
			Tools:    strings.Join(i.Tools, ", "),
			Evidence: i.Evidence,
		})
	}
	for _, e := range g.Killchain.GetAll() {
		data.Edges = append(data.Edges, edgeRow{
			Source:   e.Source,
			Target:   e.Target,
			Label:    e.Label,
			EdgeType: e.EdgeType,
			Severity: e.Severity,
		})
	}
	if g.Risk != nil {
		data.RiskTable = g.Risk.Ranked()
	}
	data.Summary = g.executiveSummary(ctx, data)
	return data
}

// executiveSummary is deterministic by default and LLM-elaborated when the
// local endpoint responds.
func (g *Generator) executiveSummary(ctx context.Context, data Data) string {
	local := fmt.Sprintf(
		"Recon run against %s produced %d finding(s) across %d correlated issue(s) and %d killchain edge(s).",
		data.Target, len(data.Findings), len(data.Issues), len(data.Edges))
	if top := topSeverity(data.BySeverity); top != "" {
		local += fmt.Sprintf(" Highest severity observed: %s.", top)
	}
	if g.Client == nil {
		return local
	}
	prompt := fmt.Sprintf(
		"Write a three-sentence executive summary for a recon report.\nFacts: %s", local)
	elaborated, err := g.Client.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(elaborated) == "" {
		return local
	}
	return strings.TrimSpace(elaborated)
}

func topSeverity(counts map[finding.Severity]int) finding.Severity {
	for _, sev := range []finding.Severity{
		finding.SeverityCritical, finding.SeverityHigh, finding.SeverityMedium,
		finding.SeverityLow, finding.SeverityInfo,
	} {
		if counts[sev] > 0 {
			return sev
		}
	}
	return ""
}

// Markdown renders the snapshot as a markdown document.
func (g *Generator) Markdown(data Data) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Recon Report: %s\n\n", data.Target)
	fmt.Fprintf(&b, "Generated: %s\n\n", data.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "## Executive Summary\n\n%s\n\n", data.Summary)

	b.WriteString("## Findings by Severity\n\n")
	for _, sev := range []finding.Severity{
		finding.SeverityCritical, finding.SeverityHigh, finding.SeverityMedium,
		finding.SeverityLow, finding.SeverityInfo,
	} {
		if count := data.BySeverity[sev]; count > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", sev, count)
		}
	}
	b.WriteString("\n## Correlated Issues\n\n")
	if len(data.Issues) == 0 {
		b.WriteString("No correlated issues.\n")
	}
	for _, i := range data.Issues {
		fmt.Fprintf(&b, "- **%s** (%s) — asset %s, corroborated by %s, %d finding(s)\n",
			i.Title, i.Severity, i.Asset, i.Tools, i.Evidence)
	}

	b.WriteString("\n## Killchain Edges\n\n")
	if len(data.Edges) == 0 {
		b.WriteString("No relationship edges.\n")
	}
	for _, e := range data.Edges {
		fmt.Fprintf(&b, "- %s -> %s [%s/%s] (%s)\n", e.Source, e.Target, e.Label, e.EdgeType, e.Severity)
	}

	if len(data.RiskTable) > 0 {
		b.WriteString("\n## Asset Risk\n\n")
		for _, s := range data.RiskTable {
			fmt.Fprintf(&b, "- %s: %.1f\n", s.Asset, s.Value)
		}
	}
	return b.String()
}

// WriteMarkdown renders and writes the markdown report, returning its path.
func (g *Generator) WriteMarkdown(data Data, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, constants.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(outDir, "report.md")
	if err := os.WriteFile(path, []byte(g.Markdown(data)), constants.DefaultFilePerm); err != nil {
		return "", fmt.Errorf("write report.md: %w", err)
	}
	return path, nil
}

// WritePDF renders the snapshot to a PDF, returning its path.
func (g *Generator) WritePDF(data Data, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, constants.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Recon Report: %s", data.Target), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", data.GeneratedAt.Format(time.RFC3339)), "", 1, "", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Executive Summary", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, data.Summary, "", "", false)
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Correlated Issues", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, i := range data.Issues {
		if pdf.GetY() > 260 {
			pdf.AddPage()
		}
		pdf.MultiCell(0, 5, fmt.Sprintf("[%s] %s — asset %s (%d finding(s))",
			i.Severity, i.Title, i.Asset, i.Evidence), "", "", false)
	}
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Killchain Edges", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, e := range data.Edges {
		if pdf.GetY() > 260 {
			pdf.AddPage()
		}
		pdf.MultiCell(0, 5, fmt.Sprintf("%s -> %s [%s] (%s)", e.Source, e.Target, e.Label, e.Severity), "", "", false)
	}

	if len(data.RiskTable) > 0 {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Asset Risk", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, s := range data.RiskTable {
			pdf.CellFormat(0, 5, fmt.Sprintf("%s: %.1f", s.Asset, s.Value), "", 1, "", false, 0, "")
		}
	}

	path := filepath.Join(outDir, "report.pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write report.pdf: %w", err)
	}
	return path, nil
}
