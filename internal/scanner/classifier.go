package scanner

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/Jbase16/AraUltra/internal/domain/finding"
)

// Classifier extracts raw findings from one tool's captured output. Callers
// must not assume it is error-free; classification failures are converted to
// diagnostics at the runner boundary.
type Classifier interface {
	Classify(tool, target, output string) ([]finding.Raw, error)
}

// KeywordClassifier is the naive heuristic extractor. It looks for a handful
// of telltale markers per tool family; it does not attempt real parsing.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(tool, target, output string) ([]finding.Raw, error) {
	var raws []finding.Raw
	lower := strings.ToLower(output)

	switch tool {
	case "nmap", "naabu", "masscan":
		if strings.Contains(lower, "open") {
			raws = append(raws, finding.Raw{
				Tool:     tool,
				Type:     "open_port_indicator",
				Severity: "medium",
				Message:  fmt.Sprintf("%s output includes references to open ports.", tool),
				Target:   target,
				Tags:     []string{"network"},
			})
		}
	case "httpx", "whatweb":
		if strings.Contains(lower, "tech") || strings.Contains(lower, "technolog") {
			raws = append(raws, finding.Raw{
				Tool:     tool,
				Type:     "tech_stack",
				Severity: "low",
				Message:  "HTTP probing indicates specific technologies in use.",
				Target:   target,
				Tags:     []string{"web"},
			})
		}
	case "subfinder", "assetfinder", "amass":
		if count := countSubdomainLines(output, HostOf(target)); count > 0 {
			raws = append(raws, finding.Raw{
				Tool:     tool,
				Type:     "subdomain_surface",
				Severity: "low",
				Message:  fmt.Sprintf("%d candidate subdomain(s) enumerated.", count),
				Target:   target,
				Tags:     []string{"surface"},
			})
		}
	case "wafw00f":
		if strings.Contains(lower, "no waf") {
			raws = append(raws, finding.Raw{
				Tool:     tool,
				Type:     "waf_absent",
				Severity: "medium",
				Message:  "No web application firewall detected in front of the target.",
				Target:   target,
				Tags:     []string{"web"},
			})
		}
	}

	if strings.Contains(lower, "missing security header") {
		raws = append(raws, finding.Raw{
			Tool:     tool,
			Type:     "missing_security_headers",
			Severity: "low",
			Message:  "Response is missing one or more recommended security headers.",
			Target:   target,
			Tags:     []string{"web", "hardening"},
		})
	}
	if strings.Contains(lower, "expired") && strings.Contains(lower, "certificate") {
		raws = append(raws, finding.Raw{
			Tool:     tool,
			Type:     "expired_certificate",
			Severity: "high",
			Message:  "TLS certificate appears to be expired.",
			Target:   target,
			Tags:     []string{"tls"},
		})
	}
	if strings.Contains(lower, "error") {
		raws = append(raws, finding.Raw{
			Tool:     tool,
			Type:     "tool_error",
			Severity: "low",
			Message:  "Tool output appears to contain errors or failed checks.",
			Target:   target,
		})
	}

	return raws, nil
}

// countSubdomainLines counts output lines that look like subdomains of the
// scanned apex.
func countSubdomainLines(output, apex string) int {
	if apex == "" {
		return 0
	}
	count := 0
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		if line == "" || line == apex {
			continue
		}
		if strings.HasSuffix(line, "."+apex) && !strings.ContainsAny(line, " \t[]") {
			count++
		}
	}
	return count
}
