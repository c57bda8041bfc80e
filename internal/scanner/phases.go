package scanner

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Jbase16/AraUltra/internal/domain/finding"
)

// PhaseRunner executes the fixed post-tool recon phases. Implementations
// stream progress through the log callback and report findings per phase;
// per-phase failures must surface as log lines, not errors.
type PhaseRunner interface {
	RunAllPhases(ctx context.Context, target string, log func(string)) map[string][]finding.Raw
}

// ReconPhaseRunner is the default phase sequence: lightweight behavioral
// probes that tag their findings with recon-phase families so the engine can
// derive killchain edges from them.
type ReconPhaseRunner struct {
	Timeout time.Duration
}

func (r *ReconPhaseRunner) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return 10 * time.Second
}

// RunAllPhases runs every phase in order and returns the findings keyed by
// phase name.
func (r *ReconPhaseRunner) RunAllPhases(ctx context.Context, target string, log func(string)) map[string][]finding.Raw {
	results := make(map[string][]finding.Raw)
	phases := []struct {
		name string
		run  func(context.Context, string, func(string)) []finding.Raw
	}{
		{"dns-profile", r.dnsProfile},
		{"http-behavior", r.httpBehavior},
		{"surface-review", r.surfaceReview},
	}
	for _, phase := range phases {
		if ctx.Err() != nil {
			return results
		}
		log(fmt.Sprintf("[phase] Running %s...", phase.name))
		phaseCtx, cancel := context.WithTimeout(ctx, r.timeout())
		results[phase.name] = phase.run(phaseCtx, target, log)
		cancel()
	}
	return results
}

func (r *ReconPhaseRunner) dnsProfile(ctx context.Context, target string, log func(string)) []finding.Raw {
	host := HostOf(target)
	resolver := &net.Resolver{PreferGo: true}
	addrs, err := resolver.LookupHost(ctx, host)
	if err != nil {
		log(fmt.Sprintf("[phase] dns-profile: lookup failed for %s: %v", host, err))
		return nil
	}
	return []finding.Raw{{
		Tool:     "dns-profile",
		Type:     "dns_resolution",
		Severity: "info",
		Message:  fmt.Sprintf("%s resolves to %d address(es).", host, len(addrs)),
		Target:   target,
		Families: []string{"recon-phase-infrastructure"},
		Metadata: map[string]string{"variant": "resolution", "address_count": fmt.Sprintf("%d", len(addrs))},
	}}
}

func (r *ReconPhaseRunner) httpBehavior(ctx context.Context, target string, log func(string)) []finding.Raw {
	u := EnsureURL(target)
	client := &http.Client{
		Timeout: r.timeout(),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		log(fmt.Sprintf("[phase] http-behavior: %v", err))
		return nil
	}
	resp, err := client.Do(req)
	if err != nil {
		log(fmt.Sprintf("[phase] http-behavior: %s unreachable: %v", u, err))
		return nil
	}
	defer resp.Body.Close()

	raws := []finding.Raw{{
		Tool:     "http-behavior",
		Type:     "http_exposure",
		Severity: "info",
		Message:  fmt.Sprintf("%s answered HEAD with status %d.", u, resp.StatusCode),
		Target:   target,
		Families: []string{"recon-phase-web"},
		Metadata: map[string]string{"variant": "surface", "status": fmt.Sprintf("%d", resp.StatusCode)},
	}}
	if server := resp.Header.Get("Server"); server != "" {
		raws = append(raws, finding.Raw{
			Tool:     "http-behavior",
			Type:     "server_banner",
			Severity: "low",
			Message:  fmt.Sprintf("Server header discloses %q.", server),
			Target:   target,
			Tags:     []string{"web"},
			Families: []string{"recon-phase-web"},
			Metadata: map[string]string{"variant": "banner"},
		})
	}
	return raws
}

func (r *ReconPhaseRunner) surfaceReview(ctx context.Context, target string, log func(string)) []finding.Raw {
	host := HostOf(target)
	dialer := &net.Dialer{Timeout: 3 * time.Second}
	var open []string
	for _, port := range []string{"22", "80", "443"} {
		conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
		if err != nil {
			continue
		}
		conn.Close()
		open = append(open, port)
	}
	if len(open) == 0 {
		log(fmt.Sprintf("[phase] surface-review: no common ports reachable on %s", host))
		return nil
	}
	severity := "info"
	for _, port := range open {
		if port == "22" {
			severity = "low"
		}
	}
	return []finding.Raw{{
		Tool:     "surface-review",
		Type:     "service_reachability",
		Severity: severity,
		Message:  fmt.Sprintf("Common service ports reachable: %v.", open),
		Target:   target,
		Families: []string{"recon-phase-exposure"},
		Metadata: map[string]string{"variant": "reachability"},
	}}
}
