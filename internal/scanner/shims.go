package scanner

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Shim timeouts are deliberately short: shims are best-effort substitutes,
// not full replacements for the native tools.
const shimTimeout = 15 * time.Second

// RunShim executes the built-in fallback for a shim-capable tool, writing
// tool-style output lines to w. Unknown tools are an error so a typo in the
// catalog surfaces instead of silently producing empty evidence.
func RunShim(ctx context.Context, w io.Writer, tool, target string) error {
	ctx, cancel := context.WithTimeout(ctx, shimTimeout)
	defer cancel()

	switch tool {
	case "testssl", "sslyze":
		return shimTLS(ctx, w, target)
	case "dnsx", "pshtt", "assetfinder", "subjack":
		return shimDNS(ctx, w, target)
	case "hakrevdns":
		return shimReverseDNS(ctx, w, target)
	case "httprobe", "eyewitness", "nikto", "wfuzz", "hakrawler":
		return shimHTTP(ctx, w, target)
	default:
		return fmt.Errorf("no shim implemented for tool %q", tool)
	}
}

// shimDNS resolves A/AAAA and CNAME records the way the native resolvers
// would report them.
func shimDNS(ctx context.Context, w io.Writer, target string) error {
	host := HostOf(target)
	resolver := &net.Resolver{PreferGo: true}

	addrs, err := resolver.LookupHost(ctx, host)
	if err != nil {
		fmt.Fprintf(w, "%s [lookup error: %v]\n", host, err)
		return nil
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		fmt.Fprintf(w, "%s [%s]\n", host, addr)
	}
	if cname, err := resolver.LookupCNAME(ctx, host); err == nil {
		cname = strings.TrimSuffix(cname, ".")
		if cname != "" && cname != host {
			fmt.Fprintf(w, "%s [CNAME] [%s]\n", host, cname)
		}
	}
	return nil
}

// shimReverseDNS maps the target's addresses back to names.
func shimReverseDNS(ctx context.Context, w io.Writer, target string) error {
	host := HostOf(target)
	resolver := &net.Resolver{PreferGo: true}

	addrs := []string{host}
	if net.ParseIP(host) == nil {
		resolved, err := resolver.LookupHost(ctx, host)
		if err != nil {
			fmt.Fprintf(w, "%s [lookup error: %v]\n", host, err)
			return nil
		}
		addrs = resolved
	}
	for _, addr := range addrs {
		names, err := resolver.LookupAddr(ctx, addr)
		if err != nil || len(names) == 0 {
			fmt.Fprintf(w, "%s [no PTR record]\n", addr)
			continue
		}
		for _, name := range names {
			fmt.Fprintf(w, "%s [%s]\n", addr, strings.TrimSuffix(name, "."))
		}
	}
	return nil
}

// shimTLS performs a single handshake and reports protocol, cipher, and leaf
// certificate validity window.
func shimTLS(ctx context.Context, w io.Writer, target string) error {
	host := HostOf(target)
	dialer := &tls.Dialer{Config: &tls.Config{ServerName: host}}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, "443"))
	if err != nil {
		fmt.Fprintf(w, "%s:443 handshake failed: %v\n", host, err)
		return nil
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	fmt.Fprintf(w, "%s:443 protocol %s cipher %s\n",
		host, tls.VersionName(state.Version), tls.CipherSuiteName(state.CipherSuite))
	if len(state.PeerCertificates) > 0 {
		cert := state.PeerCertificates[0]
		fmt.Fprintf(w, "certificate subject=%q issuer=%q\n", cert.Subject.CommonName, cert.Issuer.CommonName)
		fmt.Fprintf(w, "certificate valid %s through %s\n",
			cert.NotBefore.Format("2006-01-02"), cert.NotAfter.Format("2006-01-02"))
		if time.Now().After(cert.NotAfter) {
			fmt.Fprintf(w, "certificate EXPIRED\n")
		}
	}
	return nil
}

// shimHTTP probes the target with HEAD, falling back to GET for servers that
// disallow HEAD, and reports status plus identifying headers.
func shimHTTP(ctx context.Context, w io.Writer, target string) error {
	u := EnsureURL(target)
	client := &http.Client{Timeout: shimTimeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		fmt.Fprintf(w, "%s request error: %v\n", u, err)
		return nil
	}
	resp, err := client.Do(req)
	if err != nil {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if reqErr != nil {
			fmt.Fprintf(w, "%s request error: %v\n", u, reqErr)
			return nil
		}
		resp, err = client.Do(req)
		if err != nil {
			fmt.Fprintf(w, "%s unreachable: %v\n", u, err)
			return nil
		}
	}
	defer resp.Body.Close()

	fmt.Fprintf(w, "%s [%d]\n", u, resp.StatusCode)
	for _, header := range []string{"Server", "X-Powered-By", "Content-Type", "Location"} {
		if v := resp.Header.Get(header); v != "" {
			fmt.Fprintf(w, "%s: %s\n", header, v)
		}
	}
	for _, header := range []string{"Strict-Transport-Security", "Content-Security-Policy", "X-Frame-Options"} {
		if resp.Header.Get(header) == "" {
			fmt.Fprintf(w, "missing security header: %s\n", header)
		}
	}
	return nil
}
