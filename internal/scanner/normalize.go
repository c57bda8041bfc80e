package scanner

import (
	"net"
	"net/url"
	"strings"
)

// TargetType is the canonical shape a tool expects its target in.
type TargetType string

const (
	TargetHost   TargetType = "host"
	TargetDomain TargetType = "domain"
	TargetIP     TargetType = "ip"
	TargetURL    TargetType = "url"
)

// lookupHost is swapped out in tests to avoid real DNS traffic.
var lookupHost = net.LookupHost

// Normalize converts a raw user-supplied target into the form the given
// target type expects. Empty input is returned unmodified; callers must
// reject empty targets before invoking tools.
func Normalize(raw string, targetType TargetType) string {
	switch targetType {
	case TargetHost, TargetDomain:
		return HostOf(raw)
	case TargetIP:
		return ipOf(raw)
	default:
		return EnsureURL(raw)
	}
}

// EnsureURL guarantees the target carries a scheme, defaulting to https. A
// bare host like "example.com" parses with an empty network location and the
// host in the path component, so the path is reinterpreted as the host.
func EnsureURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.Host == "" && parsed.Path != "" {
		scheme := parsed.Scheme
		if scheme == "" {
			scheme = "https"
		}
		reparsed, err := url.Parse(scheme + "://" + parsed.Path)
		if err != nil {
			return raw
		}
		parsed = reparsed
	}
	return parsed.String()
}

// HostOf strips scheme, path, port, a leading "www.", and any trailing dot,
// and lower-cases the result.
func HostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	parsed, err := url.Parse(EnsureURL(raw))
	host := raw
	if err == nil && parsed.Hostname() != "" {
		host = parsed.Hostname()
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	host = strings.TrimPrefix(host, "www.")
	return host
}

// ipOf resolves the host to its first address. Resolution failure falls back
// to the unresolved host string; it never errors.
func ipOf(raw string) string {
	host := HostOf(raw)
	if host == "" {
		return host
	}
	if ip := net.ParseIP(host); ip != nil {
		return host
	}
	addrs, err := lookupHost(host)
	if err != nil || len(addrs) == 0 {
		return host
	}
	return addrs[0]
}
