package scanner

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	sharederrors "github.com/Jbase16/AraUltra/internal/shared/errors"
)

// placeholder is the token in an argv template replaced by the normalized
// target string.
const placeholder = "{target}"

// defaultWordlist feeds the content-discovery tools; override per-tool via a
// catalog overlay file.
var defaultWordlist = "assets/wordlists/common.txt"

// Tool describes one external recon tool: how to invoke it, what target
// shape it expects, and whether it is gated behind the aggressive opt-in.
type Tool struct {
	Name       string     `yaml:"name"`
	Label      string     `yaml:"label"`
	Cmd        []string   `yaml:"cmd"`
	TargetType TargetType `yaml:"target_type"`
	Aggressive bool       `yaml:"aggressive"`
	// Binary overrides the executable checked for availability when the
	// template starts with a shell wrapper rather than the tool itself.
	Binary string `yaml:"binary,omitempty"`
	// Fallback marks the tool as shim-capable: when the native binary is
	// missing the invocation is routed through this program's shim command
	// instead of excluding the tool.
	Fallback bool `yaml:"fallback,omitempty"`
}

// Executable returns the binary name whose presence on PATH decides native
// availability.
func (t Tool) Executable() string {
	if t.Binary != "" {
		return t.Binary
	}
	if len(t.Cmd) == 0 {
		return ""
	}
	return t.Cmd[0]
}

// Registry is the static tool catalog plus the two-tier availability
// resolution (native binary first, shim fallback second).
type Registry struct {
	tools      map[string]Tool
	shimLaunch []string
	lookPath   func(file string) (string, error)
}

// NewRegistry builds the registry with the built-in catalog. Shim fallbacks
// re-invoke this binary's shim command.
func NewRegistry() *Registry {
	self, err := os.Executable()
	if err != nil {
		self = os.Args[0]
	}
	r := &Registry{
		tools:      make(map[string]Tool, len(builtinCatalog)),
		shimLaunch: []string{self, "shim"},
		lookPath:   exec.LookPath,
	}
	for _, t := range builtinCatalog {
		r.tools[t.Name] = t
	}
	return r
}

// Names returns the catalog tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get looks up a tool definition by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Installed resolves the catalog against PATH. A tool is available when its
// executable resolves natively, or, failing that, when it declares a shim
// fallback, in which case the returned definition carries the shim argv.
func (r *Registry) Installed() map[string]Tool {
	installed := make(map[string]Tool)
	for name, t := range r.tools {
		if exe := t.Executable(); exe != "" {
			if _, err := r.lookPath(exe); err == nil {
				installed[name] = t
				continue
			}
		}
		if t.Fallback {
			shimmed := t
			shimmed.Cmd = append(append([]string{}, r.shimLaunch...), name, placeholder)
			installed[name] = shimmed
		}
	}
	return installed
}

// Command expands the tool's argv template, substituting every occurrence of
// the placeholder with the target normalized to the tool's target type.
// Non-placeholder tokens pass through verbatim.
func (r *Registry) Command(t Tool, target string) []string {
	normalized := Normalize(target, t.TargetType)
	argv := make([]string, 0, len(t.Cmd))
	for _, part := range t.Cmd {
		if strings.Contains(part, placeholder) {
			argv = append(argv, strings.ReplaceAll(part, placeholder, normalized))
		} else {
			argv = append(argv, part)
		}
	}
	return argv
}

// LoadOverlay merges user-supplied tool definitions over the built-in
// catalog. Entries with a known name replace the builtin; new names extend
// the catalog.
func (r *Registry) LoadOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read tools file: %w", err)
	}
	var overlay struct {
		Tools []Tool `yaml:"tools"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse tools file: %w", err)
	}
	for _, t := range overlay.Tools {
		if t.Name == "" || len(t.Cmd) == 0 {
			return fmt.Errorf("%w: entry missing name or cmd", sharederrors.ErrInvalidToolDefinition)
		}
		if t.TargetType == "" {
			t.TargetType = TargetURL
		}
		r.tools[t.Name] = t
	}
	return nil
}

var builtinCatalog = []Tool{
	{
		Name:  "nmap",
		Label: "Nmap (service/port scan)",
		Cmd: []string{
			"nmap", "-sV", "-T4", "-F", "--open",
			"--host-timeout", "60s", "-n", placeholder,
		},
		TargetType: TargetHost,
	},
	{
		Name:       "wafw00f",
		Label:      "wafw00f (WAF detection)",
		Cmd:        []string{"wafw00f", placeholder},
		TargetType: TargetURL,
	},
	{
		Name:       "dirsearch",
		Label:      "dirsearch (content discovery)",
		Cmd:        []string{"dirsearch", "-u", placeholder, "-w", defaultWordlist, "-q"},
		TargetType: TargetURL,
		Aggressive: true,
	},
	{
		Name:       "testssl",
		Label:      "testssl.sh (TLS/SSL config)",
		Cmd:        []string{"testssl", placeholder},
		TargetType: TargetHost,
		Fallback:   true,
	},
	{
		Name:       "whatweb",
		Label:      "whatweb (fingerprint tech stack)",
		Cmd:        []string{"whatweb", placeholder},
		TargetType: TargetURL,
	},
	{
		Name:       "nuclei",
		Label:      "nuclei (vulnerability templates)",
		Cmd:        []string{"nuclei", "-target", placeholder, "-severity", "low,medium,high,critical"},
		TargetType: TargetURL,
		Aggressive: true,
	},
	{
		Name:       "nikto",
		Label:      "Nikto (web vulnerability scanner)",
		Cmd:        []string{"nikto", "-h", placeholder},
		TargetType: TargetURL,
		Aggressive: true,
		Fallback:   true,
	},
	{
		Name:       "gobuster",
		Label:      "Gobuster (directory brute force)",
		Cmd:        []string{"gobuster", "dir", "-u", placeholder, "-w", defaultWordlist},
		TargetType: TargetURL,
		Aggressive: true,
	},
	{
		Name:       "feroxbuster",
		Label:      "Feroxbuster (recursive discovery)",
		Cmd:        []string{"feroxbuster", "-u", placeholder, "-w", defaultWordlist, "-n"},
		TargetType: TargetURL,
		Aggressive: true,
	},
	{
		Name:       "jaeles",
		Label:      "Jaeles (web vuln automation)",
		Cmd:        []string{"jaeles", "scan", "-u", placeholder},
		TargetType: TargetURL,
		Aggressive: true,
	},
	{
		Name:       "subfinder",
		Label:      "subfinder (subdomain discovery)",
		Cmd:        []string{"subfinder", "-silent", "-d", placeholder},
		TargetType: TargetDomain,
	},
	{
		Name:       "assetfinder",
		Label:      "assetfinder (attack surface discovery)",
		Cmd:        []string{"assetfinder", "-subs-only", placeholder},
		TargetType: TargetDomain,
		Fallback:   true,
	},
	{
		Name:       "hakrawler",
		Label:      "hakrawler (endpoint crawler)",
		Cmd:        []string{"bash", "-lc", "printf '%s\\n' " + placeholder + " | hakrawler -subs -u"},
		TargetType: TargetURL,
		Binary:     "hakrawler",
		Fallback:   true,
	},
	{
		Name:       "httpx",
		Label:      "httpx (HTTP probing)",
		Cmd:        []string{"httpx", "-silent", "-title", "-status-code", "-tech-detect", "-u", placeholder},
		TargetType: TargetURL,
	},
	{
		Name:       "naabu",
		Label:      "naabu (fast port scan)",
		Cmd:        []string{"naabu", "-host", placeholder},
		TargetType: TargetHost,
	},
	{
		Name:       "dnsx",
		Label:      "dnsx (DNS resolver)",
		Cmd:        []string{"bash", "-lc", "printf '%s\\n' " + placeholder + " | dnsx -silent -resp -a -aaaa"},
		TargetType: TargetDomain,
		Binary:     "dnsx",
		Fallback:   true,
	},
	{
		Name:       "masscan",
		Label:      "masscan (very fast port scan)",
		Cmd:        []string{"masscan", placeholder, "-p1-65535", "--max-rate", "5000"},
		TargetType: TargetIP,
		Aggressive: true,
	},
	{
		Name:       "amass",
		Label:      "amass (in-depth enumeration)",
		Cmd:        []string{"amass", "enum", "-d", placeholder},
		TargetType: TargetDomain,
	},
	{
		Name:       "subjack",
		Label:      "subjack (subdomain takeover)",
		Cmd:        []string{"subjack", "-d", placeholder, "-ssl"},
		TargetType: TargetDomain,
		Aggressive: true,
		Fallback:   true,
	},
	{
		Name:       "sslyze",
		Label:      "sslyze (TLS scanner)",
		Cmd:        []string{"sslyze", placeholder},
		TargetType: TargetHost,
		Fallback:   true,
	},
	{
		Name:       "wfuzz",
		Label:      "wfuzz (parameter fuzzing)",
		Cmd:        []string{"wfuzz", "-c", "-w", defaultWordlist, placeholder + "/FUZZ"},
		TargetType: TargetURL,
		Aggressive: true,
		Fallback:   true,
	},
	{
		Name:       "httprobe",
		Label:      "httprobe (HTTP availability)",
		Cmd:        []string{"bash", "-lc", "printf '%s\\n' " + placeholder + " | httprobe"},
		TargetType: TargetHost,
		Binary:     "httprobe",
		Fallback:   true,
	},
	{
		Name:       "pshtt",
		Label:      "pshtt (HTTPS observatory)",
		Cmd:        []string{"pshtt", placeholder},
		TargetType: TargetDomain,
		Fallback:   true,
	},
	{
		Name:       "eyewitness",
		Label:      "EyeWitness (screenshot/report)",
		Cmd:        []string{"eyewitness", "--single", placeholder, "--web"},
		TargetType: TargetURL,
		Fallback:   true,
	},
	{
		Name:       "hakrevdns",
		Label:      "hakrevdns (reverse DNS)",
		Cmd:        []string{"hakrevdns", placeholder},
		TargetType: TargetHost,
		Fallback:   true,
	},
}
