package application

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewContainerWiresEverything(t *testing.T) {
	dir := t.TempDir()

	c, err := NewContainer(Config{ResultsDir: dir, OfflineAnalyst: true})
	if err != nil {
		t.Fatalf("NewContainer() error: %v", err)
	}

	if c.Findings == nil || c.Issues == nil || c.Killchain == nil || c.Evidence == nil {
		t.Error("container is missing a store")
	}
	if c.Registry == nil || c.Engine == nil || c.Risk == nil || c.Analyst == nil || c.Reports == nil {
		t.Error("container is missing a service")
	}
	if len(c.Registry.Names()) == 0 {
		t.Error("registry has no builtin tools")
	}

	info, err := os.Stat(filepath.Join(dir, "evidence"))
	if err != nil {
		t.Fatalf("evidence directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("evidence path is not a directory")
	}
}

func TestNewContainerToolsOverlay(t *testing.T) {
	dir := t.TempDir()
	toolsFile := filepath.Join(dir, "tools.yaml")
	overlay := "tools:\n  - name: custom-probe\n    cmd: [custom-probe, \"{target}\"]\n    target_type: url\n"
	if err := os.WriteFile(toolsFile, []byte(overlay), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := NewContainer(Config{ResultsDir: dir, ToolsFile: toolsFile, OfflineAnalyst: true})
	if err != nil {
		t.Fatalf("NewContainer() error: %v", err)
	}
	if _, ok := c.Registry.Get("custom-probe"); !ok {
		t.Error("overlay tool not loaded into the registry")
	}
}

func TestNewContainerBadToolsFile(t *testing.T) {
	dir := t.TempDir()

	_, err := NewContainer(Config{
		ResultsDir: dir,
		ToolsFile:  filepath.Join(dir, "does-not-exist.yaml"),
	})
	if err == nil {
		t.Error("NewContainer() should fail on an unreadable tools file")
	}
}
