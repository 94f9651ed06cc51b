package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/examguard/internal/config"
)

func TestRunInit_WritesDefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	initForce = false

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	path := filepath.Join(tmpDir, ".examguard", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config.yaml not created: %v", err)
	}
	if !strings.Contains(string(data), "violation_limit") {
		t.Error("config.yaml missing violation_limit")
	}

	// The written file must load cleanly.
	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if loaded.Monitor.ViolationLimit != config.Default().Monitor.ViolationLimit {
		t.Errorf("expected default limit, got %d", loaded.Monitor.ViolationLimit)
	}
}

func TestRunInit_NoOverwriteWithoutForce(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	configDir := filepath.Join(tmpDir, ".examguard")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		t.Fatal(err)
	}
	sentinel := "# sentinel content\n"
	path := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(path, []byte(sentinel), 0o600); err != nil {
		t.Fatal(err)
	}

	initForce = false
	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != sentinel {
		t.Error("config.yaml was overwritten without --force")
	}
}

func TestRunInit_ForceOverwrites(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	configDir := filepath.Join(tmpDir, ".examguard")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		t.Fatal(err)
	}
	sentinel := "# sentinel content\n"
	path := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(path, []byte(sentinel), 0o600); err != nil {
		t.Fatal(err)
	}

	initForce = true
	defer func() { initForce = false }()
	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) == sentinel {
		t.Error("config.yaml was NOT overwritten with --force")
	}
}

func TestWriteIfMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.txt")

	initForce = false
	wrote, err := writeIfMissing(path, "hello")
	if err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if !wrote {
		t.Error("first write should return true")
	}

	wrote, err = writeIfMissing(path, "world")
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if wrote {
		t.Error("second write should return false without force")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "hello" {
		t.Errorf("content changed without force: %q", string(data))
	}

	initForce = true
	defer func() { initForce = false }()
	wrote, err = writeIfMissing(path, "world")
	if err != nil {
		t.Fatalf("force write failed: %v", err)
	}
	if !wrote {
		t.Error("force write should return true")
	}
	data, _ = os.ReadFile(path)
	if string(data) != "world" {
		t.Errorf("force write didn't overwrite: %q", string(data))
	}
}

func TestReplayFilterParsesFlags(t *testing.T) {
	f, err := replayFilter("s1", "2026-01-01T09:00:00Z", "", "violation, warning,")
	if err != nil {
		t.Fatalf("replayFilter: %v", err)
	}
	if f.Session != "s1" || f.From.IsZero() || !f.To.IsZero() {
		t.Errorf("unexpected filter: %+v", f)
	}
	if len(f.Types) != 2 || f.Types[0] != "violation" || f.Types[1] != "warning" {
		t.Errorf("unexpected types: %v", f.Types)
	}

	if _, err := replayFilter("s1", "yesterday", "", ""); err == nil {
		t.Error("expected error for bad --from")
	}
}
