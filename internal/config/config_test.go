package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/examguard/internal/signal"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Monitor.IdleThreshold != 10*time.Second {
		t.Errorf("expected 10s idle threshold, got %v", cfg.Monitor.IdleThreshold)
	}
	if cfg.Monitor.RelaxDelay != 3*time.Second {
		t.Errorf("expected 3s relax delay, got %v", cfg.Monitor.RelaxDelay)
	}
	if cfg.Monitor.ViolationLimit != 3 {
		t.Errorf("expected limit 3, got %d", cfg.Monitor.ViolationLimit)
	}
	if cfg.Monitor.BurstWindow != 0 {
		t.Errorf("expected coalescing off by default, got %v", cfg.Monitor.BurstWindow)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
monitor:
  idle_threshold: 30s
  violation_limit: 5
  soft_signals: [blur]
audit_log: /tmp/exam-audit.jsonl
alerts:
  - url: https://hooks.example.com/proctor
    format: slack
exam:
  questions_file: bank.yaml
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Monitor.IdleThreshold != 30*time.Second {
		t.Errorf("expected 30s, got %v", cfg.Monitor.IdleThreshold)
	}
	// Unspecified fields keep their defaults.
	if cfg.Monitor.RelaxDelay != 3*time.Second {
		t.Errorf("expected default relax delay, got %v", cfg.Monitor.RelaxDelay)
	}
	if cfg.Exam.MinWidth != 80 {
		t.Errorf("expected default min width, got %d", cfg.Exam.MinWidth)
	}
	if cfg.AuditLog != "/tmp/exam-audit.jsonl" || len(cfg.Alerts) != 1 || cfg.Exam.QuestionsFile != "bank.yaml" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	sc := cfg.SessionConfig()
	if sc.ViolationLimit != 5 || len(sc.SoftKinds) != 1 || sc.SoftKinds[0] != signal.KindBlur {
		t.Errorf("unexpected session config: %+v", sc)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"yaml", "monitor: [", "parse"},
		{"duration", "monitor:\n  idle_threshold: soon\n", "parse"},
		{"negative", "monitor:\n  relax_delay: -1s\n", "negative"},
		{"limit", "monitor:\n  violation_limit: -2\n", "violation_limit"},
		{"soft control", "monitor:\n  soft_signals: [submit]\n", "soft_signals"},
		{"soft unknown", "monitor:\n  soft_signals: [mousemove]\n", "soft_signals"},
		{"alert url", "alerts:\n  - format: slack\n", "url is required"},
		{"alert format", "alerts:\n  - url: http://x\n    format: teams\n", "unknown format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadEmptyPathUsesHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.MkdirAll(filepath.Join(home, ".examguard"), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, ".examguard", "config.yaml"), []byte("monitor:\n  violation_limit: 7\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Monitor.ViolationLimit != 7 {
		t.Errorf("expected limit from home config, got %d", cfg.Monitor.ViolationLimit)
	}
	if got := DefaultAuditPath(); got != filepath.Join(home, ".examguard", "audit.jsonl") {
		t.Errorf("unexpected audit path %q", got)
	}
}

func TestDefaultYAMLRoundTrips(t *testing.T) {
	cfg, err := Load(writeConfig(t, DefaultYAML()))
	if err != nil {
		t.Fatalf("default YAML does not load: %v", err)
	}
	def := Default()
	if len(cfg.Monitor.SoftSignals) != 0 || cfg.Monitor.BurstWindow != 0 {
		t.Errorf("expected no soft signals and no burst window, got %+v", cfg.Monitor)
	}
	if cfg.Monitor.IdleThreshold != def.Monitor.IdleThreshold || cfg.Monitor.ViolationLimit != def.Monitor.ViolationLimit {
		t.Errorf("expected defaults, got %+v", cfg.Monitor)
	}
	if cfg.Exam != def.Exam {
		t.Errorf("expected default exam section, got %+v", cfg.Exam)
	}
}
