package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/examguard/internal/alert"
	"github.com/ppiankov/examguard/internal/session"
	"github.com/ppiankov/examguard/internal/signal"
)

// Monitor holds session timing parameters as written in YAML.
type Monitor struct {
	TickInterval   time.Duration `yaml:"tick_interval"`
	IdleThreshold  time.Duration `yaml:"idle_threshold"`
	RelaxDelay     time.Duration `yaml:"relax_delay"`
	ViolationLimit int           `yaml:"violation_limit"`
	BurstWindow    time.Duration `yaml:"burst_window"`
	SoftSignals    []string      `yaml:"soft_signals"`
}

// Exam points the exam front end at a question bank.
type Exam struct {
	QuestionsFile string `yaml:"questions_file"`
	// MinWidth and MinHeight define "fullscreen" for the terminal front end.
	MinWidth  int `yaml:"min_width"`
	MinHeight int `yaml:"min_height"`
}

// Config is the top-level examguard configuration.
type Config struct {
	Monitor  Monitor        `yaml:"monitor"`
	AuditLog string         `yaml:"audit_log"`
	Alerts   []alert.Config `yaml:"alerts"`
	Exam     Exam           `yaml:"exam"`
}

// Default returns the built-in configuration.
func Default() *Config {
	def := session.DefaultConfig()
	return &Config{
		Monitor: Monitor{
			TickInterval:   def.TickInterval,
			IdleThreshold:  def.IdleThreshold,
			RelaxDelay:     def.RelaxDelay,
			ViolationLimit: def.ViolationLimit,
		},
		Exam: Exam{MinWidth: 80, MinHeight: 24},
	}
}

// Dir returns ~/.examguard, or "" when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".examguard")
}

// DefaultAuditPath returns ~/.examguard/audit.jsonl.
func DefaultAuditPath() string {
	dir := Dir()
	if dir == "" {
		return "audit.jsonl"
	}
	return filepath.Join(dir, "audit.jsonl")
}

// Load reads configuration from a YAML file.
// Empty path falls back to ~/.examguard/config.yaml.
// Missing file returns defaults. Invalid YAML or values return an error.
func Load(path string) (*Config, error) {
	if path == "" {
		dir := Dir()
		if dir == "" {
			return Default(), nil
		}
		path = filepath.Join(dir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the monitor cannot run with.
func (c *Config) Validate() error {
	m := c.Monitor
	if m.TickInterval < 0 || m.IdleThreshold < 0 || m.RelaxDelay < 0 || m.BurstWindow < 0 {
		return fmt.Errorf("config: monitor durations must not be negative")
	}
	if m.ViolationLimit < 0 {
		return fmt.Errorf("config: violation_limit must not be negative, got %d", m.ViolationLimit)
	}
	for _, name := range m.SoftSignals {
		k := signal.Kind(name)
		if !k.Valid() || k.IsControl() {
			return fmt.Errorf("config: soft_signals: %q is not a monitored signal", name)
		}
	}
	for i, a := range c.Alerts {
		if a.URL == "" {
			return fmt.Errorf("config: alerts[%d]: url is required", i)
		}
		if !alert.ValidFormat(a.Format) {
			return fmt.Errorf("config: alerts[%d]: unknown format %q", i, a.Format)
		}
	}
	return nil
}

// SessionConfig converts the monitor section into session parameters.
func (c *Config) SessionConfig() session.Config {
	soft := make([]signal.Kind, 0, len(c.Monitor.SoftSignals))
	for _, name := range c.Monitor.SoftSignals {
		soft = append(soft, signal.Kind(name))
	}
	return session.Config{
		TickInterval:   c.Monitor.TickInterval,
		IdleThreshold:  c.Monitor.IdleThreshold,
		RelaxDelay:     c.Monitor.RelaxDelay,
		ViolationLimit: c.Monitor.ViolationLimit,
		BurstWindow:    c.Monitor.BurstWindow,
		SoftKinds:      soft,
	}
}

// DefaultYAML returns a commented config file holding the defaults.
func DefaultYAML() string {
	d := Default()
	return fmt.Sprintf(`# examguard configuration.
# Durations use Go syntax (500ms, 10s, 2m).

monitor:
  # How often the idle rule runs.
  tick_interval: %s
  # Idle time after which risk rises to medium.
  idle_threshold: %s
  # Delay between acknowledging a warning and risk returning to low.
  relax_delay: %s
  # Hard violations that end the session.
  violation_limit: %d
  # Coalesce a hard violation of a different kind arriving within this
  # window of the previous one (e.g. hidden + blur on one tab switch). 0 = off.
  burst_window: 0s
  # Signals downgraded to a warning that never counts, e.g. [blur].
  soft_signals: []

# Hash-chained transcript of every session transition.
# Empty means ~/.examguard/audit.jsonl.
audit_log: ""

# Webhook alerts. format: generic | slack | pagerduty
alerts: []
#  - url: https://hooks.slack.com/services/...
#    format: slack
#    events: [violation, terminated, fullscreen_rejected]

exam:
  # Question bank YAML. Empty uses the built-in demo questions.
  questions_file: ""
  # Terminal size treated as fullscreen by the terminal exam.
  min_width: %d
  min_height: %d
`, d.Monitor.TickInterval, d.Monitor.IdleThreshold, d.Monitor.RelaxDelay, d.Monitor.ViolationLimit,
		d.Exam.MinWidth, d.Exam.MinHeight)
}
