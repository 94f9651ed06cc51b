package scenario

import (
	"time"

	"github.com/ppiankov/examguard/internal/config"
	"github.com/ppiankov/examguard/internal/signal"
)

// Step delivers one event at an offset from session start.
type Step struct {
	At    time.Duration `yaml:"at"`
	Event signal.Event  `yaml:"event"`
	// Prevent, when set, asserts the event's default action suppression.
	Prevent *bool `yaml:"prevent,omitempty"`
}

// Expect asserts the session view at an offset. Unset fields are not checked.
type Expect struct {
	At               time.Duration `yaml:"at"`
	Risk             *string       `yaml:"risk,omitempty"`
	Violations       *int          `yaml:"violations,omitempty"`
	Phase            *string       `yaml:"phase,omitempty"`
	EndReason        *string       `yaml:"end_reason,omitempty"`
	Warning          *bool         `yaml:"warning,omitempty"`
	FullscreenPrompt *bool         `yaml:"fullscreen_prompt,omitempty"`
	Cheating         *bool         `yaml:"cheating,omitempty"`
	Finalized        *int          `yaml:"finalized,omitempty"`
}

// Scenario is a timed script of events with assertions on the session view.
type Scenario struct {
	Name    string         `yaml:"name"`
	Monitor config.Monitor `yaml:"monitor"`
	Steps   []Step         `yaml:"steps"`
	Expect  []Expect       `yaml:"expect"`
}

// CheckResult is the outcome of one field assertion.
type CheckResult struct {
	Index    int    `json:"index"`
	At       string `json:"at"`
	Field    string `json:"field"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Frame is the session view observed at one offset.
type Frame struct {
	At         string `json:"at"`
	Risk       string `json:"risk"`
	Violations int    `json:"violations"`
	Limit      int    `json:"limit"`
	Phase      string `json:"phase"`
	EndReason  string `json:"end_reason,omitempty"`
}

// RunResult is the outcome of running one scenario file. Timeline holds one
// frame per offset with expectations; Final is the view after the last step.
type RunResult struct {
	File     string        `json:"file"`
	Name     string        `json:"name"`
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Checks   []CheckResult `json:"checks"`
	Timeline []Frame       `json:"timeline"`
	Final    Frame         `json:"final"`
}
