package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/examguard/internal/classify"
	"github.com/ppiankov/examguard/internal/clock"
)

// Level is the coarse risk indicator for a session.
type Level int

const (
	Low Level = iota
	Medium
	High
)

func (l Level) String() string {
	switch l {
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "low"
	}
}

// MarshalText renders the level as its name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ParseLevel parses "low", "medium" or "high" (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	}
	return Low, fmt.Errorf("unknown risk level %q", s)
}

// State is a snapshot of the machine.
type State struct {
	Level            Level `json:"level"`
	Warning          bool  `json:"warning"`
	FullscreenPrompt bool  `json:"fullscreen_prompt"`
	CheatingDetected bool  `json:"cheating_detected"`
	Relaxing         bool  `json:"relaxing"`
}

// Interstitial reports whether any interstitial is presented.
func (s State) Interstitial() bool {
	return s.Warning || s.FullscreenPrompt
}

// Machine holds the risk level and interstitial flags. It is not safe for
// concurrent use: callers serialise access, and the relaxation callback is
// routed through the serialiser passed to SetSerializer.
type Machine struct {
	clock         clock.Clock
	idleThreshold time.Duration
	relaxDelay    time.Duration

	state State
	gen   uint64
	relax clock.Timer

	serialize func(func())
	onRelax   func(State)
}

// NewMachine returns a machine at Low with no interstitial shown.
func NewMachine(c clock.Clock, idleThreshold, relaxDelay time.Duration) *Machine {
	return &Machine{
		clock:         c,
		idleThreshold: idleThreshold,
		relaxDelay:    relaxDelay,
		serialize:     func(fn func()) { fn() },
	}
}

// SetSerializer sets the wrapper the relaxation callback runs under.
func (m *Machine) SetSerializer(fn func(func())) {
	m.serialize = fn
}

// OnRelax registers a hook invoked (under the serialiser) after a relaxation lands.
func (m *Machine) OnRelax(fn func(State)) {
	m.onRelax = fn
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() State {
	return m.state
}

// Escalate records a hard violation: risk goes High and the prompt is shown.
// A pending relaxation is cancelled.
func (m *Machine) Escalate(p classify.Prompt) {
	m.cancelRelax()
	m.state.Level = High
	m.state.CheatingDetected = true
	m.show(p)
}

// Warn records a soft warning: the prompt is shown and risk is raised to at
// least Medium. A pending relaxation is cancelled.
func (m *Machine) Warn(p classify.Prompt) {
	m.cancelRelax()
	if m.state.Level < Medium {
		m.state.Level = Medium
	}
	m.show(p)
}

// Tick applies the idle rule. It is a no-op while an interstitial is shown.
// During the relaxation window the level never drops below Medium.
func (m *Machine) Tick(idleSeconds float64) {
	if m.state.Interstitial() {
		return
	}
	next := Low
	if idleSeconds >= m.idleThreshold.Seconds() {
		next = Medium
	}
	if m.state.Relaxing && next < Medium {
		next = Medium
	}
	m.state.Level = next
}

// Acknowledge clears the given interstitial. When no other interstitial
// remains, risk drops to Medium and a relaxation to Low is scheduled after
// the relax delay. Returns false if the interstitial was not shown.
func (m *Machine) Acknowledge(p classify.Prompt) bool {
	switch p {
	case classify.PromptWarning:
		if !m.state.Warning {
			return false
		}
		m.state.Warning = false
	case classify.PromptFullscreen:
		if !m.state.FullscreenPrompt {
			return false
		}
		m.state.FullscreenPrompt = false
	default:
		return false
	}

	if m.state.Interstitial() {
		return true
	}

	m.state.Level = Medium
	m.scheduleRelax()
	return true
}

// Stop cancels any pending relaxation.
func (m *Machine) Stop() {
	m.cancelRelax()
}

func (m *Machine) show(p classify.Prompt) {
	switch p {
	case classify.PromptWarning:
		m.state.Warning = true
	case classify.PromptFullscreen:
		m.state.FullscreenPrompt = true
	}
}

func (m *Machine) scheduleRelax() {
	m.cancelRelax()
	gen := m.gen
	m.state.Relaxing = true
	m.relax = m.clock.AfterFunc(m.relaxDelay, func() {
		m.serialize(func() { m.relaxTo(gen) })
	})
}

// relaxTo lands a relaxation scheduled under generation gen. Stale
// generations and relaxations racing a newly shown interstitial are dropped.
func (m *Machine) relaxTo(gen uint64) {
	if gen != m.gen || m.state.Interstitial() {
		return
	}
	m.relax = nil
	m.state.Relaxing = false
	m.state.Level = Low
	m.state.CheatingDetected = false
	if m.onRelax != nil {
		m.onRelax(m.state)
	}
}

func (m *Machine) cancelRelax() {
	m.gen++
	m.state.Relaxing = false
	if m.relax != nil {
		m.relax.Stop()
		m.relax = nil
	}
}
