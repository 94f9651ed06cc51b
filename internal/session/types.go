package session

import (
	"context"
	"errors"
	"time"

	"github.com/ppiankov/examguard/internal/classify"
	"github.com/ppiankov/examguard/internal/risk"
	"github.com/ppiankov/examguard/internal/signal"
	"github.com/ppiankov/examguard/internal/violation"
)

var (
	// ErrCompleted is returned when a fallible operation is attempted on a finished session.
	ErrCompleted = errors.New("session completed")
	// ErrFullscreenRejected wraps a platform refusal to enter fullscreen.
	ErrFullscreenRejected = errors.New("fullscreen request rejected")
)

// TransitionType names an observable change in a session.
type TransitionType string

const (
	TransitionStarted            TransitionType = "started"
	TransitionViolation          TransitionType = "violation"
	TransitionCoalesced          TransitionType = "coalesced"
	TransitionWarning            TransitionType = "warning"
	TransitionPrevented          TransitionType = "prevented"
	TransitionAcknowledged       TransitionType = "acknowledged"
	TransitionRelaxed            TransitionType = "relaxed"
	TransitionRiskChanged        TransitionType = "risk_changed"
	TransitionFullscreenRejected TransitionType = "fullscreen_rejected"
	TransitionTerminated         TransitionType = "terminated"
	TransitionClosed             TransitionType = "closed"
)

// Transition is one observable change, delivered to observers in the order
// it was produced.
type Transition struct {
	Session   string              `json:"session"`
	At        time.Time           `json:"at"`
	Type      TransitionType      `json:"type"`
	Signal    string              `json:"signal,omitempty"`
	Class     string              `json:"class,omitempty"`
	Reason    string              `json:"reason,omitempty"`
	Before    risk.Level          `json:"before"`
	After     risk.Level          `json:"after"`
	Count     int                 `json:"count"`
	Limit     int                 `json:"limit"`
	Phase     violation.Phase     `json:"phase"`
	EndReason violation.EndReason `json:"end_reason,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Observer receives transitions. Observe is called outside the session lock.
type Observer interface {
	Observe(Transition)
}

// ObserverFunc adapts a func to Observer.
type ObserverFunc func(Transition)

// Observe calls f(t).
func (f ObserverFunc) Observe(t Transition) { f(t) }

// View is the read-only presentation signal.
type View struct {
	SessionID        string              `json:"session_id"`
	Risk             risk.Level          `json:"risk"`
	Warning          bool                `json:"warning"`
	FullscreenPrompt bool                `json:"fullscreen_prompt"`
	CheatingDetected bool                `json:"cheating_detected"`
	IdleSeconds      float64             `json:"idle_seconds"`
	Violations       int                 `json:"violations"`
	Limit            int                 `json:"limit"`
	Phase            violation.Phase     `json:"phase"`
	EndReason        violation.EndReason `json:"end_reason,omitempty"`
}

// Response tells the signal source what to do with the raw event.
type Response struct {
	PreventDefault bool
	Verdict        classify.Verdict
	Counted        bool
}

// Dispatcher accepts raw events. Session implements it.
type Dispatcher interface {
	Handle(signal.Event) Response
}

// Source delivers platform events to a dispatcher between Subscribe and the
// returned unsubscribe call.
type Source interface {
	Subscribe(d Dispatcher) (unsubscribe func(), err error)
}

// FullscreenRequester asks the platform to enter fullscreen.
type FullscreenRequester interface {
	RequestFullscreen(ctx context.Context) error
}

// FullscreenRequesterFunc adapts a func to FullscreenRequester.
type FullscreenRequesterFunc func(ctx context.Context) error

// RequestFullscreen calls f(ctx).
func (f FullscreenRequesterFunc) RequestFullscreen(ctx context.Context) error { return f(ctx) }
