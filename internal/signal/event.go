package signal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind discriminates raw environment signals.
type Kind string

// Platform signals observed by a monitoring session.
const (
	KindVisibility  Kind = "visibilitychange"
	KindFullscreen  Kind = "fullscreenchange"
	KindBlur        Kind = "blur"
	KindFocus       Kind = "focus"
	KindKeyDown     Kind = "keydown"
	KindContextMenu Kind = "contextmenu"
	KindCopy        Kind = "copy"
)

// User interactions forwarded by the exam surface. They are not classified;
// the session routes them to the activity tracker and interstitial handling.
const (
	KindActivity         Kind = "activity"
	KindAcknowledge      Kind = "acknowledge"
	KindFullscreenReturn Kind = "fullscreen_return"
	KindSubmit           Kind = "submit"
)

var knownKinds = map[Kind]bool{
	KindVisibility:       true,
	KindFullscreen:       true,
	KindBlur:             true,
	KindFocus:            true,
	KindKeyDown:          true,
	KindContextMenu:      true,
	KindCopy:             true,
	KindActivity:         true,
	KindAcknowledge:      true,
	KindFullscreenReturn: true,
	KindSubmit:           true,
}

// Valid reports whether k is a known signal kind.
func (k Kind) Valid() bool {
	return knownKinds[k]
}

// IsControl reports whether k is a user interaction rather than a platform signal.
func (k Kind) IsControl() bool {
	switch k {
	case KindActivity, KindAcknowledge, KindFullscreenReturn, KindSubmit:
		return true
	}
	return false
}

// Event is one raw signal delivered to a session. Only the fields relevant
// to the kind are populated.
type Event struct {
	Kind Kind `json:"type" yaml:"type"`

	// keydown
	Key   string `json:"key,omitempty"   yaml:"key,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"  yaml:"ctrl,omitempty"`
	Shift bool   `json:"shift,omitempty" yaml:"shift,omitempty"`
	Meta  bool   `json:"meta,omitempty"  yaml:"meta,omitempty"`
	Alt   bool   `json:"alt,omitempty"   yaml:"alt,omitempty"`

	// visibilitychange
	Hidden bool `json:"hidden,omitempty" yaml:"hidden,omitempty"`

	// fullscreenchange
	Fullscreen bool `json:"fullscreen,omitempty" yaml:"fullscreen,omitempty"`

	// fullscreen_return: outcome of the platform request as reported by the bridge
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Modifier reports whether the platform command modifier (Ctrl or Meta) is held.
func (e Event) Modifier() bool {
	return e.Ctrl || e.Meta
}

// KeyLower returns the key identity lowercased.
func (e Event) KeyLower() string {
	return strings.ToLower(e.Key)
}

// String renders the event compactly for logs and transcripts.
func (e Event) String() string {
	switch e.Kind {
	case KindKeyDown:
		var parts []string
		if e.Ctrl {
			parts = append(parts, "ctrl")
		}
		if e.Meta {
			parts = append(parts, "meta")
		}
		if e.Alt {
			parts = append(parts, "alt")
		}
		if e.Shift {
			parts = append(parts, "shift")
		}
		parts = append(parts, e.Key)
		return "keydown " + strings.Join(parts, "+")
	case KindVisibility:
		if e.Hidden {
			return "visibilitychange hidden"
		}
		return "visibilitychange visible"
	case KindFullscreen:
		if e.Fullscreen {
			return "fullscreenchange enter"
		}
		return "fullscreenchange exit"
	}
	return string(e.Kind)
}

// Parse decodes one JSON encoded event and rejects unknown kinds.
func Parse(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("signal: parse event: %w", err)
	}
	if !ev.Kind.Valid() {
		return Event{}, fmt.Errorf("signal: unknown event type %q", ev.Kind)
	}
	return ev, nil
}
