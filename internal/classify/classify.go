package classify

import "github.com/ppiankov/examguard/internal/signal"

// Class is the severity assigned to a raw signal.
type Class int

const (
	Ignorable Class = iota
	SoftWarning
	HardViolation
)

func (c Class) String() string {
	switch c {
	case SoftWarning:
		return "soft_warning"
	case HardViolation:
		return "hard_violation"
	default:
		return "ignorable"
	}
}

// Prompt names the interstitial a verdict raises.
type Prompt int

const (
	PromptNone Prompt = iota
	PromptWarning
	PromptFullscreen
)

func (p Prompt) String() string {
	switch p {
	case PromptWarning:
		return "warning"
	case PromptFullscreen:
		return "fullscreen"
	default:
		return "none"
	}
}

// Verdict is the classification of one signal.
type Verdict struct {
	Class          Class
	Prompt         Prompt
	PreventDefault bool
	Reason         string
}

// Func classifies one signal kind. Implementations are pure.
type Func func(signal.Event) Verdict

var ignore = Verdict{Class: Ignorable}

func hard(reason string, prevent bool) Verdict {
	return Verdict{Class: HardViolation, Prompt: PromptWarning, PreventDefault: prevent, Reason: reason}
}

// Visibility flags the tab becoming hidden.
func Visibility(ev signal.Event) Verdict {
	if !ev.Hidden {
		return ignore
	}
	return hard("tab hidden", false)
}

// Fullscreen flags leaving fullscreen and raises the return-to-fullscreen prompt.
func Fullscreen(ev signal.Event) Verdict {
	if ev.Fullscreen {
		return ignore
	}
	return Verdict{Class: HardViolation, Prompt: PromptFullscreen, Reason: "fullscreen exited"}
}

// Blur flags the window losing focus.
func Blur(signal.Event) Verdict {
	return hard("window lost focus", false)
}

// KeyDown flags Escape, the dev-tools shortcut and the print shortcut.
func KeyDown(ev signal.Event) Verdict {
	key := ev.KeyLower()
	switch {
	case key == "escape":
		return hard("escape pressed", false)
	case ev.Modifier() && ev.Shift && key == "i":
		return hard("dev tools shortcut", true)
	case ev.Modifier() && key == "p":
		return hard("print shortcut", true)
	}
	return ignore
}

// ContextMenu flags right-click and suppresses the native menu.
func ContextMenu(signal.Event) Verdict {
	return hard("context menu", true)
}

// Copy suppresses the copy without counting it.
func Copy(signal.Event) Verdict {
	return Verdict{Class: Ignorable, PreventDefault: true, Reason: "copy blocked"}
}

// DefaultTable maps every platform signal kind to its classification func.
func DefaultTable() map[signal.Kind]Func {
	return map[signal.Kind]Func{
		signal.KindVisibility:  Visibility,
		signal.KindFullscreen:  Fullscreen,
		signal.KindBlur:        Blur,
		signal.KindKeyDown:     KeyDown,
		signal.KindContextMenu: ContextMenu,
		signal.KindCopy:        Copy,
	}
}

// Classifier dispatches signals through a table keyed by kind.
type Classifier struct {
	table map[signal.Kind]Func
	soft  map[signal.Kind]bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithSoft downgrades hard violations of the given kinds to soft warnings.
func WithSoft(kinds ...signal.Kind) Option {
	return func(c *Classifier) {
		for _, k := range kinds {
			c.soft[k] = true
		}
	}
}

// WithFunc overrides the classification func for one kind.
func WithFunc(kind signal.Kind, fn Func) Option {
	return func(c *Classifier) {
		c.table[kind] = fn
	}
}

// New returns a Classifier over DefaultTable.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		table: DefaultTable(),
		soft:  make(map[signal.Kind]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the verdict for ev. Kinds without an entry are ignorable.
func (c *Classifier) Classify(ev signal.Event) Verdict {
	fn, ok := c.table[ev.Kind]
	if !ok {
		return ignore
	}
	v := fn(ev)
	if v.Class == HardViolation && c.soft[ev.Kind] {
		v.Class = SoftWarning
	}
	return v
}
