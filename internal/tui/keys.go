package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ppiankov/examguard/internal/signal"
)

// translate maps terminal input to the monitored signal it stands for.
// Terminals cannot report shift on ctrl chords, so the dev-tools chord has
// no terminal equivalent; ctrl+p and esc map directly.
func translate(msg tea.Msg) (signal.Event, bool) {
	switch msg := msg.(type) {
	case tea.BlurMsg:
		return signal.Event{Kind: signal.KindBlur}, true
	case tea.FocusMsg:
		return signal.Event{Kind: signal.KindFocus}, true
	case tea.MouseMsg:
		if msg.Type == tea.MouseRight {
			return signal.Event{Kind: signal.KindContextMenu}, true
		}
		return signal.Event{Kind: signal.KindActivity}, true
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			return signal.Event{Kind: signal.KindKeyDown, Key: "Escape"}, true
		case tea.KeyCtrlP:
			return signal.Event{Kind: signal.KindKeyDown, Key: "p", Ctrl: true}, true
		case tea.KeyCtrlC:
			return signal.Event{Kind: signal.KindCopy}, true
		}
		return signal.Event{Kind: signal.KindKeyDown, Key: msg.String(), Alt: msg.Alt}, true
	}
	return signal.Event{}, false
}

// fits reports whether the terminal counts as fullscreen.
func fits(width, height, minWidth, minHeight int) bool {
	return width >= minWidth && height >= minHeight
}
