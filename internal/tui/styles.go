package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/examguard/internal/risk"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	chosenStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	warningStyle = panelStyle.
			BorderForeground(lipgloss.Color("196")).
			Foreground(lipgloss.Color("230"))

	fullscreenStyle = panelStyle.
			BorderForeground(lipgloss.Color("214"))
)

func riskStyle(l risk.Level) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch l {
	case risk.High:
		return base.Background(lipgloss.Color("196")).Foreground(lipgloss.Color("231"))
	case risk.Medium:
		return base.Background(lipgloss.Color("214")).Foreground(lipgloss.Color("16"))
	default:
		return base.Background(lipgloss.Color("42")).Foreground(lipgloss.Color("16"))
	}
}
