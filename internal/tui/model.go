// Package tui is a terminal exam front end. Terminal focus, keys, mouse and
// window size stand in for the browser signals a session monitors.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/examguard/internal/exam"
	"github.com/ppiankov/examguard/internal/session"
	"github.com/ppiankov/examguard/internal/signal"
	"github.com/ppiankov/examguard/internal/violation"
)

const refreshInterval = 250 * time.Millisecond

// Viewer exposes the presentation snapshot.
type Viewer interface {
	View() session.View
}

type screen int

const (
	screenRules screen = iota
	screenExam
	screenResult
)

type refreshMsg time.Time

// Options configures a Model.
type Options struct {
	Viewer    Viewer
	Exam      *exam.Exam
	MinWidth  int
	MinHeight int
	// OnStart is called once when the candidate starts the exam.
	OnStart func()
}

// Model is the bubbletea model for one exam sitting.
type Model struct {
	opts       Options
	exam       *exam.Exam
	dispatcher session.Dispatcher

	screen   screen
	width    int
	height   int
	fits     bool
	view     session.View
	notice   string
	started  bool
	quitting bool
}

// New returns a model on the rules screen.
func New(opts Options) Model {
	if opts.Exam == nil {
		opts.Exam = exam.New(nil)
	}
	return Model{opts: opts, exam: opts.Exam, fits: true}
}

// NewProgram builds the program with focus and mouse reporting on.
func NewProgram(m Model) *tea.Program {
	return tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	)
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

// Init starts the view refresh loop.
func (m Model) Init() tea.Cmd {
	return refresh()
}

// Update handles terminal input and session attachment.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case attachMsg:
		m.dispatcher = msg.d
		return m.sync(), nil
	case detachMsg:
		m.dispatcher = nil
		return m, nil
	case refreshMsg:
		return m.sync(), refresh()
	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height), nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+q" {
			m.quitting = true
			return m, tea.Quit
		}
		return m.key(msg)
	case tea.FocusMsg, tea.BlurMsg, tea.MouseMsg:
		m.dispatch(msg)
		return m.sync(), nil
	}
	return m, nil
}

func (m Model) resize(w, h int) Model {
	m.width, m.height = w, h
	now := fits(w, h, m.opts.MinWidth, m.opts.MinHeight)
	if now != m.fits {
		m.fits = now
		m.send(signal.Event{Kind: signal.KindFullscreen, Fullscreen: now})
	}
	return m.sync()
}

func (m Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenRules:
		if msg.Type == tea.KeyEnter {
			if !m.fits {
				m.notice = fmt.Sprintf("Enlarge the terminal to at least %dx%d to start.", m.opts.MinWidth, m.opts.MinHeight)
				return m, nil
			}
			m.screen = screenExam
			m.notice = ""
			if !m.started && m.opts.OnStart != nil {
				m.started = true
				m.opts.OnStart()
			}
		}
		return m, nil
	case screenResult:
		if msg.Type == tea.KeyEnter || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	m.dispatch(msg)
	m = m.sync()
	if m.screen != screenExam {
		return m, nil
	}

	switch {
	case m.view.Warning && msg.Type == tea.KeyEnter:
		m.send(signal.Event{Kind: signal.KindAcknowledge})
	case m.view.FullscreenPrompt && msg.String() == "f":
		m.send(m.fullscreenReturn())
	case m.view.Warning || m.view.FullscreenPrompt:
		// Answers are blocked behind an interstitial.
	case msg.Type == tea.KeyLeft:
		i, _ := m.exam.Current()
		m.exam.Goto(i - 1)
	case msg.Type == tea.KeyRight:
		i, _ := m.exam.Current()
		m.exam.Goto(i + 1)
	case msg.String() == "s" && m.exam.OnLast():
		m.send(signal.Event{Kind: signal.KindSubmit})
	case len(msg.Runes) == 1 && msg.Runes[0] >= '1' && msg.Runes[0] <= '9':
		if err := m.exam.Answer(int(msg.Runes[0] - '1')); err != nil {
			m.notice = err.Error()
		} else {
			m.notice = ""
		}
	}
	return m.sync(), nil
}

// fullscreenReturn reports the outcome of asking for fullscreen: the
// terminal either already fits or the request is rejected.
func (m Model) fullscreenReturn() signal.Event {
	ev := signal.Event{Kind: signal.KindFullscreenReturn}
	if !fits(m.width, m.height, m.opts.MinWidth, m.opts.MinHeight) {
		ev.Error = fmt.Sprintf("terminal is %dx%d, need at least %dx%d", m.width, m.height, m.opts.MinWidth, m.opts.MinHeight)
	}
	return ev
}

func (m Model) dispatch(msg tea.Msg) {
	if m.screen != screenExam {
		return
	}
	if ev, ok := translate(msg); ok {
		m.send(ev)
	}
}

func (m Model) send(ev signal.Event) {
	if m.dispatcher == nil || m.screen != screenExam {
		return
	}
	m.dispatcher.Handle(ev)
}

func (m Model) sync() Model {
	if m.opts.Viewer == nil {
		return m
	}
	m.view = m.opts.Viewer.View()
	if m.view.Phase == violation.Completed && m.screen == screenExam {
		m.screen = screenResult
	}
	return m
}

// View renders the current screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var body string
	switch m.screen {
	case screenRules:
		body = m.rulesView()
	case screenResult:
		body = m.resultView()
	default:
		body = m.examView()
		switch {
		case m.view.FullscreenPrompt:
			body = m.overlay(fullscreenStyle.Render(fmt.Sprintf(
				"Fullscreen required\n\nEnlarge the terminal to at least %dx%d, then press f.",
				m.opts.MinWidth, m.opts.MinHeight)))
		case m.view.Warning:
			body = m.overlay(warningStyle.Render(fmt.Sprintf(
				"Warning: suspicious activity detected\n\nViolations: %d of %d\nFurther violations may result in exam termination.\n\nPress Enter to continue.",
				m.view.Violations, m.view.Limit)))
		}
	}
	if m.notice != "" {
		body += "\n" + errStyle.Render(m.notice)
	}
	return body
}

func (m Model) overlay(box string) string {
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) rulesView() string {
	var b strings.Builder
	title := m.exam.Title()
	if title == "" {
		title = "Exam"
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")
	b.WriteString("Rules\n")
	for i, r := range m.exam.Rules() {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, r)
	}
	b.WriteString("\n" + dimStyle.Render("Press Enter to start. Ctrl+Q quits."))
	return panelStyle.Render(b.String())
}

func (m Model) examView() string {
	i, q := m.exam.Current()
	var b strings.Builder

	status := fmt.Sprintf("%s  violations %d/%d  idle %.0fs",
		riskStyle(m.view.Risk).Render("RISK "+strings.ToUpper(m.view.Risk.String())),
		m.view.Violations, m.view.Limit, m.view.IdleSeconds)
	b.WriteString(status + "\n\n")

	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render(fmt.Sprintf("Question %d of %d", i+1, m.exam.Len())))
	b.WriteString(q.Text + "\n\n")
	selected, answered := m.exam.Selected(i)
	for j, opt := range q.Options {
		line := fmt.Sprintf("  [%d] %s", j+1, opt)
		if answered && selected == j {
			line = chosenStyle.Render("> " + line[2:])
		}
		b.WriteString(line + "\n")
	}

	help := "1-9 answer   <- -> navigate   ctrl+q quit"
	if m.exam.OnLast() {
		help = "1-9 answer   s submit   <- navigate   ctrl+q quit"
	}
	b.WriteString("\n" + dimStyle.Render(help))
	return panelStyle.Render(b.String())
}

func (m Model) resultView() string {
	r := m.exam.Result()
	var b strings.Builder
	b.WriteString(titleStyle.Render("Exam finished") + "\n\n")

	switch m.view.EndReason {
	case violation.EndViolationLimit:
		b.WriteString(errStyle.Render("Terminated: violation limit reached") + "\n\n")
	case violation.EndSubmitted:
		b.WriteString("Submitted\n\n")
	}
	fmt.Fprintf(&b, "Answered: %d of %d\n", r.Answered, r.Total)
	fmt.Fprintf(&b, "Correct:  %d\n", r.Correct)
	fmt.Fprintf(&b, "Score:    %.0f%%\n", r.Score)
	fmt.Fprintf(&b, "Violations: %d\n", m.view.Violations)
	b.WriteString("\n" + dimStyle.Render("Press Enter to exit."))
	return panelStyle.Render(b.String())
}
