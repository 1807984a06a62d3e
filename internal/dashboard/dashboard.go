// Package dashboard renders the live tracking screen for ft watch.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"focustrack/internal/tracker"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	focusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	distractStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	stoppedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Bold(true)

	percentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F7DC6F")).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(1, 2).
			MarginBottom(1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

type updateMsg tracker.DisplayUpdate

type noticeMsg string

// TransitionFunc applies one state change. The model calls it off the
// render goroutine.
type TransitionFunc func(ctx context.Context, next tracker.State) (tracker.DayRecord, error)

const transitionTimeout = 10 * time.Second

// Model is the bubbletea model for the watch screen. Frames arrive as
// updateMsg values pushed through a Surface; keystrokes request state
// changes through transition.
type Model struct {
	update     tracker.DisplayUpdate
	notice     string
	transition TransitionFunc
	width      int
	height     int
}

func NewModel(transition TransitionFunc) Model {
	return Model{transition: transition}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "f":
			return m, m.transitionCmd(tracker.StateFocus)
		case "d":
			return m, m.transitionCmd(tracker.StateDistract)
		case "s":
			return m, m.transitionCmd(tracker.StateNone)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case updateMsg:
		m.update = tracker.DisplayUpdate(msg)
	case noticeMsg:
		m.notice = string(msg)
	}
	return m, nil
}

func (m Model) transitionCmd(next tracker.State) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), transitionTimeout)
		defer cancel()
		if _, err := m.transition(ctx, next); err != nil {
			return noticeMsg("could not switch state: " + err.Error())
		}
		return nil
	}
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	account := "anonymous"
	if m.update.UserID != "" {
		account = m.update.UserID
	}
	header := headerStyle.Width(m.width).Render(
		fmt.Sprintf("Focus Tracker • %s • %s", time.Now().Format("Jan 2, 2006"), account),
	)

	colWidth := m.width/2 - 3
	if colWidth < 20 {
		colWidth = 20
	}

	focusClock := m.update.FocusClock
	distractClock := m.update.DistractClock
	if focusClock == "" {
		focusClock = tracker.FormatClock(0)
		distractClock = tracker.FormatClock(0)
	}

	focusBox := boxStyle.Width(colWidth).Render(fmt.Sprintf(
		"FOCUSED\n\n%s", focusStyle.Render(focusClock),
	))
	distractBox := boxStyle.Width(colWidth).Render(fmt.Sprintf(
		"DISTRACTED\n\n%s", distractStyle.Render(distractClock),
	))

	var state string
	switch m.update.State {
	case tracker.StateFocus:
		state = focusStyle.Render("● focusing")
	case tracker.StateDistract:
		state = distractStyle.Render("● distracted")
	default:
		state = stoppedStyle.Render("● stopped")
	}

	percent := m.update.FocusPercent
	if percent == "" {
		percent = tracker.FormatFocusPercent(0, 0)
	}
	summaryBox := boxStyle.Width(2*colWidth + 2).Render(fmt.Sprintf(
		"%s\nFocus share of tracked time: %s",
		state, percentStyle.Render(percent),
	))

	lines := []string{
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, focusBox, distractBox),
		summaryBox,
	}
	if m.notice != "" {
		lines = append(lines, noticeStyle.Render(m.notice))
	}
	lines = append(lines, footerStyle.Width(m.width).Render(
		"f focus • d distract • s stop • q quit",
	))

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	if pad := m.height - lipgloss.Height(content) - 1; pad > 0 {
		content += strings.Repeat("\n", pad)
	}
	return content
}
