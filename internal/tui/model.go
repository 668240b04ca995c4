// Package tui renders a live dashboard for load runs.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/notesprobe/internal/config"
	"github.com/notesprobe/internal/loadtest"
)

// Source supplies the live state of a run.
type Source interface {
	Snapshot() loadtest.Snapshot
}

// Target describes what is being tested, for display only.
type Target struct {
	BaseURL  string
	Method   string
	Endpoint string
}

// tickMsg refreshes the snapshot.
type tickMsg time.Time

// DoneMsg is sent when the run has returned.
type DoneMsg struct {
	Summary *loadtest.Summary
	Err     error
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the bubbletea model of the load dashboard.
type Model struct {
	source     Source
	target     Target
	thresholds config.Thresholds
	stop       func()

	spinner spinner.Model
	width   int

	snap     loadtest.Snapshot
	peakRPS  float64
	stopping bool
	done     bool
	result   DoneMsg
}

// NewModel creates the dashboard. stop is called once when the user
// interrupts the run; the model then waits for DoneMsg.
func NewModel(source Source, target Target, thresholds config.Thresholds, stop func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Line
	s.Style = InfoStyle
	return Model{
		source:     source,
		target:     target,
		thresholds: thresholds,
		stop:       stop,
		spinner:    s,
		width:      80,
	}
}

// Init starts the refresh loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.done {
				return m, tea.Quit
			}
			if !m.stopping {
				m.stopping = true
				if m.stop != nil {
					m.stop()
				}
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		if m.done {
			return m, nil
		}
		m.refresh()
		return m, tickCmd()

	case DoneMsg:
		m.refresh()
		m.done = true
		m.result = msg
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) refresh() {
	m.snap = m.source.Snapshot()
	if m.snap.Summary.CurrentRPS > m.peakRPS {
		m.peakRPS = m.snap.Summary.CurrentRPS
	}
}

// Result returns the outcome delivered by DoneMsg.
func (m Model) Result() (*loadtest.Summary, error) {
	return m.result.Summary, m.result.Err
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString("\n")

	var status string
	switch {
	case m.done:
		status = SuccessStyle.Render(CheckMark + " FINISHED")
	case m.stopping:
		status = WarningStyle.Render(WarningSign + " STOPPING")
	default:
		status = m.spinner.View() + " " + SuccessStyle.Render("RUNNING")
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center, MiniLogo(), "  ", status)
	b.WriteString(lipgloss.Place(m.width, 0, lipgloss.Center, lipgloss.Top, header))
	b.WriteString("\n\n")

	s := m.snap.Summary
	var progress float64
	if m.snap.Duration > 0 {
		progress = float64(m.snap.Elapsed) / float64(m.snap.Duration)
	}

	stats := lipgloss.JoinVertical(lipgloss.Left,
		SubtitleStyle.Render("Progress"),
		fmt.Sprintf("  %s %s", ProgressBar(progress, 40),
			DimStyle.Render(fmt.Sprintf("%s / %s", m.snap.Elapsed.Round(time.Second), m.snap.Duration))),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top,
			column("Users", fmt.Sprintf("%d / %d", m.snap.ActiveUsers, m.snap.TargetUsers), ValueStyle),
			"    ",
			column("Requests", fmt.Sprintf("%d", s.TotalRequests), ValueStyle),
			"    ",
			column("Failures", fmt.Sprintf("%d", s.Failures), ErrorStyle),
			"    ",
			column("In flight", fmt.Sprintf("%d", m.snap.InFlight), ValueStyle),
		),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top,
			column("RPS", fmt.Sprintf("%.0f (avg %.1f, peak %.0f)", s.CurrentRPS, s.RPS, m.peakRPS), ValueStyle),
			"    ",
			column("Avg latency", fmt.Sprintf("%.1fms", ms(s.AvgLatency)), ValueStyle),
			"    ",
			column("P95", fmt.Sprintf("%.1fms", ms(s.P95)), ValueStyle),
		),
		"",
		LabelStyle.Render("Success rate")+"  "+m.coloredSuccessRate(s),
		LabelStyle.Render("Target health")+" "+healthLabel(m.snap.Healthy),
	)

	targetInfo := lipgloss.JoinVertical(lipgloss.Left,
		SubtitleStyle.Render("Target"),
		DimStyle.Render(fmt.Sprintf("  %s %s%s", m.target.Method, m.target.BaseURL, m.target.Endpoint)),
	)

	content := lipgloss.JoinVertical(lipgloss.Left, stats, "", Divider(56), "", targetInfo)
	box := ActiveBorderStyle.Width(64).Render(content)
	b.WriteString(lipgloss.Place(m.width, 0, lipgloss.Center, lipgloss.Top, box))
	b.WriteString("\n\n")

	help := "Q: stop the run"
	if m.done {
		help = "Q: exit"
	}
	b.WriteString(lipgloss.Place(m.width, 0, lipgloss.Center, lipgloss.Top, HelpStyle.Render(help)))
	b.WriteString("\n")
	return b.String()
}

func column(label, value string, style lipgloss.Style) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		LabelStyle.Render(label),
		style.Render("  "+value),
	)
}

// coloredSuccessRate colors the rate against the configured minimum.
func (m Model) coloredSuccessRate(s loadtest.Summary) string {
	text := fmt.Sprintf("%.2f%%", s.SuccessRate)
	switch {
	case s.TotalRequests == 0:
		return DimStyle.Render("-")
	case s.SuccessRate >= m.thresholds.MinSuccessRate:
		return SuccessStyle.Render(text)
	case s.SuccessRate >= m.thresholds.MinSuccessRate-5:
		return WarningStyle.Render(text)
	default:
		return ErrorStyle.Render(text)
	}
}

func healthLabel(healthy bool) string {
	if healthy {
		return SuccessStyle.Render(BulletPoint + " healthy")
	}
	return ErrorStyle.Render(BulletPoint + " unhealthy")
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
