// Package tui provides the terminal monitor for Sentinel.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/skovert/sentinel/internal/models"
	"github.com/skovert/sentinel/internal/store"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	successStyle = lipgloss.NewStyle().Foreground(successColor)
	warnStyle    = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
)

const pollInterval = 2 * time.Second

// App is the monitor TUI model. It polls the store the daemon writes to.
type App struct {
	store   *store.Store
	spinner spinner.Model

	cycles   []models.CycleSummary
	findings []models.IssueRecord
	events   []models.AuditEvent

	mode   string // "findings" or "audit"
	width  int
	height int
	err    error
}

// New creates a monitor over the given store.
func New(s *store.Store) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return &App{
		store:   s,
		spinner: sp,
		mode:    "findings",
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type refreshMsg struct {
	cycles   []models.CycleSummary
	findings []models.IssueRecord
	events   []models.AuditEvent
	err      error
}

type tickMsg time.Time

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.refresh(), a.tick())
}

func (a *App) refresh() tea.Cmd {
	return func() tea.Msg {
		var msg refreshMsg
		if msg.cycles, msg.err = a.store.ListCycles(10); msg.err != nil {
			return msg
		}
		if msg.findings, msg.err = a.store.ListIssues(20); msg.err != nil {
			return msg
		}
		msg.events, msg.err = a.store.ListAuditEvents(30)
		return msg
	}
}

func (a *App) tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "r":
			return a, a.refresh()
		case "tab":
			if a.mode == "findings" {
				a.mode = "audit"
			} else {
				a.mode = "findings"
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case refreshMsg:
		a.err = msg.err
		if msg.err == nil {
			a.cycles = msg.cycles
			a.findings = msg.findings
			a.events = msg.events
		}

	case tickMsg:
		return a, tea.Batch(a.refresh(), a.tick())

	default:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Sentinel Monitor"))
	b.WriteString("  " + a.spinner.View())
	b.WriteString("\n\n")

	b.WriteString(panelStyle.Render(a.renderLastCycle()))
	b.WriteString("\n")

	if a.mode == "findings" {
		b.WriteString(panelStyle.Render(a.renderFindings()))
	} else {
		b.WriteString(panelStyle.Render(a.renderAudit()))
	}
	b.WriteString("\n")

	status := fmt.Sprintf("%d cycles recorded", len(a.cycles))
	if a.err != nil {
		status = errorStyle.Render(fmt.Sprintf("store error: %v", a.err))
	}
	b.WriteString(statusBarStyle.Render(status))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab: findings/audit • r: refresh • q: quit"))

	return b.String()
}

func (a *App) renderLastCycle() string {
	if len(a.cycles) == 0 {
		return mutedStyle.Render("No cycles recorded yet")
	}
	c := a.cycles[0]
	return fmt.Sprintf(
		"Last cycle %s\n%s  %s  %s\n%d findings, %d issues created, %d skipped, %d emit failures, took %s",
		mutedStyle.Render(c.ID[:8]),
		successStyle.Render(fmt.Sprintf("%d ok", c.TasksSucceeded)),
		warnStyle.Render(fmt.Sprintf("%d timeout", c.TasksTimedOut)),
		errorStyle.Render(fmt.Sprintf("%d error", c.TasksFailed)),
		c.FindingsTotal, c.IssuesCreated, c.IssuesSkipped, c.EmitFailures,
		c.Duration.Round(time.Second),
	)
}

func (a *App) renderFindings() string {
	if len(a.findings) == 0 {
		return mutedStyle.Render("No issues created yet")
	}
	var b strings.Builder
	b.WriteString("Recent issues\n")
	for _, f := range a.findings {
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			priorityStyle(f.Priority).Render(fmt.Sprintf("%-11s", f.Priority)),
			f.Title,
			mutedStyle.Render("("+f.SourceTask+")"),
		))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) renderAudit() string {
	if len(a.events) == 0 {
		return mutedStyle.Render("No audit events yet")
	}
	var b strings.Builder
	b.WriteString("Audit trail\n")
	for _, e := range a.events {
		b.WriteString(fmt.Sprintf("%s %s %s %s\n",
			mutedStyle.Render(e.Timestamp.Local().Format("15:04:05")),
			severityStyle(e.Severity).Render(fmt.Sprintf("%-7s", e.Severity)),
			e.Event,
			e.Message,
		))
	}
	return strings.TrimRight(b.String(), "\n")
}

func priorityStyle(p models.Priority) lipgloss.Style {
	switch p {
	case models.PriorityCritical:
		return errorStyle
	case models.PriorityHigh:
		return warnStyle
	case models.PriorityLow:
		return mutedStyle
	default:
		return lipgloss.NewStyle()
	}
}

func severityStyle(sev string) lipgloss.Style {
	switch sev {
	case "SUCCESS":
		return successStyle
	case "WARN":
		return warnStyle
	case "ERROR":
		return errorStyle
	default:
		return mutedStyle
	}
}
