package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/core"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/events"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/graphstore"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/registry"
)

const maxLogLines = 200

// Model is the bubbletea program driving the terminal renderer (§4.12): it
// polls the Task State Registry on a tick and never mutates scheduler
// state, matching §5's "UI renderer reads registry" ordering guarantee.
type Model struct {
	reg       *registry.Registry
	feed      *logFeed
	workspace string

	names  []string
	rows   map[string]registry.Entry
	cursor int

	spinner SpinnerModel
	logs    []LogLineMsg

	width, height int
	quitting      bool
}

// New constructs the renderer model bound to the run's shared Registry and
// event bus. workspace locates each task's TASK.md/TODO.md/CODE_REVIEW.md
// for the detail pane.
func New(reg *registry.Registry, bus *events.EventBus, workspace string) Model {
	return Model{
		reg:       reg,
		feed:      newLogFeed(bus),
		workspace: workspace,
		rows:      make(map[string]registry.Entry),
		spinner:   NewSpinner(),
	}
}

// NewProgram builds the bubbletea Program without starting it, so the
// caller can hold a handle to call Quit once the scheduler run finishes.
func NewProgram(reg *registry.Registry, bus *events.EventBus, workspace string) *tea.Program {
	return tea.NewProgram(New(reg, bus, workspace), tea.WithAltScreen())
}

func (m Model) Init() tea.Cmd {
	m.reg.SetUIActive(true)
	return tea.Batch(pollTick(), m.spinner.Tick(), waitForLogLine(m.feed.out))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case PollTickMsg:
		m.refresh()
		return m, pollTick()

	case SpinnerTickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case LogLineMsg:
		m.logs = append(m.logs, msg)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		return m, waitForLogLine(m.feed.out)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.reg.SetUIActive(false)
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.names)-1 {
			m.cursor++
		}
	}
	return m, nil
}

// refresh re-reads the registry snapshot. Names are sorted for stable
// display ordering since Snapshot returns an unordered map — the registry
// itself tracks insertion order internally but exposes none of it, keeping
// the renderer's only coupling to it a plain read of Status/Step/Message.
func (m *Model) refresh() {
	snapshot := m.reg.Snapshot()
	m.rows = snapshot

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)
	m.names = names

	if m.cursor >= len(m.names) {
		m.cursor = len(m.names) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	list := m.renderList()
	detail := m.renderDetail()
	logs := m.renderLogs()

	body := lipgloss.JoinHorizontal(lipgloss.Top, BoxStyle.Render(list), BoxStyle.Render(detail))
	return HeaderStyle.Render("taskmesh") + "\n" + body + "\n" + logs + "\n" +
		FooterStyle.Render("↑/↓ select · q quit")
}

func (m Model) renderList() string {
	if len(m.names) == 0 {
		return SubtleStyle.Render("waiting for tasks...")
	}

	var b strings.Builder
	for i, name := range m.names {
		entry := m.rows[name]
		line := fmt.Sprintf("%s %s", m.statusMarker(entry.Status), name)
		if entry.Step != nil {
			line += " " + SubtleStyle.Render("("+*entry.Step+")")
		}
		style := TaskStyle
		if i == m.cursor {
			style = SelectedTaskStyle
		}
		b.WriteString(style.Render(line) + "\n")
	}
	return b.String()
}

func (m Model) statusMarker(status core.Status) string {
	switch status {
	case core.StatusRunning:
		return m.spinner.View()
	case core.StatusCompleted:
		return CompletedStyle.Render("✔")
	case core.StatusFailed:
		return FailedStyle.Render("✘")
	default:
		return PendingStyle.Render("·")
	}
}

// renderDetail shows the selected task's most recently produced artifact,
// preferring the review phase's output over the implement/plan phases'.
func (m Model) renderDetail() string {
	if len(m.names) == 0 {
		return SubtleStyle.Render("no tasks yet")
	}
	name := m.names[m.cursor]
	dir := filepath.Join(m.workspace, graphstore.TaskExecutorDirName, name)

	entry := m.rows[name]
	header := TitleStyle.Render(name) + " " + SubtleStyle.Render(string(entry.Status)) + "\n\n"
	if entry.Message != nil {
		header += SubtleStyle.Render(*entry.Message) + "\n\n"
	}

	for _, candidate := range []string{"CODE_REVIEW.md", "TODO.md", "TASK.md"} {
		data, err := os.ReadFile(filepath.Join(dir, candidate))
		if err != nil {
			continue
		}
		rendered, err := glamour.Render(string(data), "dark")
		if err != nil {
			return header + string(data)
		}
		return header + rendered
	}
	return header + SubtleStyle.Render("no artifacts yet")
}

func (m Model) renderLogs() string {
	if len(m.logs) == 0 {
		return ""
	}
	start := 0
	if len(m.logs) > 8 {
		start = len(m.logs) - 8
	}
	var b strings.Builder
	for _, line := range m.logs[start:] {
		b.WriteString(logStyle(line.Level).Render(line.Message) + "\n")
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func logStyle(level string) lipgloss.Style {
	switch strings.ToLower(level) {
	case "error":
		return ErrorLogStyle
	case "warn", "warning":
		return WarnLogStyle
	case "debug":
		return DebugLogStyle
	default:
		return InfoLogStyle
	}
}
