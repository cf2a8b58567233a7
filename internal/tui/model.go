package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bloomworks/livebus/internal/conflict"
	"github.com/bloomworks/livebus/internal/hub"
	"github.com/bloomworks/livebus/internal/registry"
)

// tickMsg drives the periodic refresh.
type tickMsg time.Time

// Model is the monitor dashboard: a channel table plus coordinator and
// conflict summaries, refreshed on a fixed interval.
type Model struct {
	hub     *hub.Hub
	refresh time.Duration

	channels table.Model
	width    int
	height   int
}

// New creates a monitor model over a running hub.
func New(h *hub.Hub, refresh time.Duration) Model {
	if refresh <= 0 {
		refresh = time.Second
	}

	columns := []table.Column{
		{Title: "Channel", Width: 24},
		{Title: "State", Width: 9},
		{Title: "Subs", Width: 5},
		{Title: "Raised", Width: 7},
		{Title: "Delivered", Width: 9},
		{Title: "Dropped", Width: 7},
		{Title: "History", Width: 7},
	}

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(textColor).
		Background(primaryColor)

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithStyles(s),
	)

	m := Model{hub: h, refresh: refresh, channels: t}
	m.refreshRows()
	return m
}

func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.refreshRows()
		return m, m.tickCmd()
	}

	var cmd tea.Cmd
	m.channels, cmd = m.channels.Update(msg)
	return m, cmd
}

// refreshRows rebuilds the channel table from live metrics.
func (m *Model) refreshRows() {
	health := make(map[string]registry.Health)
	for _, entry := range m.hub.Health() {
		health[entry.ChannelID] = entry
	}

	rows := make([]table.Row, 0, m.hub.Registry().Count())
	for _, ch := range m.hub.Registry().All() {
		metrics := ch.Metrics()
		dropped := metrics.Invalid + metrics.RateLimited + metrics.Unauthorized + metrics.Filtered
		rows = append(rows, table.Row{
			ch.ID(),
			channelState(health[ch.ID()]),
			fmt.Sprintf("%d", metrics.Subscribers),
			fmt.Sprintf("%d", metrics.Raised),
			fmt.Sprintf("%d", metrics.Delivered),
			fmt.Sprintf("%d", dropped),
			fmt.Sprintf("%d", metrics.HistorySize),
		})
	}
	m.channels.SetRows(rows)
}

func channelState(h registry.Health) string {
	switch {
	case !h.Active:
		return "inactive"
	case !h.Healthy:
		return "stale"
	default:
		return "healthy"
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("livebus monitor"))
	b.WriteString("\n")
	b.WriteString(containerStyle.Render(m.channels.View()))
	b.WriteString("\n\n")
	b.WriteString(m.coordinatorView())
	b.WriteString("\n")
	b.WriteString(m.conflictView())
	b.WriteString(helpStyle.Render("↑/↓ select • q quit"))

	return b.String()
}

func (m Model) coordinatorView() string {
	var b strings.Builder

	coord := m.hub.Coordinator()
	header := sectionStyle.Render("Global events")
	if coord.Shedding() {
		header += "  " + sheddingStyle.Render("LOAD SHEDDING")
	}
	b.WriteString(header)
	b.WriteString("\n")

	states := coord.States()
	if len(states) == 0 {
		b.WriteString(mutedStyle.Render("  no tracked events"))
		b.WriteString("\n")
		return b.String()
	}
	for _, state := range states {
		line := fmt.Sprintf("  %s  phase=%s  progress=%.1f  participants=%d",
			state.EventID, state.Phase, state.GlobalProgress, state.TotalParticipants)
		if state.Crisis {
			line += "  " + conflictStyle.Render("CRISIS")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) conflictView() string {
	var b strings.Builder

	engine := m.hub.Engine()
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Conflicts (%d open)", engine.ActiveCount())))
	b.WriteString("\n")

	open := 0
	for _, record := range engine.Records() {
		if record.State == conflict.StateResolved {
			continue
		}
		open++
		b.WriteString(conflictStyle.Render(fmt.Sprintf("  %s  %s  severity=%s  state=%s",
			record.ID, record.Type, record.Severity, record.State)))
		b.WriteString("\n")
	}
	if open == 0 {
		b.WriteString(healthyStyle.Render("  none"))
		b.WriteString("\n")
	}
	return b.String()
}

// Run starts the monitor over a running hub and blocks until the user
// quits.
func Run(h *hub.Hub, refresh time.Duration) error {
	p := tea.NewProgram(New(h, refresh), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
