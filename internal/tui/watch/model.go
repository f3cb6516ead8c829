package watch

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/clouddeck/stackd/internal/events"
	"github.com/clouddeck/stackd/internal/stack"
)

const (
	transitionLogLimit = 50

	healthInterval     = 5 * time.Second
	workspacesInterval = 3 * time.Second
	feedInterval       = 2 * time.Second
)

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	apiURL string
	apiKey string

	width  int
	height int

	// State
	health     HealthState
	workspaces []stack.Info
	log        []events.Transition
	lastID     int64

	// Live indicators
	ticker  Ticker
	spinner Spinner

	// UI state
	theme Theme
	wsTab table.Model

	// Error display
	lastError string
}

// New creates a new watch TUI model.
func New(apiURL, apiKey string) *Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ST", Width: 2},
			{Title: "Workspace", Width: 24},
			{Title: "State", Width: 20},
			{Title: "Updated", Width: 19},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return &Model{
		apiURL:  apiURL,
		apiKey:  apiKey,
		ticker:  NewTicker(),
		spinner: NewSpinner(),
		theme:   NewDefaultTheme(),
		wsTab:   t,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return fetchHealth(m.apiURL, m.apiKey) },
		func() tea.Msg { return fetchWorkspaces(m.apiURL, m.apiKey) },
		func() tea.Msg { return fetchTransitions(m.apiURL, m.apiKey, 0) },
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.wsTab.SetWidth(m.width - 6)

	case tickMsg:
		m.ticker.Tick()
		m.spinner.Decay()
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })

	case healthMsg:
		m.health.Status = msg.Status
		m.health.UptimeSeconds = msg.UptimeSeconds
		m.health.Workspaces = msg.Workspaces
		m.health.Connected = true
		m.health.LastCheck = time.Now()
		m.lastError = ""
		return m, tea.Tick(healthInterval, func(t time.Time) tea.Msg {
			return fetchHealth(m.apiURL, m.apiKey)
		})

	case workspacesMsg:
		m.workspaces = msg
		m.updateTable()
		return m, tea.Tick(workspacesInterval, func(t time.Time) tea.Msg {
			return fetchWorkspaces(m.apiURL, m.apiKey)
		})

	case transitionsMsg:
		if n := len(msg.Events); n > 0 {
			m.spinner.OnEvent()
			// Prepend newest-first.
			for _, tr := range msg.Events {
				m.log = append([]events.Transition{tr}, m.log...)
			}
			if len(m.log) > transitionLogLimit {
				m.log = m.log[:transitionLogLimit]
			}
		}
		m.lastID = msg.LastID
		return m, tea.Tick(feedInterval, func(t time.Time) tea.Msg {
			return fetchTransitions(m.apiURL, m.apiKey, m.lastID)
		})

	case errMsg:
		m.health.Connected = false
		m.lastError = msg.Error()
		// Retry the whole fetch set after a short delay.
		return m, tea.Tick(healthInterval, func(t time.Time) tea.Msg {
			return fetchHealth(m.apiURL, m.apiKey)
		})
	}

	m.wsTab, cmd = m.wsTab.Update(msg)
	return m, cmd
}

func (m *Model) updateTable() {
	rows := make([]table.Row, 0, len(m.workspaces))
	for _, info := range m.workspaces {
		updated := "-"
		if info.UpdatedAt > 0 {
			updated = time.UnixMilli(info.UpdatedAt).Local().Format("2006-01-02 15:04:05")
		}
		rows = append(rows, table.Row{
			m.stateSymbol(info.State),
			info.Name,
			string(info.State),
			updated,
		})
	}
	m.wsTab.SetRows(rows)
}

func (m *Model) stateSymbol(state stack.State) string {
	switch state.Phase() {
	case "complete":
		return m.theme.StatusOK.Render("●")
	case "in_progress":
		return m.theme.StatusRunning.Render("◉")
	case "failed":
		return m.theme.StatusFailed.Render("∅")
	default:
		return m.theme.StatusUnknown.Render("○")
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing stackd watch..."
	}

	header := renderHeader(m.health, m.ticker, m.spinner, m.theme, m.width)

	workspaces := m.theme.Border.Width(m.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.theme.Title.Render("WORKSPACES"),
			m.wsTab.View(),
		),
	)

	stream := renderTransitionStream(m.log, m.theme, m.width)

	var errBar string
	if m.lastError != "" {
		errBar = m.theme.StatusFailed.Render(fmt.Sprintf(" ⚠ %s", m.lastError))
	}

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render(" [q] Quit • [↑/↓] Navigate Workspaces")

	parts := []string{header, workspaces, stream}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}
