package dashboard

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taxclient/internal/api"
	"taxclient/internal/authflow"
	"taxclient/internal/cache"
	"taxclient/internal/forms"
	"taxclient/internal/model"
	"taxclient/internal/view"
)

// Sections are the resources the dashboard subscribes to, in display
// order after the overview.
var Sections = []string{
	api.KeyItrForms,
	api.KeyGstReturns,
	api.KeyTdsReturns,
	api.KeyDocuments,
}

var (
	accent        = lipgloss.AdaptiveColor{Light: "4", Dark: "12"}
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	selectedStyle = panelStyle.BorderForeground(accent)
)

// refreshMsg tells the model that at least one subscribed key changed.
type refreshMsg struct{}

// Model is the Bubble Tea model of the tax dashboard. Each section is a
// cache subscription; listeners only signal a channel and the model reads
// the latest states when it handles the signal, so bursts of updates
// collapse into one redraw.
type Model struct {
	client   *api.Client
	user     model.User
	subs     map[string]*cache.Subscription
	states   map[string]cache.State
	changed  chan struct{}
	selected int
	width    int
	spinner  spinner.Model
	progress progress.Model
	help     help.Model
	keys     keyMap
	quitting bool
}

// NewModel subscribes to the overview and every section. A signed-out
// session is sent to login through auth.
func NewModel(client *api.Client, auth *authflow.Handler) Model {
	ctx := context.Background()
	if auth != nil {
		auth.RequireSession(client.Authenticated(ctx))
	}
	user, _ := client.CurrentUser(ctx)
	m := Model{
		client:   client,
		user:     user,
		subs:     make(map[string]*cache.Subscription),
		states:   make(map[string]cache.State),
		changed:  make(chan struct{}, 1),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		help:     help.New(),
		keys:     defaultKeyMap(),
	}
	for _, resource := range append([]string{api.KeyDashboardStats}, Sections...) {
		sub := client.Subscribe(resource, m.signal)
		m.subs[resource] = sub
		m.states[resource] = sub.Initial()
	}
	return m
}

func (m Model) signal(cache.State) {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

func waitForChange(changed <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-changed
		return refreshMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForChange(m.changed))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case refreshMsg:
		m.refresh()
		return m, waitForChange(m.changed)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Down):
		m.selected = (m.selected + 1) % len(Sections)
	case key.Matches(msg, m.keys.Up):
		m.selected = (m.selected + len(Sections) - 1) % len(Sections)
	case key.Matches(msg, m.keys.Refresh):
		for resource := range m.subs {
			m.client.Invalidate(resource)
		}
		m.refresh()
	}
	return m, nil
}

func (m Model) refresh() {
	for resource, sub := range m.subs {
		m.states[resource] = sub.State()
	}
}

// Close drops every subscription. It is safe to call more than once.
func (m Model) Close() {
	for _, sub := range m.subs {
		sub.Unsubscribe()
	}
}

func (m Model) loading() bool {
	for _, state := range m.states {
		if state.Status == cache.StatusLoading || state.Fetching {
			return true
		}
	}
	return false
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("Tax Dashboard"))
	if m.loading() {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteByte('\n')
	if m.user.FirstName != "" {
		b.WriteString("Welcome back, " + m.user.FirstName + "!\n")
	}
	b.WriteByte('\n')

	statsState := m.states[api.KeyDashboardStats]
	if stats, ok := cache.Value[model.DashboardStats](statsState); ok && statsState.Status == cache.StatusSuccess {
		b.WriteString(m.progress.ViewAs(forms.CompletionPercentage(stats) / 100))
		b.WriteByte('\n')
	}
	b.WriteString(panelStyle.Render(view.Render(statsState, view.SectionFor(api.KeyDashboardStats))))
	b.WriteByte('\n')

	for i, resource := range Sections {
		style := panelStyle
		if i == m.selected {
			style = selectedStyle
		}
		b.WriteString(style.Render(view.Render(m.states[resource], view.SectionFor(resource))))
		b.WriteByte('\n')
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
