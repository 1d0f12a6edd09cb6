package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"command-center/pkg/client"
	"command-center/pkg/model"
	"command-center/pkg/registry"
	"command-center/pkg/stream"
	"command-center/pkg/view"
)

// notifySink nudges the TUI whenever the stream applies or resets state; the
// actual data lives in the view-model.
type notifySink struct {
	ch chan struct{}
}

func (n notifySink) Apply(model.Envelope) { n.nudge() }
func (n notifySink) Reset()               { n.nudge() }

func (n notifySink) nudge() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

type tabID int

const (
	tabDashboard tabID = iota
	tabAgents
)

type (
	streamUpdateMsg struct{}
	tickMsg         time.Time
	connectedMsg    struct{ err error }
	dispatchedMsg   struct {
		taskID string
		err    error
	}
	agentsLoadedMsg struct {
		agents []model.Agent
		err    error
	}
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	agentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	statusStyle = map[model.TaskStatus]lipgloss.Style{
		model.StatusCompleted: okStyle,
		model.StatusFailed:    errorStyle,
	}
)

type dashboard struct {
	api     *client.Client
	mgr     *stream.Manager
	vm      *view.TaskView
	session *client.Session
	events  chan struct{}

	tab       tabID
	prompt    textinput.Model
	search    textinput.Model
	spin      spinner.Model
	feed      viewport.Model
	snap      view.Snapshot
	agents    []model.Agent
	filter    registry.Filter
	taskID    string
	isLoading bool
	errMsg    string
	connected bool
	width     int
	height    int
}

func newDashboard(api *client.Client, mgr *stream.Manager, vm *view.TaskView, events chan struct{}) *dashboard {
	prompt := textinput.New()
	prompt.Placeholder = "describe a task and press enter"
	prompt.CharLimit = 500
	prompt.Focus()

	search := textinput.New()
	search.Placeholder = "search agents"
	search.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	feed := viewport.New(80, 12)

	return &dashboard{
		api:     api,
		mgr:     mgr,
		vm:      vm,
		session: &client.Session{Client: api, Manager: mgr},
		events:  events,
		prompt:  prompt,
		search:  search,
		spin:    sp,
		feed:    feed,
		filter:  registry.FilterAll,
	}
}

func (m *dashboard) Init() tea.Cmd {
	return tea.Batch(
		m.connect(),
		m.loadAgents(),
		m.waitForUpdate(),
		tickEvery(),
		textinput.Blink,
		m.spin.Tick,
	)
}

func (m *dashboard) connect() tea.Cmd {
	mgr := m.mgr
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return connectedMsg{err: mgr.Connect(ctx)}
	}
}

func (m *dashboard) loadAgents() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		agents, err := api.Agents(ctx)
		return agentsLoadedMsg{agents: agents, err: err}
	}
}

func (m *dashboard) waitForUpdate() tea.Cmd {
	ch := m.events
	return func() tea.Msg {
		<-ch
		return streamUpdateMsg{}
	}
}

func (m *dashboard) submit(prompt string) tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		taskID, err := sess.Submit(ctx, prompt)
		return dispatchedMsg{taskID: taskID, err: err}
	}
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.feed.Width = msg.Width - 4
		if msg.Height > 18 {
			m.feed.Height = msg.Height - 16
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "tab":
			if m.tab == tabDashboard {
				m.tab = tabAgents
				m.prompt.Blur()
				m.search.Focus()
			} else {
				m.tab = tabDashboard
				m.search.Blur()
				m.prompt.Focus()
			}
			return m, nil
		case "ctrl+f":
			if m.tab == tabAgents {
				m.filter = m.filter.Next()
			}
			return m, nil
		case "ctrl+r":
			m.mgr.Reset()
			m.taskID = ""
			m.errMsg = ""
			m.snap = m.vm.Snapshot()
			m.syncFeed()
			return m, nil
		case "enter":
			if m.tab == tabDashboard && !m.isLoading {
				prompt := strings.TrimSpace(m.prompt.Value())
				if prompt == "" {
					return m, nil
				}
				m.isLoading = true
				m.errMsg = ""
				m.taskID = ""
				return m, tea.Batch(m.submit(prompt), m.spin.Tick)
			}
		}

	case connectedMsg:
		m.connected = msg.err == nil
		if msg.err != nil {
			m.errMsg = msg.err.Error()
		}
		return m, nil

	case tickMsg:
		m.connected = m.mgr.IsConnected()
		return m, tickEvery()

	case streamUpdateMsg:
		m.snap = m.vm.Snapshot()
		m.syncFeed()
		return m, m.waitForUpdate()

	case dispatchedMsg:
		m.isLoading = false
		switch {
		case errors.Is(msg.err, client.ErrStale):
			// superseded by a newer submission; nothing to show
		case msg.err != nil:
			m.errMsg = msg.err.Error()
		default:
			m.taskID = msg.taskID
			m.prompt.SetValue("")
		}
		return m, nil

	case agentsLoadedMsg:
		if msg.err != nil {
			m.errMsg = msg.err.Error()
		} else {
			m.agents = msg.agents
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.isLoading {
			return m, cmd
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if m.tab == tabDashboard {
		m.prompt, cmd = m.prompt.Update(msg)
		cmds = append(cmds, cmd)
		m.feed, cmd = m.feed.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		m.search, cmd = m.search.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *dashboard) syncFeed() {
	var b strings.Builder
	for _, msg := range m.snap.Messages {
		b.WriteString(fmt.Sprintf("%s %s %s  %s\n",
			agentStyle.Render(msg.From), labelStyle.Render("→"), agentStyle.Render(msg.To), msg.Content))
		if len(msg.Payload) > 0 {
			b.WriteString(labelStyle.Render(prettyJSON(msg.Payload)) + "\n")
		}
	}
	atBottom := m.feed.AtBottom()
	m.feed.SetContent(b.String())
	if atBottom {
		m.feed.GotoBottom()
	}
}

func (m *dashboard) View() string {
	if m.tab == tabAgents {
		return m.agentsView()
	}
	return m.dashboardView()
}

func (m *dashboard) dashboardView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Command Center") + "  " + m.connBadge() + "\n\n")
	b.WriteString(m.prompt.View() + "\n")
	if m.isLoading {
		b.WriteString(m.spin.View() + labelStyle.Render(" dispatching...") + "\n")
	}
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg) + "\n")
	}
	b.WriteString("\n" + panelStyle.Render(m.statusPanel()) + "\n")
	b.WriteString(panelStyle.Render("Agent feed\n"+m.feed.View()) + "\n")
	b.WriteString(panelStyle.Render(m.paymentsPanel()) + "\n")
	if m.snap.Done {
		b.WriteString(panelStyle.Render("Result\n"+prettyJSON(m.snap.Result)) + "\n")
	}
	b.WriteString(labelStyle.Render("enter: dispatch · tab: agents · ctrl+r: reset · ctrl+c: quit"))
	return b.String()
}

func (m *dashboard) statusPanel() string {
	status := string(m.snap.Status)
	if status == "" {
		status = "idle"
	}
	style, ok := statusStyle[m.snap.Status]
	if !ok {
		style = warnStyle
	}
	line := labelStyle.Render("task: ") + m.taskID + "  " + labelStyle.Render("status: ") + style.Render(status)
	if m.snap.Step != nil {
		line += "\n" + labelStyle.Render("step: ") + m.snap.Step.Specialist + ": " + m.snap.Step.Action
	}
	return line
}

func (m *dashboard) paymentsPanel() string {
	if len(m.snap.Payments) == 0 {
		return "Payments\n" + labelStyle.Render("none yet")
	}
	var b strings.Builder
	b.WriteString("Payments\n")
	for _, p := range m.snap.Payments {
		b.WriteString(fmt.Sprintf("%s → %s  %.2f %s  %s\n",
			p.From, p.To, p.Amount, p.Token, labelStyle.Render(p.TxSignature)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *dashboard) agentsView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Agent Registry") + "  " + m.connBadge() + "\n\n")
	b.WriteString(m.search.View() + "   " + labelStyle.Render("filter: ") + string(m.filter) + "\n\n")
	filtered := registry.Apply(m.agents, m.filter, m.search.Value())
	if len(filtered) == 0 {
		b.WriteString(labelStyle.Render("no agents match") + "\n")
	}
	for _, a := range filtered {
		trust := a.TrustLayer
		if a.TrustLayer == model.TrustLayerERC8004 {
			trust = okStyle.Render(a.TrustLayer + " ✓")
		}
		b.WriteString(fmt.Sprintf("%s  rep %d  %s\n  %s\n",
			agentStyle.Render(a.Name), a.Reputation, trust, labelStyle.Render(a.Description)))
	}
	b.WriteString("\n" + labelStyle.Render("ctrl+f: cycle filter · tab: dashboard · ctrl+c: quit"))
	return b.String()
}

func (m *dashboard) connBadge() string {
	if m.connected {
		return okStyle.Render("● live")
	}
	return errorStyle.Render("○ disconnected")
}

// prettyJSON renders an opaque blob for display without interpreting it.
func prettyJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
