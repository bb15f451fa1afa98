package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	srvctlv1 "srvctl/api/srvctl/v1"
	"srvctl/internal/app"
)

const (
	refreshInterval = 2 * time.Second
	rpcTimeout      = 4 * time.Second
)

// Controller defines the subset of app.App behaviour the TUI needs.
type Controller interface {
	Status() (app.DaemonStatus, error)
	ServerStatus(ctx context.Context, timeout time.Duration) (srvctlv1.Status, error)
	ListBackups(ctx context.Context, timeout time.Duration) ([]srvctlv1.Backup, error)
	Logs(ctx context.Context, kinds []string, timeout time.Duration) ([]srvctlv1.LogEntry, error)
	Exec(ctx context.Context, input string, timeout time.Duration) ([]string, error)
	Backup(ctx context.Context, timeout time.Duration) (srvctlv1.Backup, error)
	Rollback(ctx context.Context, name string, timeout time.Duration) error
	Restart(ctx context.Context, force bool, timeout time.Duration) error
	OperationTimeout() time.Duration
}

// Model represents the Bubble Tea state.
type Model struct {
	controller Controller

	backups list.Model
	logs    viewport.Model
	input   textinput.Model

	daemonStatus app.DaemonStatus
	server       srvctlv1.Status
	statusMsg    string

	// confirmRollback holds the backup awaiting a y/n answer.
	confirmRollback string
	// working is set while a backup, rollback or restart runs.
	working string

	err error

	width  int
	height int

	lastUpdated time.Time
}

// New constructs a TUI model with default styles.
func New(ctrl Controller) *Model {
	delegate := list.NewDefaultDelegate()
	lst := list.New([]list.Item{}, delegate, 0, 0)
	lst.Title = "Backups"
	lst.SetShowHelp(false)
	lst.SetFilteringEnabled(false)
	lst.DisableQuitKeybindings()

	in := textinput.New()
	in.Placeholder = "console command, e.g. fill 0 0 0 1 1 1 stone"
	in.Prompt = "> "
	in.CharLimit = 512

	return &Model{
		controller: ctrl,
		backups:    lst,
		logs:       viewport.New(0, 0),
		input:      in,
		statusMsg:  "Checking daemon status…",
	}
}

// Run spins up the Bubble Tea program with sensible defaults.
func Run(ctrl Controller) error {
	prog := tea.NewProgram(New(ctrl), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(refreshCmd(m.controller), tickCmd())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tickMsg:
		if m.working != "" {
			return m, tickCmd()
		}
		return m, tea.Batch(refreshCmd(m.controller), tickCmd())

	case refreshedMsg:
		m.applyRefresh(msg)
		return m, nil

	case opDoneMsg:
		m.working = ""
		if msg.err != nil {
			m.err = msg.err
			m.statusMsg = fmt.Sprintf("%s failed.", msg.op)
		} else {
			m.err = nil
			m.statusMsg = msg.summary
		}
		return m, refreshCmd(m.controller)

	case tea.KeyMsg:
		if m.input.Focused() {
			return m.updateInput(msg)
		}
		if m.confirmRollback != "" {
			return m.updateConfirm(msg)
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.backups, cmd = m.backups.Update(msg)
	cmds = append(cmds, cmd)
	m.logs, cmd = m.logs.Update(msg)
	cmds = append(cmds, cmd)
	if _, isKey := msg.(tea.KeyMsg); !isKey {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "q":
		return tea.Quit, true
	case "r":
		return refreshCmd(m.controller), true
	case ":", "/":
		if m.daemonStatus.Running {
			return m.input.Focus(), true
		}
		return nil, true
	}
	if m.working != "" || !m.daemonStatus.Running {
		return nil, false
	}
	switch msg.String() {
	case "b":
		return m.startOp("Backup", func(ctx context.Context) (string, error) {
			b, err := m.controller.Backup(ctx, m.controller.OperationTimeout())
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Backup %s created.", b.Name), nil
		}), true
	case "enter":
		if item, ok := m.backups.SelectedItem().(backupItem); ok {
			m.confirmRollback = item.Name
			m.statusMsg = fmt.Sprintf("Roll back to %s? The server will be stopped. (y/n)", item.Name)
		}
		return nil, true
	case "x", "X":
		force := msg.String() == "X"
		return m.startOp("Restart", func(ctx context.Context) (string, error) {
			if err := m.controller.Restart(ctx, force, m.controller.OperationTimeout()); err != nil {
				return "", err
			}
			return "Server restarted.", nil
		}), true
	}
	return nil, false
}

func (m *Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	name := m.confirmRollback
	m.confirmRollback = ""
	if msg.String() != "y" && msg.String() != "Y" {
		m.statusMsg = "Rollback cancelled."
		return m, nil
	}
	return m, m.startOp("Rollback", func(ctx context.Context) (string, error) {
		if err := m.controller.Rollback(ctx, name, m.controller.OperationTimeout()); err != nil {
			return "", err
		}
		return fmt.Sprintf("Rolled back to %s.", name), nil
	})
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input.Blur()
		m.input.Reset()
		return m, nil
	case tea.KeyEnter:
		line := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		m.input.Blur()
		if line == "" {
			return m, nil
		}
		return m, m.startOp("Command", func(ctx context.Context) (string, error) {
			cmds, err := m.controller.Exec(ctx, line, m.controller.OperationTimeout())
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Ran %d command(s).", len(cmds)), nil
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) startOp(op string, fn func(context.Context) (string, error)) tea.Cmd {
	m.working = op
	m.statusMsg = op + " in progress…"
	return func() tea.Msg {
		summary, err := fn(context.Background())
		return opDoneMsg{op: op, summary: summary, err: err}
	}
}

func (m *Model) applyRefresh(msg refreshedMsg) {
	m.daemonStatus = msg.daemon
	m.lastUpdated = time.Now()
	if !msg.daemon.Running {
		m.statusMsg = "Daemon is not running. Start it with `srvctl daemon`."
		m.backups.SetItems(nil)
		return
	}
	if msg.err != nil {
		m.err = msg.err
		return
	}
	m.server = msg.server

	selected := ""
	if item, ok := m.backups.SelectedItem().(backupItem); ok {
		selected = item.Name
	}
	items := make([]list.Item, 0, len(msg.backups))
	cursor := 0
	for i, b := range msg.backups {
		if b.Name == selected {
			cursor = i
		}
		items = append(items, backupItem(b))
	}
	m.backups.SetItems(items)
	m.backups.Select(cursor)

	atBottom := m.logs.AtBottom()
	m.logs.SetContent(renderLogs(msg.logs))
	if atBottom {
		m.logs.GotoBottom()
	}
	if m.working == "" && m.confirmRollback == "" && m.err == nil {
		m.statusMsg = serverSummary(msg.daemon, msg.server)
	}
}

func (m *Model) layout() {
	bodyHeight := m.height - 6
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	left := m.width / 3
	m.backups.SetSize(left, bodyHeight)
	m.logs.Width = m.width - left - 3
	m.logs.Height = bodyHeight
	m.input.Width = m.width - 4
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	statusStyle := lipgloss.NewStyle().Bold(true)
	switch {
	case !m.daemonStatus.Running, !m.server.Running:
		statusStyle = statusStyle.Foreground(lipgloss.Color("203"))
	case m.server.Busy:
		statusStyle = statusStyle.Foreground(lipgloss.Color("214"))
	default:
		statusStyle = statusStyle.Foreground(lipgloss.Color("42"))
	}
	b.WriteString(statusStyle.Render(m.statusMsg))
	b.WriteByte('\n')

	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
		b.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteByte('\n')
	}

	logStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).PaddingLeft(1)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.backups.View(), logStyle.Render(m.logs.View())))
	b.WriteByte('\n')

	if m.input.Focused() {
		b.WriteString(m.input.View())
		b.WriteByte('\n')
	}

	help := "q quit • r reload • : command • b backup • enter rollback • x restart • X force restart"
	if !m.lastUpdated.IsZero() {
		help += fmt.Sprintf(" • last update %s", m.lastUpdated.Format(time.Kitchen))
	}
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func serverSummary(d app.DaemonStatus, s srvctlv1.Status) string {
	var parts []string
	if d.PID > 0 {
		parts = append(parts, fmt.Sprintf("daemon pid %d", d.PID))
	}
	if s.Running {
		parts = append(parts, fmt.Sprintf("server %s (pid %d)", s.State, s.PID))
	} else {
		server := "server " + s.State
		if s.LastExit != nil {
			server += fmt.Sprintf(", last exit code %d", s.LastExit.Code)
		}
		parts = append(parts, server)
	}
	if s.InFlight != "" {
		parts = append(parts, "running "+s.InFlight)
	} else if s.Busy {
		parts = append(parts, "busy")
	}
	return strings.Join(parts, " • ")
}

var kindStyles = map[string]lipgloss.Style{
	"stderr":    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	"stdin":     lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	"userIn":    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	"userOut":   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	"userError": lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
}

func renderLogs(entries []srvctlv1.LogEntry) string {
	var b strings.Builder
	for _, e := range entries {
		line := strings.TrimRight(e.Data, "\r\n")
		if e.Kind == "stdin" || e.Kind == "userIn" {
			line = "> " + line
		}
		if style, ok := kindStyles[e.Kind]; ok {
			line = style.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// backupItem adapts a backup to the bubbles list item interface.
type backupItem srvctlv1.Backup

func (i backupItem) Title() string { return i.Name }

func (i backupItem) Description() string {
	if i.ModTime.IsZero() {
		return i.Path
	}
	return i.ModTime.Local().Format("2006-01-02 15:04:05")
}

func (i backupItem) FilterValue() string { return i.Name }

type tickMsg time.Time

type refreshedMsg struct {
	daemon  app.DaemonStatus
	server  srvctlv1.Status
	backups []srvctlv1.Backup
	logs    []srvctlv1.LogEntry
	err     error
}

type opDoneMsg struct {
	op      string
	summary string
	err     error
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func refreshCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		var msg refreshedMsg
		daemon, err := ctrl.Status()
		msg.daemon = daemon
		if err != nil || !daemon.Running {
			msg.err = err
			return msg
		}

		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		if msg.server, err = ctrl.ServerStatus(ctx, rpcTimeout); err != nil {
			msg.err = err
			return msg
		}
		if msg.backups, err = ctrl.ListBackups(ctx, rpcTimeout); err != nil {
			msg.err = err
			return msg
		}
		if msg.logs, err = ctrl.Logs(ctx, nil, rpcTimeout); err != nil {
			msg.err = err
		}
		return msg
	}
}
