package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bioviz/internal/protocol"
)

const (
	transcriptCap  = 500
	statusInterval = time.Second
)

type envelopeMsg struct{ resp *protocol.Response }

type resultMsg struct {
	cmd     string
	resp    *protocol.Response
	err     error
	elapsed time.Duration
}

type notifyMsg struct {
	cmd string
	err error
}

type statusTickMsg time.Time

type theme struct {
	title    lipgloss.Style
	panel    lipgloss.Style
	footer   lipgloss.Style
	okBadge  lipgloss.Style
	errBadge lipgloss.Style
	muted    lipgloss.Style
}

func newTheme() theme {
	blue := lipgloss.Color("#01cdfe")
	mint := lipgloss.Color("#05ffa1")
	pink := lipgloss.Color("#ff71ce")
	muted := lipgloss.Color("#9ca3d8")

	return theme{
		title: lipgloss.NewStyle().
			Foreground(blue).
			Bold(true).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		footer:   lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
		okBadge:  lipgloss.NewStyle().Foreground(mint).Bold(true),
		errBadge: lipgloss.NewStyle().Foreground(pink).Bold(true),
		muted:    lipgloss.NewStyle().Foreground(muted),
	}
}

// Model is the interactive worker console: a transcript of every wire
// envelope plus the correlated outcome of each dispatched command.
type Model struct {
	backend Backend
	feed    *EnvelopeFeed

	input      textinput.Model
	transcript viewport.Model
	spin       spinner.Model
	theme      theme

	width  int
	height int
	sized  bool

	lines    []string
	inflight int
	status   Status
	lastErr  string
}

func New(backend Backend, feed *EnvelopeFeed) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = `COMMAND {"json":"payload"}  (/help for the reference)`
	input.CharLimit = 4096
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	m := Model{
		backend:    backend,
		feed:       feed,
		input:      input,
		transcript: viewport.New(0, 0),
		spin:       sp,
		theme:      newTheme(),
		status:     backend.Status(),
	}
	m.appendLine("type /help for the command reference")
	return m
}

// Run drives the console until the user quits.
func Run(backend Backend, feed *EnvelopeFeed) error {
	program := tea.NewProgram(New(backend, feed), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick, waitEnvelope(m.feed), statusTick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.sized = true
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			raw := strings.TrimSpace(m.input.Value())
			if raw == "" {
				return m, nil
			}
			m.input.SetValue("")
			return m.submit(raw)
		case "pgup":
			m.transcript.LineUp(8)
			return m, nil
		case "pgdown":
			m.transcript.LineDown(8)
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case envelopeMsg:
		m.appendLine(formatWire(msg.resp))
		return m, waitEnvelope(m.feed)

	case resultMsg:
		if m.inflight > 0 {
			m.inflight--
		}
		if msg.err != nil {
			m.lastErr = clipLine(msg.err.Error(), wireClip)
		}
		m.appendLine(formatOutcome(msg.cmd, msg.resp, msg.err, msg.elapsed))
		m.status = m.backend.Status()
		return m, nil

	case notifyMsg:
		if msg.err != nil {
			m.lastErr = clipLine(msg.err.Error(), wireClip)
			m.appendLine(fmt.Sprintf("x  notify %s failed: %s", msg.cmd, clipLine(msg.err.Error(), wireClip)))
		}
		return m, nil

	case statusTickMsg:
		m.status = m.backend.Status()
		return m, statusTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if !m.sized {
		return "starting console..."
	}
	title := m.theme.title.Render("bioviz worker console")
	panel := m.theme.panel.Width(m.width - 2).Render(m.transcript.View())
	footer := m.footerView()
	return strings.Join([]string{title, panel, m.input.View(), footer}, "\n")
}

func (m Model) footerView() string {
	badge := m.theme.okBadge.Render("connected")
	if !m.status.Connected {
		badge = m.theme.errBadge.Render("disconnected")
	}
	parts := []string{badge}
	if m.status.Version != "" {
		parts = append(parts, "worker "+m.status.Version)
	}
	parts = append(parts, fmt.Sprintf("pending %d", m.status.Pending))
	if m.inflight > 0 {
		parts = append(parts, m.spin.View())
	}
	if m.lastErr != "" {
		parts = append(parts, "last error: "+m.lastErr)
	}
	return m.theme.footer.Width(m.width).Render(strings.Join(parts, " · "))
}

func (m Model) submit(raw string) (tea.Model, tea.Cmd) {
	if strings.HasPrefix(raw, "/") {
		return m.runSlash(raw)
	}
	cmd, payload, err := parseInput(raw)
	if err != nil {
		m.appendLine("x  " + err.Error())
		return m, nil
	}
	m.appendLine(formatSent(cmd, payload, true))
	m.inflight++
	return m, m.dispatchCmd(cmd, payload)
}

func (m Model) runSlash(raw string) (tea.Model, tea.Cmd) {
	name, rest, _ := strings.Cut(raw, " ")
	switch name {
	case "/quit", "/q":
		return m, tea.Quit
	case "/help":
		for _, line := range helpLines {
			m.appendLine(line)
		}
		return m, nil
	case "/clear":
		m.lines = nil
		m.renderTranscript()
		return m, nil
	case "/status":
		m.status = m.backend.Status()
		for _, line := range statusLines(m.status) {
			m.appendLine(line)
		}
		return m, nil
	case "/notify":
		cmd, payload, err := parseInput(rest)
		if err != nil {
			m.appendLine("x  " + err.Error())
			return m, nil
		}
		m.appendLine(formatSent(cmd, payload, false))
		return m, m.notifyCmd(cmd, payload)
	default:
		m.appendLine(fmt.Sprintf("x  unknown command %s (try /help)", name))
		return m, nil
	}
}

var helpLines = []string{
	`type a worker command to dispatch it: LOAD {"genes":["TP53"]}`,
	"/status  connectivity, protocol version, in-flight commands",
	"/notify COMMAND [payload]  fire-and-forget dispatch",
	"/clear   wipe the transcript",
	"/quit    leave the console (ctrl+c works too)",
}

func statusLines(s Status) []string {
	connectivity := "connected"
	if !s.Connected {
		connectivity = "disconnected"
	}
	version := s.Version
	if version == "" {
		version = "unknown"
	}
	lines := []string{
		fmt.Sprintf("worker: %s, protocol %s", connectivity, version),
		fmt.Sprintf("pending: %d command(s) in flight", s.Pending),
	}
	for _, entry := range s.InFlight {
		lines = append(lines, fmt.Sprintf("  %s id=%s age=%s", entry.Cmd, shortID(entry.RequestID), entry.Age.Round(time.Millisecond)))
	}
	return lines
}

func (m Model) dispatchCmd(cmd string, payload any) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		started := time.Now()
		resp, err := backend.Call(context.Background(), cmd, payload)
		return resultMsg{cmd: cmd, resp: resp, err: err, elapsed: time.Since(started)}
	}
}

func (m Model) notifyCmd(cmd string, payload any) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		return notifyMsg{cmd: cmd, err: backend.Notify(context.Background(), cmd, payload)}
	}
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, time.Now().Format("15:04:05")+" "+line)
	if len(m.lines) > transcriptCap {
		m.lines = m.lines[len(m.lines)-transcriptCap:]
	}
	m.renderTranscript()
}

func (m *Model) renderTranscript() {
	m.transcript.SetContent(strings.Join(m.lines, "\n"))
	m.transcript.GotoBottom()
}

func (m *Model) resize() {
	m.transcript.Width = max(m.width-6, 20)
	m.transcript.Height = max(m.height-5, 3)
	m.input.Width = max(m.width-4, 20)
	m.renderTranscript()
}

func waitEnvelope(feed *EnvelopeFeed) tea.Cmd {
	return func() tea.Msg {
		resp, ok := <-feed.ch
		if !ok {
			return nil
		}
		return envelopeMsg{resp: resp}
	}
}

func statusTick() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg { return statusTickMsg(t) })
}
