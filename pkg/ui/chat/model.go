package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"chatcore/pkg/bus"
	"chatcore/pkg/message"
	"chatcore/pkg/responder"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	roleMessage = "message"
	roleReply   = "reply"
	roleError   = "error"
)

type chatEntry struct {
	role    string
	content string
}

type repliesMsg struct {
	replies []message.Reply
	err     error
}

type model struct {
	respond responder.Func
	author  string
	timeout time.Duration

	theme     theme
	spinner   spinner.Model
	input     textinput.Model
	viewport  viewport.Model
	entries   []chatEntry
	width     int
	height    int
	isReady   bool
	isLoading bool
	lastErr   string
	followLog bool
	replies   int
}

func newModel(respond responder.Func, author string, timeout time.Duration) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Points
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "Type a message..."
	in.Focus()
	in.CharLimit = 0

	return &model{
		respond:   respond,
		author:    author,
		timeout:   timeout,
		theme:     defaultTheme(),
		spinner:   spin,
		input:     in,
		viewport:  viewport.New(80, 12),
		width:     100,
		height:    28,
		followLog: true,
	}
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeComponents()
		m.refreshViewport(false)
		m.isReady = true
		return m, nil
	case tea.MouseMsg:
		m.handleViewportMouse(typed)
		return m, nil
	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}

		if handled := m.handleViewportKey(typed); handled {
			return m, nil
		}

		if typed.String() == "enter" {
			return m, m.submit()
		}
	case spinner.TickMsg:
		if !m.isLoading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case repliesMsg:
		m.isLoading = false
		m.lastErr = ""
		for _, reply := range typed.replies {
			m.entries = append(m.entries, chatEntry{role: roleReply, content: reply.AsString(false)})
		}
		m.replies += len(typed.replies)
		if typed.err != nil {
			m.lastErr = typed.err.Error()
			m.entries = append(m.entries, chatEntry{role: roleError, content: typed.err.Error()})
		}
		m.refreshViewport(false)
		return m, nil
	}

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit turns the current input line into a message and starts collecting
// its replies.
func (m *model) submit() tea.Cmd {
	if m.isLoading {
		return nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	if isExitCommand(text) {
		return tea.Quit
	}

	m.input.SetValue("")
	m.followLog = true

	msg, err := message.New(message.Text(text), message.WithAuthor(m.author))
	if err != nil {
		m.lastErr = err.Error()
		m.entries = append(m.entries, chatEntry{role: roleError, content: err.Error()})
		m.refreshViewport(true)
		return nil
	}

	m.lastErr = ""
	m.entries = append(m.entries, chatEntry{role: roleMessage, content: msg.AsString(false)})
	m.isLoading = true
	m.refreshViewport(true)
	return tea.Batch(m.spinner.Tick, collectRepliesCmd(m.respond, msg, m.timeout))
}

func (m *model) View() string {
	if !m.isReady {
		m.resizeComponents()
		m.refreshViewport(false)
	}

	header := m.theme.header.Width(m.width - 2).Render("📟 chatcore")
	meta := m.theme.headerMeta.Render(fmt.Sprintf(
		"author:%s · messages:%d · replies:%d",
		displayOrNA(m.author),
		m.messageCount(),
		m.replies,
	))
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	status := m.theme.status.Render("💡 Enter send  ·  PgUp/PgDn scroll  ·  End jump latest  ·  🛑 Ctrl+C/Esc quit")
	if m.isLoading {
		status = m.theme.statusBusy.Render(fmt.Sprintf("%s waiting for replies...", m.spinner.View()))
	}
	if m.lastErr != "" {
		status = m.theme.statusErr.Render("🚨 last message failed")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		meta,
		line,
		m.theme.viewport.Width(m.width-2).Render(m.viewport.View()),
		status,
		m.theme.inputLabel.Render("✍ "+displayOrNA(m.author))+" "+m.theme.hint.Render("(type /exit, quit, or :q)"),
		m.theme.input.Width(m.width-2).Render(m.input.View()),
	)
}

func (m *model) resizeComponents() {
	m.viewport.Width = max(50, m.width-6)
	m.viewport.Height = max(8, m.height-10)
	m.input.Width = m.viewport.Width - 2
}

func (m *model) refreshViewport(forceBottom bool) {
	previousOffset := m.viewport.YOffset
	sections := make([]string, 0, len(m.entries))
	for _, item := range m.entries {
		body := strings.TrimSpace(item.content)
		switch item.role {
		case roleMessage:
			sections = append(sections, renderCard(
				m.theme.messageTitle.Render("▛▚ [MESSAGE] ▞▜"),
				m.theme.messageBox.Width(m.viewport.Width).Render(body),
			))
		case roleReply:
			sections = append(sections, renderCard(
				m.theme.replyTitle.Render("▛▚ [REPLY] ▞▜"),
				m.theme.replyBox.Width(m.viewport.Width).Render(body),
			))
		case roleError:
			sections = append(sections, renderCard(
				m.theme.errorTitle.Render("▛▚ [ERROR] ▞▜"),
				m.theme.errorBox.Width(m.viewport.Width).Render(body),
			))
		}
	}

	m.viewport.SetContent(strings.Join(sections, "\n\n"))
	if m.followLog || forceBottom {
		m.viewport.GotoBottom()
		m.followLog = true
		return
	}

	maxOffset := max(0, m.viewport.TotalLineCount()-m.viewport.Height)
	m.viewport.SetYOffset(min(previousOffset, maxOffset))
}

func (m *model) messageCount() int {
	count := 0
	for _, item := range m.entries {
		if item.role == roleMessage {
			count++
		}
	}

	return count
}

func (m *model) handleViewportKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "pgup", "ctrl+b", "alt+up", "ctrl+up":
		m.viewport.PageUp()
		m.followLog = false
		return true
	case "pgdown", "ctrl+f", "alt+down", "ctrl+down":
		m.viewport.PageDown()
		m.followLog = m.viewport.AtBottom()
		return true
	case "home":
		m.viewport.GotoTop()
		m.followLog = false
		return true
	case "end":
		m.viewport.GotoBottom()
		m.followLog = true
		return true
	default:
		return false
	}
}

// handleViewportMouse scrolls the log on wheel events. Scrolling up detaches
// the view from new output; scrolling back to the bottom re-attaches it.
func (m *model) handleViewportMouse(msg tea.MouseMsg) bool {
	if msg.Action != tea.MouseActionPress {
		return false
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.viewport.SetYOffset(m.viewport.YOffset - m.viewport.MouseWheelDelta)
		m.followLog = false
		return true
	case tea.MouseButtonWheelDown:
		m.viewport.SetYOffset(m.viewport.YOffset + m.viewport.MouseWheelDelta)
		m.followLog = m.viewport.AtBottom()
		return true
	default:
		return false
	}
}

func renderCard(title string, body string) string {
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

// collectRepliesCmd runs respond off the UI loop and gathers every reply that
// arrives before the buffer stays empty for timeout.
func collectRepliesCmd(respond responder.Func, msg *message.Message, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		if respond == nil {
			return repliesMsg{err: errors.New("no responder configured")}
		}

		replies, err := collectReplies(respond(msg), timeout)
		return repliesMsg{replies: replies, err: err}
	}
}

func collectReplies(buffer *bus.ReplyBuffer, timeout time.Duration) ([]message.Reply, error) {
	if buffer == nil {
		return nil, nil
	}

	var (
		replies []message.Reply
		errs    []error
	)
	for {
		reply, err := buffer.GetTimeout(timeout)
		if errors.Is(err, bus.ErrEmpty) {
			break
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		replies = append(replies, reply)
	}

	return replies, errors.Join(errs...)
}

func displayOrNA(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "n/a"
	}

	return trimmed
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "/exit", "quit", ":q":
		return true
	default:
		return false
	}
}
