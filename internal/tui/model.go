// Package tui implements the interactive chat interface. It renders session state
// and forwards user actions to the session; it holds no conversation state itself.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/docchat/internal/models"
	"github.com/diogo/docchat/internal/render"
	"github.com/diogo/docchat/internal/session"
)

// Session is the part of the session orchestrator the chat interface drives
type Session interface {
	SetDraftQuery(text string)
	SubmitTurn(ctx context.Context) bool
	AttachFile(doc *models.Document) error
	DetachPendingFile() error
	Reset() error
	Snapshot() session.State
	LastErr() error
	Subscribe(ctx context.Context) (<-chan session.State, error)
}

type (
	animationTickMsg time.Time

	// stateMsg carries a snapshot from the session subscription
	stateMsg struct {
		state session.State
	}
	// subscriptionClosedMsg is sent when the snapshot channel closes
	subscriptionClosedMsg struct{}
	// turnDoneMsg is sent when SubmitTurn returns
	turnDoneMsg struct {
		ran bool
	}
)

// Model represents the TUI state
type Model struct {
	ctx     context.Context
	session Session
	updates <-chan session.State
	state   session.State
	lastErr error // failure behind state.LastError, when the session has it

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	ready          bool
	notice         string
	animationFrame int

	// Replaced in tests
	loadDocument   func(path string) (*models.Document, error)
	writeClipboard func(text string) error
	writeFile      func(path string, data []byte) error

	width  int
	height int
}

// NewChatModel creates a chat model over sess. Snapshots are read from updates,
// which may be nil when the caller refreshes state itself.
func NewChatModel(ctx context.Context, sess Session, updates <-chan session.State) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about your document, or /attach <path>"
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	return Model{
		ctx:            ctx,
		session:        sess,
		updates:        updates,
		state:          sess.Snapshot(),
		textarea:       ta,
		spinner:        s,
		loadDocument:   models.NewDocumentFromPath,
		writeClipboard: clipboard.WriteAll,
		writeFile:      writeTranscript,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		waitForState(m.updates),
	)
}

func waitForState(updates <-chan session.State) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		st, ok := <-updates
		if !ok {
			return subscriptionClosedMsg{}
		}
		return stateMsg{state: st}
	}
}

func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*80, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		inputHeight := 7 // includes the pending document line
		statusHeight := 1
		padding := 2

		vpHeight := m.height - headerHeight - inputHeight - statusHeight - padding
		if vpHeight < 5 {
			vpHeight = 5
		}
		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(contentWidth - 4)
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			return m.handleEnter()
		}

	case stateMsg:
		m.applyState(msg.state)
		cmds = append(cmds, waitForState(m.updates))

	case subscriptionClosedMsg:
		m.updates = nil

	case turnDoneMsg:
		m.setState(m.session.Snapshot())

	case spinner.TickMsg:
		if m.state.InFlight {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case animationTickMsg:
		if m.state.InFlight {
			m.animationFrame++
			cmds = append(cmds, animationTick())
		}
	}

	// Only key presses reach the textarea, and not while a turn runs.
	if _, ok := msg.(tea.KeyMsg); ok && !m.state.InFlight {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
		m.session.SetDraftQuery(m.textarea.Value())
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	if m.state.InFlight {
		return m, nil
	}

	input := strings.TrimSpace(m.textarea.Value())
	if input == "exit" || input == "quit" {
		return m, tea.Quit
	}
	if strings.HasPrefix(input, "/") {
		m.textarea.Reset()
		m.session.SetDraftQuery("")
		return m.runCommand(input)
	}
	if input == "" && !m.state.HasPendingFile() {
		return m, nil
	}

	m.notice = ""
	m.session.SetDraftQuery(input)
	m.textarea.Reset()
	m.animationFrame = 0

	// Mark the turn as running right away; the snapshot that follows confirms it.
	m.state.InFlight = true

	return m, tea.Batch(
		m.submitTurn(),
		m.spinner.Tick,
		animationTick(),
	)
}

func (m Model) submitTurn() tea.Cmd {
	ctx, sess := m.ctx, m.session
	return func() tea.Msg {
		return turnDoneMsg{ran: sess.SubmitTurn(ctx)}
	}
}

// runCommand executes a slash command typed in the input
func (m Model) runCommand(input string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/exit", "/quit":
		return m, tea.Quit

	case "/attach":
		if arg == "" {
			m.notice = "Usage: /attach <path>"
			break
		}
		doc, err := m.loadDocument(expandHome(arg))
		if err != nil {
			m.notice = fmt.Sprintf("Cannot attach %s: %v", arg, err)
			break
		}
		if err := m.session.AttachFile(doc); err != nil {
			m.notice = actionError("attach", err)
			break
		}
		m.notice = fmt.Sprintf("%s will be uploaded with your next message", doc.Name)

	case "/detach":
		if !m.state.HasPendingFile() {
			m.notice = "No pending document"
			break
		}
		if err := m.session.DetachPendingFile(); err != nil {
			m.notice = actionError("detach", err)
			break
		}
		m.notice = "Pending document removed"

	case "/save":
		if arg == "" {
			m.notice = "Usage: /save <path>"
			break
		}
		if len(m.state.Messages) == 0 {
			m.notice = "Nothing to save yet"
			break
		}
		path := expandHome(arg)
		if err := m.writeFile(path, []byte(render.Transcript(m.state.Messages)+"\n")); err != nil {
			m.notice = fmt.Sprintf("Save failed: %v", err)
			break
		}
		m.notice = "Conversation saved to " + path

	case "/new", "/reset":
		if err := m.session.Reset(); err != nil {
			m.notice = actionError("start a new conversation", err)
			break
		}
		m.notice = "Started a new conversation"

	case "/copy":
		answer, ok := m.state.LastAnswer()
		if !ok {
			m.notice = "Nothing to copy yet"
			break
		}
		if err := m.writeClipboard(answer); err != nil {
			m.notice = fmt.Sprintf("Copy failed: %v", err)
			break
		}
		m.notice = "Last answer copied to clipboard"

	default:
		m.notice = fmt.Sprintf("Unknown command %s. Try /attach, /detach, /new, /copy, /save or /exit", name)
	}

	m.setState(m.session.Snapshot())
	return m, nil
}

func actionError(action string, err error) string {
	if errors.Is(err, session.ErrBusy) {
		return fmt.Sprintf("Cannot %s while a message is being sent", action)
	}
	return fmt.Sprintf("Cannot %s: %v", action, err)
}

// applyState takes st if it is newer than the current snapshot
func (m *Model) applyState(st session.State) {
	if st.Version <= m.state.Version {
		return
	}
	m.setState(st)
}

func (m *Model) setState(st session.State) {
	changed := conversationChanged(m.state.Messages, st.Messages)
	m.state = st
	m.lastErr = nil
	if st.LastError != "" {
		m.lastErr = m.session.LastErr()
	}
	if m.ready && changed {
		m.updateViewport()
		m.viewport.GotoBottom()
	}
}

// conversationChanged compares logs that only grow or are cleared
func conversationChanged(old, cur []models.Message) bool {
	if len(old) != len(cur) {
		return true
	}
	return len(cur) > 0 && old[len(old)-1].ID != cur[len(cur)-1].ID
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	contentWidth := m.width - 4
	var sections []string

	// Header
	header := headerStyle.Width(contentWidth).Render(lipgloss.JoinHorizontal(
		lipgloss.Center,
		titleStyle.Render("✦ docchat"),
		hintStyle.Render("  •  "),
		m.renderContextIndicator(),
	))
	sections = append(sections, header)

	// Messages
	content := m.viewport.View()
	if len(m.state.Messages) == 0 {
		content = m.renderWelcome()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(content))

	// Input
	var input string
	if m.state.InFlight {
		input = m.renderLoadingAnimation()
	} else {
		input = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	if m.state.HasPendingFile() {
		input = lipgloss.JoinVertical(lipgloss.Left, m.renderPendingFile(), input)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(input))

	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.state.LastError != "" {
		sections = append(sections, m.renderError())
	}
	if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderError shows the failure of the last turn with its status and a hint
func (m Model) renderError() string {
	if m.lastErr != nil {
		return FormatError(m.lastErr)
	}
	return errorStyle.Render("✗ " + m.state.LastError)
}

func (m Model) renderContextIndicator() string {
	ctx := m.state.ActiveContext
	if !ctx.Active {
		return contextIdleStyle.Render("No document")
	}
	label := models.ActiveContextLabel
	if ctx.Label != "" {
		label += ": " + ctx.Label
	}
	return contextActiveStyle.Render("📄 " + label)
}

func (m Model) renderPendingFile() string {
	return pendingStyle.Render(fmt.Sprintf("📎 %s (uploads with your next message, /detach to remove)", m.state.PendingFile))
}

func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		welcomeIconStyle.Width(width).Render("✦"),
		"",
		welcomeTitleStyle.Width(width).Render("Chat with your documents"),
		"",
		welcomeStyle.Width(width).Render("Attach a file with /attach <path>, then ask questions about it"),
		"",
	)

	topPadding := (height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}
	return strings.Repeat("\n", topPadding) + content
}

func (m Model) renderLoadingAnimation() string {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	barChars := []string{"█", "█", "█", "█", "█", "█", "▓", "▒", "░"}

	frame := m.animationFrame

	spin := lipgloss.NewStyle().
		Foreground(gradientColors[frame%len(gradientColors)]).
		Bold(true).
		Render(chars[frame%len(chars)])

	barWidth := 20
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		style := lipgloss.NewStyle().Foreground(gradientColors[(i+frame)%len(gradientColors)])
		bar.WriteString(style.Render(barChars[(i+frame/2)%len(barChars)]))
	}

	phase := " Thinking "
	if m.state.HasPendingFile() {
		phase = " Uploading " + m.state.PendingFile + " "
	}
	text := lipgloss.NewStyle().Foreground(colorText).Render(phase)

	return fmt.Sprintf("%s %s %s", spin, bar.String(), text)
}

func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"/attach", "Document"},
		{"/new", "Reset"},
		{"/copy", "Copy"},
		{"Esc", "Quit"},
	}

	items := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}

	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(strings.Join(items, "  │  "))
}

// updateViewport re-renders the conversation log
func (m *Model) updateViewport() {
	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6

	for i, msg := range m.state.Messages {
		if i > 0 {
			content.WriteString("\n")
		}

		if msg.Role == models.RoleUser {
			label := userLabelStyle.Render("● You")
			if msg.HasContext() {
				label += badgeStyle.Render("📎 " + msg.ContextLabel)
			}
			content.WriteString(label + "\n" + userBubbleStyle.Width(bubbleWidth).Render(msg.Text))
		} else {
			rendered, err := render.MarkdownWithWidth(msg.Text, bubbleWidth-4)
			if err != nil {
				rendered = msg.Text
			}
			rendered = strings.TrimRight(rendered, "\n")

			content.WriteString(assistantLabelStyle.Render("✦ Assistant") + "\n")
			content.WriteString(assistantBubbleStyle.Width(bubbleWidth).Render(rendered))
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

// RunChat subscribes to sess and runs the chat interface until the user quits.
func RunChat(ctx context.Context, sess Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, err := sess.Subscribe(ctx)
	if err != nil {
		return err
	}

	p := tea.NewProgram(
		NewChatModel(ctx, sess, updates),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
