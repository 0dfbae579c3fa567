package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sproutai/sprout/internal/chat"
	"github.com/sproutai/sprout/internal/models"
	"github.com/sproutai/sprout/internal/render"
)

const (
	appTitle    = "SPROUT AI"
	appSubtitle = "Calm. Intelligent. Refined."
	placeholder = "Ask something..."

	sidebarWidth = 24
	headerHeight = 3
	inputHeight  = 5
	statusHeight = 2
)

// Message types for the TUI
type (
	// partialMsg carries the newest published text of a streaming turn
	partialMsg struct {
		turn int
		text string
	}
	// turnDoneMsg is sent when Submit returns
	turnDoneMsg struct {
		turn int
		err  error
	}
	// stateMsg carries the controller's newest turn state
	stateMsg struct {
		state models.TurnState
	}
	pulseTickMsg time.Time
)

// partialSink is the Display handed to the controller. It keeps only the
// newest text so Publish never blocks the turn loop.
type partialSink chan string

// Publish implements chat.Display
func (s partialSink) Publish(text string) {
	select {
	case <-s:
	default:
	}
	select {
	case s <- text:
	default:
	}
}

// stateSink receives controller state changes, keeping only the newest
type stateSink chan models.TurnState

// Publish is registered with Controller.OnStateChange
func (s stateSink) Publish(state models.TurnState) {
	select {
	case <-s:
	default:
	}
	select {
	case s <- state:
	default:
	}
}

// scrollKeys limits viewport scrolling to keys that never type text
func scrollKeys() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		Up:       key.NewBinding(key.WithKeys("up")),
		Down:     key.NewBinding(key.WithKeys("down")),
	}
}

// Options configures the chat TUI
type Options struct {
	// Models are cycled with tab
	Models []string
	// Theme names a render.TUITheme
	Theme string
	// Markdown is the base render configuration; width is set per layout
	Markdown render.Options
}

// Model represents the TUI state
type Model struct {
	ctx        context.Context
	controller *chat.Controller
	modelList  []string
	markdown   render.Options
	copyText   func(string) error

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// Turn state, mirrored from the controller's goroutine via messages
	turn      int
	turning   bool
	sink      partialSink
	partial   string
	pending   string
	pendingAt int

	// states feeds the speaking animation; pulsing is true while it runs
	states  stateSink
	pulsing bool

	ready  bool
	frame  int
	notice string
	err    error

	width  int
	height int
}

// NewChatModel creates a new chat TUI model driving controller
func NewChatModel(ctx context.Context, controller *chat.Controller, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	modelList := opts.Models
	if len(modelList) == 0 {
		modelList = models.AllModels()
	}

	md := opts.Markdown
	if md == (render.Options{}) {
		md = render.DefaultOptions()
	}

	states := make(stateSink, 1)
	controller.OnStateChange(states.Publish)

	return Model{
		states:     states,
		ctx:        ctx,
		controller: controller,
		modelList:  modelList,
		markdown:   md,
		copyText:   clipboard.WriteAll,
		textarea:   ta,
		spinner:    s,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForState(m.states))
}

// waitForState delivers the next controller state change
func waitForState(states stateSink) tea.Cmd {
	return func() tea.Msg {
		return stateMsg{state: <-states}
	}
}

func pulseTick() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg {
		return pulseTickMsg(t)
	})
}

// waitForPartial delivers the next published text of turn, or nothing
// once the turn has finished
func waitForPartial(turn int, sink partialSink) tea.Cmd {
	return func() tea.Msg {
		text, ok := <-sink
		if !ok {
			return nil
		}
		return partialMsg{turn: turn, text: text}
	}
}

// runTurn blocks on Submit in a command goroutine
func (m Model) runTurn(turn int, input string, sink partialSink) tea.Cmd {
	ctx, controller := m.ctx, m.controller
	return func() tea.Msg {
		_, err := controller.Submit(ctx, input, sink)
		close(sink)
		return turnDoneMsg{turn: turn, err: err}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - headerHeight - inputHeight - statusHeight - 2
		if vpHeight < 5 {
			vpHeight = 5
		}
		vpWidth := m.width - sidebarWidth - 4
		if vpWidth < 20 {
			vpWidth = 20
		}

		if !m.ready {
			m.viewport = viewport.New(vpWidth, vpHeight)
			m.viewport.KeyMap = scrollKeys()
			m.ready = true
		} else {
			m.viewport.Width = vpWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(max(m.width-6, 10))
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m.quit()

		case "ctrl+r":
			m.reset()
			return m, nil

		case "tab":
			m.cycleModel()
			return m, nil

		case "enter":
			if m.turning {
				return m, nil
			}
			input := m.textarea.Value()
			m.textarea.Reset()
			return m.handleInput(input)
		}

	case partialMsg:
		if msg.turn != m.turn || !m.turning {
			return m, nil
		}
		m.partial = msg.text
		m.updateViewport()
		m.viewport.GotoBottom()
		return m, waitForPartial(m.turn, m.sink)

	case turnDoneMsg:
		if msg.turn != m.turn {
			return m, nil
		}
		m.turning = false
		m.partial = ""
		m.sink = nil
		if msg.err != nil && !errors.Is(msg.err, chat.ErrTurnAborted) {
			m.err = msg.err
		}
		m.updateViewport()
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if m.turning {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case stateMsg:
		if msg.state.Streaming && !m.pulsing {
			m.pulsing = true
			m.frame = 0
			cmds = append(cmds, pulseTick())
		}
		cmds = append(cmds, waitForState(m.states))
		return m, tea.Batch(cmds...)

	case pulseTickMsg:
		if m.pulsing && m.controller.State().Streaming {
			m.frame++
			cmds = append(cmds, pulseTick())
		} else {
			m.pulsing = false
		}
	}

	// Only pass KeyMsg to textarea to prevent escape sequence leaks
	if !m.turning {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleInput dispatches slash commands or starts a turn
func (m Model) handleInput(raw string) (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return m, nil
	}
	m.notice = ""
	m.err = nil

	switch {
	case input == "/exit" || input == "/quit":
		return m.quit()
	case input == "/reset":
		m.reset()
		return m, nil
	case input == "/copy":
		m.copyLastReply()
		return m, nil
	case input == "/model" || strings.HasPrefix(input, "/model "):
		name := strings.TrimSpace(strings.TrimPrefix(input, "/model"))
		if name == "" {
			m.notice = "Usage: /model <name>"
			return m, nil
		}
		m.controller.SetModel(name)
		m.notice = "Model: " + name
		if !models.IsKnownModel(name) {
			m.notice += " (unlisted)"
		}
		return m, nil
	}

	m.turn++
	m.turning = true
	m.partial = ""
	m.pending = raw
	m.pendingAt = len(m.controller.Transcript())
	m.sink = make(partialSink, 1)
	m.updateViewport()
	m.viewport.GotoBottom()

	return m, tea.Batch(
		m.runTurn(m.turn, raw, m.sink),
		waitForPartial(m.turn, m.sink),
		m.spinner.Tick,
	)
}

// reset clears the conversation; an in-flight turn is discarded
func (m *Model) reset() {
	m.controller.Reset()
	m.turn++
	m.turning = false
	m.partial = ""
	m.pending = ""
	m.sink = nil
	m.err = nil
	m.notice = "Chat reset"
	m.updateViewport()
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.controller.Close()
	m.turning = false
	return m, tea.Quit
}

func (m *Model) cycleModel() {
	next := models.NextModel(m.modelList, m.controller.Model())
	m.controller.SetModel(next)
	m.notice = "Model: " + next
}

func (m *Model) copyLastReply() {
	reply, ok := m.controller.LastReply()
	if !ok {
		m.notice = "Nothing to copy yet"
		return
	}
	if err := m.copyText(reply); err != nil {
		m.err = fmt.Errorf("copy to clipboard: %w", err)
		return
	}
	m.notice = "Copied last reply to clipboard"
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	state := m.controller.State()

	var sections []string
	sections = append(sections, m.renderHeader(m.width-2))

	var messagesContent string
	if len(m.controller.Transcript()) == 0 && !m.turning {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.viewport.View()
	}
	messagesPanel := messagesAreaStyle.
		Width(m.viewport.Width + 2).
		Height(m.viewport.Height).
		Render(messagesContent)

	sidebar := sidebarStyle.
		Width(sidebarWidth - 2).
		Height(m.viewport.Height).
		Render(renderRobot(state, m.frame))

	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, sidebar, messagesPanel))

	var inputContent string
	if m.turning {
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("Sprout"),
			m.spinner.View()+loadingStyle.Render(" speaking..."),
		)
	} else {
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(m.width-4).Render(inputContent))

	sections = append(sections, m.renderStatusBar(m.width-2))

	switch {
	case m.err != nil:
		sections = append(sections, errorStyle.Render("✗ "+m.err.Error()))
	case m.notice != "":
		sections = append(sections, noticeStyle.Render(m.notice))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(width int) string {
	left := lipgloss.JoinHorizontal(
		lipgloss.Center,
		titleStyle.Render("🌱 "+appTitle),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(appSubtitle),
	)
	right := hintStyle.Render(m.controller.Model())

	gap := width - 4 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	return headerStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

// renderWelcome renders the welcome screen when no messages exist
func (m Model) renderWelcome() string {
	width := m.viewport.Width
	height := m.viewport.Height

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		welcomeTitleStyle.Width(width).Render("Hello, I'm "+RobotName),
		"",
		welcomeStyle.Width(width).Render("Start a conversation by typing a message below"),
	)

	topPadding := (height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}
	return strings.Repeat("\n", topPadding) + content
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Tab", "Model"},
		{"Ctrl+R", "Reset"},
		{"/copy", "Copy"},
		{"Esc", "Quit"},
		{"↑↓", "Scroll"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}

	bar := strings.Join(items, statusDescStyle.Render("  │  "))
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// updateViewport refreshes the viewport from the transcript plus the
// in-flight partial reply
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	messages := m.controller.Transcript()
	if m.turning && len(messages) == m.pendingAt {
		messages = append(messages, models.UserMessage(m.pending))
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6
	if bubbleWidth < 10 {
		bubbleWidth = 10
	}

	for i, msg := range messages {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(m.renderMessage(msg, bubbleWidth))
		content.WriteString("\n")
	}

	if m.turning && m.partial != "" {
		content.WriteString("\n")
		content.WriteString(m.renderPartial(m.partial, bubbleWidth))
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

func (m Model) renderMessage(msg models.Message, bubbleWidth int) string {
	if msg.Role == models.RoleUser {
		label := userLabelStyle.Render("⬤ " + msg.Role.Label())
		return label + "\n" + userBubbleStyle.Width(bubbleWidth).Render(msg.Content)
	}

	label := assistantLabelStyle.Render("🌱 " + msg.Role.Label())
	if strings.HasPrefix(msg.Content, chat.DiagnosticPrefix) {
		return label + "\n" + diagnosticStyle.Width(bubbleWidth).Render(msg.Content)
	}

	rendered := render.Reply(msg.Content, m.markdown.WithWidth(bubbleWidth-4))
	return label + "\n" + assistantBubbleStyle.Width(bubbleWidth).Render(rendered)
}

// renderPartial renders the streaming reply with its cursor marker
func (m Model) renderPartial(text string, bubbleWidth int) string {
	label := assistantLabelStyle.Render("🌱 " + models.RoleAssistant.Label())
	body := render.StripCursor(text)
	rendered := render.Reply(body, m.markdown.WithWidth(bubbleWidth-4))
	if strings.HasSuffix(text, models.CursorMarker) {
		rendered += loadingStyle.Render(models.CursorMarker)
	}
	return label + "\n" + assistantBubbleStyle.Width(bubbleWidth).Render(rendered)
}

// RunChat starts the chat TUI; quitting closes the controller's session
func RunChat(ctx context.Context, controller *chat.Controller, opts Options) error {
	ApplyTheme(render.ResolveTUITheme(opts.Theme))

	p := tea.NewProgram(
		NewChatModel(ctx, controller, opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err := p.Run()
	if !controller.Session().Closed() {
		controller.Close()
	}
	return err
}
