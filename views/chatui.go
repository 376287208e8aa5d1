package views

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"libripal/chat"
	"libripal/helpers"
	"libripal/library"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ChatDeps wires the chat screen to the backend and the local store.
type ChatDeps struct {
	Service  *chat.Service
	Manager  *library.LibraryManager
	Store    *library.Store
	Logger   *slog.Logger
	Renderer chat.Renderer
	Now      func() time.Time
}

type chatReplyMsg struct {
	exchangeID string
	msg        chat.Message
	err        error
}

type chatSuggestionsMsg struct{ suggestions []string }

type chatActionMsg struct {
	text string
	err  error
}

// ChatModel is the ChatInterface screen.
type ChatModel struct {
	deps   ChatDeps
	ctx    context.Context
	cancel context.CancelFunc
	conv   *chat.Conversation

	input    string
	chips    []string
	personal []string
	chipIdx  int
	pending  string
	spinner  Spinner
	status   string
	draft    *helpers.Debouncer[string]
	width    int
	height   int
	quitting bool
}

// NewChatModel starts a fresh conversation and restores any saved draft.
// Requests started by the model run under a child of ctx that is cancelled
// when the user leaves the chat.
func NewChatModel(ctx context.Context, deps ChatDeps) *ChatModel {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Renderer == nil {
		deps.Renderer = TerminalRenderer{Now: deps.Now}
	}
	ctx, cancel := context.WithCancel(ctx)
	m := &ChatModel{
		deps:    deps,
		ctx:     ctx,
		cancel:  cancel,
		conv:    chat.NewConversation(deps.Now),
		chips:   chat.QuickActions,
		chipIdx: -1,
		spinner: Spinner{Label: "LibriPal is thinking..."},
		width:   80,
		height:  24,
	}
	if deps.Store != nil {
		var draft string
		if ok, err := deps.Store.GetFromStorage(helpers.KeyChatDraft, &draft); err != nil {
			deps.Logger.Warn("load chat draft", "err", err)
		} else if ok {
			m.input = draft
		}
		m.draft = helpers.Debounce(helpers.SearchDebounce, m.saveDraft)
	}
	return m
}

// Conversation exposes the transcript, mainly for tests.
func (m *ChatModel) Conversation() *chat.Conversation { return m.conv }

func (m *ChatModel) Input() string { return m.input }

func (m *ChatModel) Init() tea.Cmd {
	svc, ctx := m.deps.Service, m.ctx
	logger := m.deps.Logger
	return func() tea.Msg {
		s, err := svc.Suggestions(ctx)
		if err != nil {
			logger.Debug("chat suggestions unavailable", "err", err)
			return nil
		}
		return chatSuggestionsMsg{suggestions: s}
	}
}

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case spinnerTickMsg:
		if m.pending == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case chatReplyMsg:
		if m.quitting || msg.exchangeID != m.pending {
			// superseded
			return m, nil
		}
		m.pending = ""
		if msg.err != nil {
			m.deps.Logger.Error("chat exchange", "err", msg.err)
			m.status = helpers.ErrorMessage(msg.err)
			return m, nil
		}
		m.status = ""
		m.setChips(msg.msg.Suggestions())
		return m, nil
	case chatSuggestionsMsg:
		m.personal = msg.suggestions
		m.setChips(nil)
		return m, nil
	case chatActionMsg:
		if msg.err != nil {
			m.conv.Notice("Error: " + helpers.ErrorMessage(msg.err))
		} else {
			m.conv.Notice(msg.text)
		}
		return m, nil
	}
	return m, nil
}

// setChips shows s, or the quick actions and personal suggestions when s
// is empty.
func (m *ChatModel) setChips(s []string) {
	m.chipIdx = -1
	if len(s) > 0 {
		m.chips = s
		return
	}
	all := append(append([]string{}, chat.QuickActions...), m.personal...)
	m.chips = helpers.UniqueBy(all, strings.ToLower)
}

// Clipboard access, replaced in tests.
var (
	clipboardWrite = clipboard.WriteAll
	clipboardRead  = clipboard.ReadAll
)

func (m *ChatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, m.leave()
	case tea.KeyTab, tea.KeyShiftTab:
		if len(m.chips) == 0 {
			return m, nil
		}
		if msg.Type == tea.KeyTab {
			m.chipIdx = (m.chipIdx + 1) % len(m.chips)
		} else {
			m.chipIdx = (m.chipIdx - 1 + len(m.chips)) % len(m.chips)
		}
		m.setInput(m.chips[m.chipIdx])
		return m, nil
	case tea.KeyEnter:
		return m.submit()
	case tea.KeyCtrlY:
		m.copyLastReply()
		return m, nil
	case tea.KeyCtrlV:
		paste, err := clipboardRead()
		if err != nil {
			m.status = "Clipboard unavailable"
			return m, nil
		}
		m.setInput(m.input + strings.ReplaceAll(paste, "\n", " "))
		return m, nil
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.setInput(string(r[:len(r)-1]))
		}
		return m, nil
	case tea.KeySpace:
		m.setInput(m.input + " ")
		return m, nil
	case tea.KeyRunes:
		m.setInput(m.input + string(msg.Runes))
		return m, nil
	}
	return m, nil
}

// copyLastReply puts the newest assistant message on the clipboard.
func (m *ChatModel) copyLastReply() {
	msgs := m.conv.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == chat.RoleUser {
			continue
		}
		safe := strings.ReplaceAll(msgs[i].Content, "\x00", "")
		if err := clipboardWrite(safe); err != nil {
			m.status = "Clipboard unavailable"
			return
		}
		m.status = "Copied reply to clipboard"
		return
	}
}

func (m *ChatModel) setInput(s string) {
	m.input = s
	if m.draft != nil {
		m.draft.Call(s)
	}
}

func (m *ChatModel) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input)
	if text == "" {
		return m, nil
	}
	if strings.HasPrefix(text, "/") {
		return m, m.command(text)
	}

	ex, err := m.conv.Send(text)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.setInput("")
	m.status = ""
	m.chipIdx = -1
	m.pending = ex.ID
	return m, tea.Batch(m.exchange(ex), m.spinner.Tick())
}

func (m *ChatModel) exchange(ex *chat.Exchange) tea.Cmd {
	svc, conv, ctx := m.deps.Service, m.conv, m.ctx
	return func() tea.Msg {
		msg, err := svc.Exchange(ctx, conv, ex)
		return chatReplyMsg{exchangeID: ex.ID, msg: msg, err: err}
	}
}

const chatHelp = "Commands: /borrow <book id>, /reserve <book id>, /renew <borrowed id>, /feedback <1-5> [comment], /quit"

// command runs a slash command. Mutations run as commands and report back
// as a bot notice.
func (m *ChatModel) command(text string) tea.Cmd {
	fields := strings.Fields(text)
	name := strings.ToLower(fields[0])
	m.setInput("")

	switch name {
	case "/quit", "/exit":
		return m.leave()
	case "/help":
		m.conv.Notice(chatHelp)
		return nil
	case "/feedback":
		return m.feedback(fields[1:])
	}

	var run func(context.Context, int64) (*library.ActionResult, error)
	switch name {
	case "/borrow":
		run = m.deps.Manager.BorrowBook
	case "/reserve":
		run = m.deps.Manager.ReserveBook
	case "/renew":
		run = m.deps.Manager.RenewBook
	default:
		m.status = "Unknown command. " + chatHelp
		return nil
	}
	if len(fields) != 2 {
		m.status = fmt.Sprintf("Usage: %s <id>", name)
		return nil
	}
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || id <= 0 {
		m.status = fmt.Sprintf("Usage: %s <id>", name)
		return nil
	}

	m.status = ""
	ctx := m.ctx
	return func() tea.Msg {
		res, err := run(ctx, id)
		if err != nil {
			return chatActionMsg{err: err}
		}
		return chatActionMsg{text: res.Message}
	}
}

// leave ends the screen and cancels whatever it still has in flight.
func (m *ChatModel) leave() tea.Cmd {
	m.quitting = true
	m.FlushDraft()
	m.cancel()
	return tea.Quit
}

const feedbackUsage = "Usage: /feedback <1-5> [comment]"

// feedback rates the newest assistant reply.
func (m *ChatModel) feedback(args []string) tea.Cmd {
	if len(args) == 0 {
		m.status = feedbackUsage
		return nil
	}
	rating, err := strconv.Atoi(args[0])
	if err != nil || rating < 1 || rating > 5 {
		m.status = feedbackUsage
		return nil
	}
	var rated *chat.Message
	msgs := m.conv.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Reply != nil {
			rated = &msgs[i]
			break
		}
	}
	if rated == nil {
		m.status = "There is no reply to rate yet"
		return nil
	}

	m.status = ""
	fb := chat.Feedback{
		Message:      rated.Content,
		ResponseType: rated.Reply.Type,
		Rating:       rating,
		FeedbackText: strings.Join(args[1:], " "),
	}
	svc, ctx := m.deps.Service, m.ctx
	return func() tea.Msg {
		res, err := svc.SendFeedback(ctx, fb)
		if err != nil {
			return chatActionMsg{err: err}
		}
		if res.Message == "" {
			return chatActionMsg{text: "Thank you for your feedback!"}
		}
		return chatActionMsg{text: res.Message}
	}
}

func (m *ChatModel) saveDraft(s string) {
	var err error
	if strings.TrimSpace(s) == "" {
		err = m.deps.Store.RemoveFromStorage(helpers.KeyChatDraft)
	} else {
		err = m.deps.Store.SaveToStorage(helpers.KeyChatDraft, s)
	}
	if err != nil {
		m.deps.Logger.Warn("save chat draft", "err", err)
	}
}

// FlushDraft writes the current input now instead of after the debounce.
func (m *ChatModel) FlushDraft() {
	if m.draft == nil {
		return
	}
	m.draft.Stop()
	m.saveDraft(m.input)
}

func (m *ChatModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	now := m.deps.Now()

	var b strings.Builder
	for _, msg := range m.conv.Messages() {
		ts := mutedStyle.Render(helpers.FormatChatTimestamp(msg.Timestamp, now))
		if msg.Role == chat.RoleUser {
			fmt.Fprintf(&b, "%s %s\n%s\n\n", userLabelStyle.Render("You:"), ts, msg.Content)
			continue
		}
		content := msg.Content
		if msg.Reply != nil && msg.Reply.Payload != nil {
			content = chat.Dispatch(*msg.Reply, m.deps.Renderer)
		}
		fmt.Fprintf(&b, "%s %s\n%s\n\n", botLabelStyle.Render("LibriPal:"), ts, content)
	}
	if m.pending != "" {
		b.WriteString(m.spinner.View() + "\n\n")
	}

	footer := m.footer()
	body := tail(b.String(), m.height-lipgloss.Height(footer))
	return titleStyle.Render("💬 LibriPal Assistant") + "\n" + body + footer
}

func (m *ChatModel) footer() string {
	var b strings.Builder
	chips := make([]string, len(m.chips))
	for i, c := range m.chips {
		if i == m.chipIdx {
			chips[i] = selectedChipStyle.Render(c)
		} else {
			chips[i] = chipStyle.Render(c)
		}
	}
	b.WriteString(lipgloss.NewStyle().Width(m.width).Render(strings.Join(chips, " ")) + "\n")
	b.WriteString(mutedStyle.Render("> ") + m.input + "█\n")
	if m.status != "" {
		b.WriteString(errorStyle.Render(m.status) + "\n")
	}
	b.WriteString(mutedStyle.Render("enter: send • tab: suggestions • ctrl+y: copy reply • /help: commands • esc: quit"))
	return b.String()
}

// tail keeps the last n lines of s.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

// RunChat runs the chat screen until the user leaves it.
func RunChat(ctx context.Context, deps ChatDeps) error {
	m := NewChatModel(ctx, deps)
	defer m.cancel()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(*ChatModel); ok {
		fm.FlushDraft()
	}
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}
