package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mentorlink/mentorlink/internal/api"
	"github.com/mentorlink/mentorlink/internal/app"
	"github.com/mentorlink/mentorlink/internal/chatlist"
	"github.com/mentorlink/mentorlink/internal/chatview"
	"github.com/mentorlink/mentorlink/internal/realtime"
)

type dashFocus int

const (
	focusChats dashFocus = iota
	focusSearch
	focusInput
)

type (
	chatsLoadedMsg struct {
		chats []api.Chat
		err   error
	}
	historyLoadedMsg struct {
		gen  int
		msgs []api.Message
		err  error
	}
)

type chatItem struct {
	id    string
	title string
	desc  string
}

func (i chatItem) Title() string       { return i.title }
func (i chatItem) Description() string { return i.desc }
func (i chatItem) FilterValue() string { return i.title }

// dashboardModel is the two-pane chat screen: conversation list on the left,
// the open conversation on the right.
type dashboardModel struct {
	app    *app.App
	viewer api.Identity

	width  int
	height int

	chats *chatlist.List
	view  *chatview.View

	chatList list.Model
	search   textinput.Model
	input    textinput.Model
	vp       viewport.Model

	focus   dashFocus
	loading bool
	history bool
	pending []string // attachment paths queued for the next send

	newChat *newChatModel
}

func newDashboardModel(a *app.App, viewer api.Identity) *dashboardModel {
	search := textinput.New()
	search.Placeholder = "Search chats"
	search.Prompt = "/ "

	input := textinput.New()
	input.Placeholder = "Type your message..."
	input.Prompt = "> "

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Chats"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return &dashboardModel{
		app:      a,
		viewer:   viewer,
		chats:    chatlist.New(viewer),
		view:     chatview.New(viewer, a.API, a.Realtime, a.Notices),
		chatList: l,
		search:   search,
		input:    input,
		vp:       viewport.New(0, 0),
		loading:  true,
	}
}

func (m *dashboardModel) SetSize(w, h int) {
	m.width, m.height = w, h

	listWidth := w / 3
	if listWidth < 24 {
		listWidth = 24
	}
	paneWidth := w - listWidth - 1

	m.chatList.SetSize(listWidth, h-2)
	m.search.Width = listWidth - 4
	m.input.Width = paneWidth - 4
	m.vp.Width = paneWidth
	m.vp.Height = h - 5
	if m.newChat != nil {
		m.newChat.SetSize(w, h)
	}
}

// load fetches the conversation set for the current identity.
func (m *dashboardModel) load() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.app.Config.Timeout())
		defer cancel()
		chats, err := m.app.API.Chats(ctx, 1)
		return chatsLoadedMsg{chats: chats, err: err}
	}
}

func (m *dashboardModel) Update(msg tea.Msg) tea.Cmd {
	if m.newChat != nil {
		switch msg := msg.(type) {
		case chatCreatedMsg:
			m.newChat = nil
			if msg.err != nil {
				return nil
			}
			m.chats.Apply(chatlist.ChatAdded{Chat: *msg.chat})
			m.refreshChatItems()
			return m.openChat(*msg.chat)
		case newChatClosedMsg:
			m.newChat = nil
			return nil
		}
		return m.newChat.Update(msg)
	}

	switch msg := msg.(type) {
	case chatsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.app.Notices.Error("Failed to load chats")
			return nil
		}
		m.chats.Apply(chatlist.Loaded{Chats: msg.chats})
		m.refreshChatItems()
		return nil

	case historyLoadedMsg:
		m.history = false
		if msg.err != nil {
			m.app.Notices.Error("Failed to load messages")
			return nil
		}
		if m.view.ApplyHistory(msg.gen, msg.msgs) {
			m.refreshMessages()
		}
		return nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return cmd
		}
	}

	return m.updateFocused(msg)
}

func (m *dashboardModel) handleKey(key tea.KeyMsg) (tea.Cmd, bool) {
	switch key.String() {
	case "tab":
		m.cycleFocus()
		return nil, true
	case "ctrl+t":
		if m.viewer.Role != api.RoleStudent {
			m.app.Notices.Info("Only students start new chats")
			return nil, true
		}
		m.newChat = newNewChatModel(m.app)
		m.newChat.SetSize(m.width, m.height)
		return m.newChat.load(), true
	case "ctrl+k":
		return func() tea.Msg { return gotoCoursesMsg{} }, true
	case "ctrl+l":
		return func() tea.Msg { return logoutRequestMsg{} }, true
	case "enter":
		switch m.focus {
		case focusChats:
			it, ok := m.chatList.SelectedItem().(chatItem)
			if !ok {
				return nil, true
			}
			chat, ok := m.chats.Get(it.id)
			if !ok {
				return nil, true
			}
			return m.openChat(chat), true
		case focusInput:
			return m.submitMessage(), true
		}
	}
	return nil, false
}

func (m *dashboardModel) cycleFocus() {
	order := []dashFocus{focusChats, focusSearch}
	if m.view.Chat() != nil {
		order = append(order, focusInput)
	}
	for i, f := range order {
		if f == m.focus {
			m.focus = order[(i+1)%len(order)]
			break
		}
	}
	m.search.Blur()
	m.input.Blur()
	switch m.focus {
	case focusSearch:
		m.search.Focus()
	case focusInput:
		m.input.Focus()
	}
}

func (m *dashboardModel) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.focus {
	case focusChats:
		m.chatList, cmd = m.chatList.Update(msg)
	case focusSearch:
		before := m.search.Value()
		m.search, cmd = m.search.Update(msg)
		if m.search.Value() != before {
			m.chats.Apply(chatlist.FilterChanged{Term: m.search.Value()})
			m.refreshChatItems()
		}
	case focusInput:
		m.input, cmd = m.input.Update(msg)
	}
	return cmd
}

// openChat selects a conversation: unread resets, room join, seen mark, and a
// history fetch tagged with the view generation so stale results get dropped.
func (m *dashboardModel) openChat(chat api.Chat) tea.Cmd {
	m.chats.Apply(chatlist.Selected{ChatID: chat.ID})
	m.refreshChatItems()

	gen := m.view.Open(chat)
	m.history = true
	m.refreshMessages()

	m.focus = focusInput
	m.search.Blur()
	m.input.Focus()

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.app.Config.Timeout())
		defer cancel()
		msgs, err := m.view.FetchHistory(ctx, chat.ID)
		return historyLoadedMsg{gen: gen, msgs: msgs, err: err}
	}
}

// submitMessage handles the input line: attachment commands mutate the
// pending set, anything else goes out over the channel.
func (m *dashboardModel) submitMessage() tea.Cmd {
	line := strings.TrimSpace(m.input.Value())
	switch {
	case line == "":
		return nil
	case strings.HasPrefix(line, "/attach "):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/attach "))
		if path != "" {
			m.pending = append(m.pending, path)
		}
		m.input.SetValue("")
		return nil
	case line == "/clear":
		m.pending = nil
		m.input.SetValue("")
		return nil
	}

	body := line
	paths := m.pending
	m.pending = nil
	m.input.SetValue("")

	return func() tea.Msg {
		files, err := openAttachments(paths)
		defer closeAttachments(files)
		if err != nil {
			m.app.Notices.Error(err.Error())
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), m.app.Config.Timeout())
		defer cancel()
		m.view.Send(ctx, body, attachmentSlice(files))
		return nil
	}
}

// handleEvent folds an inbound realtime event into both view-models.
func (m *dashboardModel) handleEvent(ev realtime.Event) tea.Cmd {
	switch ev := ev.(type) {
	case realtime.MessageReceived:
		m.chats.Apply(chatlist.MessageReceived{Message: ev.Message})
		m.view.Apply(ev)
		m.refreshChatItems()
		m.refreshMessages()
	case realtime.MessageSeen:
		m.view.Apply(ev)
		m.refreshMessages()
	case realtime.PresenceUp, realtime.PresenceDown:
		m.refreshChatItems()
	case realtime.Connected:
		m.view.Rejoin()
	}
	return nil
}

func (m *dashboardModel) refreshChatItems() {
	chats := m.chats.Conversations()
	items := make([]list.Item, 0, len(chats))
	for _, c := range chats {
		partner := m.chats.Partner(c)

		title := partner.Name
		if m.app.Realtime.Online(partner.ID) {
			title = onlineStyle.Render("●") + " " + title
		}
		if c.UnreadCount > 0 {
			title += " " + unreadStyle.Render(fmt.Sprintf("%d", c.UnreadCount))
		}

		preview := c.Question
		when := ""
		if c.LastMessage != nil {
			preview = c.LastMessage.Message
			when = formatWhen(c.LastMessage.CreatedAt, timeNow())
		}
		desc := c.Course.Name
		if when != "" {
			desc += " · " + when
		}
		if preview != "" {
			desc = preview + "\n" + desc
		}

		items = append(items, chatItem{id: c.ID, title: title, desc: desc})
	}
	m.chatList.SetItems(items)
}

func (m *dashboardModel) refreshMessages() {
	m.vp.SetContent(m.renderMessages())
	m.vp.GotoBottom()
}

func (m *dashboardModel) renderMessages() string {
	chat := m.view.Chat()
	if chat == nil {
		return dimStyle.Render("Select a chat to start messaging.")
	}

	var b strings.Builder
	b.WriteString(questionStyle.Render("Question: " + chat.Question))
	b.WriteString("\n\n")

	if m.history {
		b.WriteString(dimStyle.Render("Loading messages..."))
		return b.String()
	}

	msgs := m.view.Messages()
	if len(msgs) == 0 {
		b.WriteString(dimStyle.Render("No messages yet. Start the conversation!"))
		return b.String()
	}

	partner := m.view.Partner()
	for _, msg := range msgs {
		own := msg.Sender.ID == m.viewer.ID

		name := senderStyle.Render(msg.Sender.Name)
		if own {
			name = ownStyle.Render("You")
		}
		meta := dimStyle.Render(formatWhen(msg.CreatedAt, timeNow()))
		if own && contains(msg.Seen, partner.ID) {
			meta += " " + successStyle.Render("✓")
		}

		b.WriteString(name + " " + meta + "\n")
		b.WriteString(msg.Message + "\n")
		for _, f := range msg.Files {
			b.WriteString(dimStyle.Render("📎 "+filepath.Base(f)) + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *dashboardModel) View() string {
	if m.newChat != nil {
		return m.newChat.View()
	}

	left := m.search.View() + "\n"
	if m.loading {
		left += dimStyle.Render("Loading chats...")
	} else {
		left += m.chatList.View()
	}

	right := m.rightPane()
	body := lipgloss.JoinHorizontal(lipgloss.Top, paneStyle.Render(left), right)
	return body + "\n" + dimStyle.Render(
		"tab: focus · enter: open/send · ctrl+t: new chat · ctrl+k: courses · ctrl+l: logout")
}

func (m *dashboardModel) rightPane() string {
	chat := m.view.Chat()
	if chat == nil {
		return "\n " + dimStyle.Render("Select a chat to start messaging.")
	}

	partner := m.view.Partner()
	status := "Offline"
	if m.app.Realtime.Online(partner.ID) {
		status = onlineStyle.Render("Online")
	}
	header := avatarStyle.Render(initials(partner.Name)) + " " +
		titleStyle.Render(partner.Name) + dimStyle.Render(" · "+status+" · "+chat.Course.Name)

	input := m.input.View()
	if len(m.pending) > 0 {
		input += "\n" + dimStyle.Render("attachments: "+strings.Join(m.pending, ", "))
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, m.vp.View(), input)
}

// initials reduces a display name to its one- or two-letter badge.
func initials(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "?"
	}
	first := []rune(parts[0])
	if len(parts) == 1 {
		return strings.ToUpper(string(first[:1]))
	}
	last := []rune(parts[len(parts)-1])
	return strings.ToUpper(string(first[:1]) + string(last[:1]))
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type openedAttachment struct {
	name string
	file *os.File
}

func openAttachments(paths []string) ([]openedAttachment, error) {
	out := make([]openedAttachment, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAttachments(out)
			return nil, fmt.Errorf("cannot open attachment %s", filepath.Base(p))
		}
		out = append(out, openedAttachment{name: filepath.Base(p), file: f})
	}
	return out, nil
}

func closeAttachments(files []openedAttachment) {
	for _, f := range files {
		_ = f.file.Close()
	}
}

func attachmentSlice(files []openedAttachment) []api.Attachment {
	out := make([]api.Attachment, 0, len(files))
	for _, f := range files {
		out = append(out, api.Attachment{Name: f.name, Content: f.file})
	}
	return out
}
