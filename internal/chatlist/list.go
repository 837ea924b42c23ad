// Package chatlist holds the conversation list view-model: the full set of
// chat threads for the current identity, unread counters, activity ordering
// and the search filter. All mutation goes through a single reducer over a
// closed set of event variants.
package chatlist

import (
	"sort"
	"strings"
	"time"

	"github.com/mentorlink/mentorlink/internal/api"
)

// Event is one of the closed set of state transitions the list accepts.
type Event interface{ isListEvent() }

// Loaded replaces the whole list, typically after a fetch.
type Loaded struct {
	Chats []api.Chat
}

// MessageReceived folds an inbound realtime message into the list.
type MessageReceived struct {
	Message api.Message
}

// ChatAdded inserts a newly created thread at the front.
type ChatAdded struct {
	Chat api.Chat
}

// Selected marks a conversation as the open one and clears its unread count.
type Selected struct {
	ChatID string
}

// FilterChanged updates the search term. Filtering never touches the
// underlying list.
type FilterChanged struct {
	Term string
}

func (Loaded) isListEvent()          {}
func (MessageReceived) isListEvent() {}
func (ChatAdded) isListEvent()       {}
func (Selected) isListEvent()        {}
func (FilterChanged) isListEvent()   {}

// List is the view-model. It is not safe for concurrent use; the UI loop is
// its only caller.
type List struct {
	viewer api.Identity

	chats    []api.Chat
	selected string
	term     string
}

// New creates an empty list for the given viewer.
func New(viewer api.Identity) *List {
	return &List{viewer: viewer}
}

// Apply is the single mutation point for list state.
func (l *List) Apply(ev Event) {
	switch ev := ev.(type) {
	case Loaded:
		l.chats = append([]api.Chat(nil), ev.Chats...)
		l.sortByActivity()
	case MessageReceived:
		l.applyMessage(ev.Message)
	case ChatAdded:
		for _, c := range l.chats {
			if c.ID == ev.Chat.ID {
				return
			}
		}
		l.chats = append([]api.Chat{ev.Chat}, l.chats...)
	case Selected:
		l.selected = ev.ChatID
		for i := range l.chats {
			if l.chats[i].ID == ev.ChatID {
				l.chats[i].UnreadCount = 0
			}
		}
	case FilterChanged:
		l.term = ev.Term
	}
}

func (l *List) applyMessage(msg api.Message) {
	for i := range l.chats {
		if l.chats[i].ID != msg.ChatID {
			continue
		}
		l.chats[i].LastMessage = &api.LastMessage{
			ID:        msg.ID,
			Message:   msg.Message,
			Sender:    msg.Sender.ID,
			CreatedAt: msg.CreatedAt,
		}
		if l.selected == msg.ChatID {
			l.chats[i].UnreadCount = 0
		} else {
			l.chats[i].UnreadCount++
		}
		break
	}
	l.sortByActivity()
}

// sortByActivity orders by last message time, newest first. Threads without a
// message yet keep their fetched order at the tail, which is creation order.
func (l *List) sortByActivity() {
	sort.SliceStable(l.chats, func(i, j int) bool {
		return lastActivity(l.chats[i]).After(lastActivity(l.chats[j]))
	})
}

func lastActivity(c api.Chat) time.Time {
	if c.LastMessage != nil {
		return c.LastMessage.CreatedAt
	}
	return time.Time{}
}

// Conversations returns the threads matching the current filter, in activity
// order. With an empty term this is the full list.
func (l *List) Conversations() []api.Chat {
	term := strings.ToLower(strings.TrimSpace(l.term))
	if term == "" {
		return append([]api.Chat(nil), l.chats...)
	}

	out := make([]api.Chat, 0, len(l.chats))
	for _, c := range l.chats {
		if l.matches(c, term) {
			out = append(out, c)
		}
	}
	return out
}

// matches is a case-insensitive substring check across partner name, course
// name and opening question.
func (l *List) matches(c api.Chat, term string) bool {
	partner := l.Partner(c)
	return strings.Contains(strings.ToLower(partner.Name), term) ||
		strings.Contains(strings.ToLower(c.Course.Name), term) ||
		strings.Contains(strings.ToLower(c.Question), term)
}

// Partner derives the other party of a thread from the viewer's role. Pure
// derivation, never stored.
func (l *List) Partner(c api.Chat) api.Participant {
	if l.viewer.Role == api.RoleStudent {
		return c.Members.Mentor
	}
	return c.Members.Student
}

// SelectedID returns the id of the open conversation, or "".
func (l *List) SelectedID() string { return l.selected }

// Unread returns the unread counter for a conversation.
func (l *List) Unread(chatID string) int {
	for _, c := range l.chats {
		if c.ID == chatID {
			return c.UnreadCount
		}
	}
	return 0
}

// Get returns a conversation by id.
func (l *List) Get(chatID string) (api.Chat, bool) {
	for _, c := range l.chats {
		if c.ID == chatID {
			return c, true
		}
	}
	return api.Chat{}, false
}

// Len returns the size of the unfiltered list.
func (l *List) Len() int { return len(l.chats) }
