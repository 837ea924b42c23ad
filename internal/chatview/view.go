// Package chatview holds the conversation detail view-model: the message
// history of the open thread, inbound appends, seen receipts and sending.
package chatview

import (
	"context"
	"strings"
	"sync"

	"github.com/mentorlink/mentorlink/internal/api"
	"github.com/mentorlink/mentorlink/internal/notify"
	"github.com/mentorlink/mentorlink/internal/realtime"
)

// Gateway is the slice of the API client the view needs.
type Gateway interface {
	Messages(ctx context.Context, chatID string) ([]api.Message, error)
	UploadFiles(ctx context.Context, files []api.Attachment) ([]string, error)
}

// Channel is the slice of the realtime manager the view needs.
type Channel interface {
	JoinChat(chatID string)
	LeaveChat(chatID string)
	SendMessage(chatID, message string, files []string)
	MarkSeen(chatID string)
}

// View is the detail view-model for the currently open conversation.
type View struct {
	gw     Gateway
	ch     Channel
	notify notify.Notifier
	viewer api.Identity

	mu       sync.Mutex
	gen      int
	chat     *api.Chat
	messages []api.Message
}

// New creates a view with no open conversation.
func New(viewer api.Identity, gw Gateway, ch Channel, n notify.Notifier) *View {
	return &View{gw: gw, ch: ch, notify: n, viewer: viewer}
}

// Open selects a conversation: join its room, mark it seen, clear any prior
// history. The returned generation token must accompany the history fetch
// result; a stale token means the view moved on and the result is discarded.
func (v *View) Open(chat api.Chat) int {
	v.mu.Lock()
	if v.chat != nil && v.chat.ID != chat.ID {
		v.ch.LeaveChat(v.chat.ID)
	}
	v.gen++
	gen := v.gen
	v.chat = &chat
	v.messages = nil
	v.mu.Unlock()

	v.ch.JoinChat(chat.ID)
	v.ch.MarkSeen(chat.ID)
	return gen
}

// Close tears the view down. Outstanding fetches become stale.
func (v *View) Close() {
	v.mu.Lock()
	chat := v.chat
	v.gen++
	v.chat = nil
	v.messages = nil
	v.mu.Unlock()

	if chat != nil {
		v.ch.LeaveChat(chat.ID)
	}
}

// FetchHistory loads the message history for the open conversation. The
// caller applies the result with ApplyHistory and the token from Open.
func (v *View) FetchHistory(ctx context.Context, chatID string) ([]api.Message, error) {
	return v.gw.Messages(ctx, chatID)
}

// ApplyHistory installs a fetched history unless the view has moved on since
// the fetch started. Reports whether the result was applied.
func (v *View) ApplyHistory(gen int, msgs []api.Message) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen || v.chat == nil {
		return false
	}
	v.messages = append([]api.Message(nil), msgs...)
	return true
}

// Apply folds an inbound realtime event into the view. Events for other
// conversations are ignored.
func (v *View) Apply(ev realtime.Event) {
	switch ev := ev.(type) {
	case realtime.MessageReceived:
		v.appendMessage(ev.Message)
	case realtime.MessageSeen:
		v.applySeen(ev.ChatID, ev.SeenBy)
	}
}

func (v *View) appendMessage(msg api.Message) {
	v.mu.Lock()
	if v.chat == nil || v.chat.ID != msg.ChatID {
		v.mu.Unlock()
		return
	}
	v.messages = append(v.messages, msg)
	chatID := v.chat.ID
	v.mu.Unlock()

	// The viewer is looking at the conversation, so the new message is seen
	// immediately.
	v.ch.MarkSeen(chatID)
}

// applySeen records the acknowledging viewer on every loaded message of the
// conversation. The seen set only ever grows.
func (v *View) applySeen(chatID, seenBy string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.chat == nil || v.chat.ID != chatID {
		return
	}
	for i := range v.messages {
		if !contains(v.messages[i].Seen, seenBy) {
			v.messages[i].Seen = append(v.messages[i].Seen, seenBy)
		}
	}
}

// Send ships a message over the channel, fire-and-forget: nothing is inserted
// locally, the server echo appends it. Attachments upload over HTTP first and
// their URLs ride the channel event.
func (v *View) Send(ctx context.Context, body string, files []api.Attachment) {
	v.mu.Lock()
	chat := v.chat
	v.mu.Unlock()

	body = strings.TrimSpace(body)
	if chat == nil || (body == "" && len(files) == 0) {
		return
	}

	var urls []string
	if len(files) > 0 {
		var err error
		urls, err = v.gw.UploadFiles(ctx, files)
		if err != nil {
			v.notify.Error("Failed to upload files")
			return
		}
	}

	v.ch.SendMessage(chat.ID, body, urls)
}

// Rejoin re-enters the open conversation's room after a reconnect.
func (v *View) Rejoin() {
	v.mu.Lock()
	chat := v.chat
	v.mu.Unlock()
	if chat == nil {
		return
	}
	v.ch.JoinChat(chat.ID)
	v.ch.MarkSeen(chat.ID)
}

// Chat returns the open conversation, or nil.
func (v *View) Chat() *api.Chat {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.chat == nil {
		return nil
	}
	c := *v.chat
	return &c
}

// Messages returns a snapshot of the loaded history.
func (v *View) Messages() []api.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]api.Message(nil), v.messages...)
}

// Partner derives the other party of the open conversation from the viewer's
// role.
func (v *View) Partner() api.Participant {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.chat == nil {
		return api.Participant{}
	}
	if v.viewer.Role == api.RoleStudent {
		return v.chat.Members.Mentor
	}
	return v.chat.Members.Student
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
