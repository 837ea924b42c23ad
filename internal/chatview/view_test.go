package chatview

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mentorlink/mentorlink/internal/api"
	"github.com/mentorlink/mentorlink/internal/realtime"
)

type stubGateway struct {
	messages   []api.Message
	messageErr error
	uploadURLs []string
	uploadErr  error
	uploaded   int
}

func (g *stubGateway) Messages(context.Context, string) ([]api.Message, error) {
	return g.messages, g.messageErr
}

func (g *stubGateway) UploadFiles(_ context.Context, files []api.Attachment) ([]string, error) {
	g.uploaded += len(files)
	return g.uploadURLs, g.uploadErr
}

type intent struct {
	kind    string
	chatID  string
	message string
	files   []string
}

type stubChannel struct {
	intents []intent
}

func (c *stubChannel) JoinChat(chatID string) {
	c.intents = append(c.intents, intent{kind: "join", chatID: chatID})
}

func (c *stubChannel) LeaveChat(chatID string) {
	c.intents = append(c.intents, intent{kind: "leave", chatID: chatID})
}

func (c *stubChannel) SendMessage(chatID, message string, files []string) {
	c.intents = append(c.intents, intent{kind: "send", chatID: chatID, message: message, files: files})
}

func (c *stubChannel) MarkSeen(chatID string) {
	c.intents = append(c.intents, intent{kind: "seen", chatID: chatID})
}

func (c *stubChannel) kinds() string {
	var out []string
	for _, i := range c.intents {
		out = append(out, i.kind)
	}
	return strings.Join(out, ",")
}

type nopNotifier struct{ errors []string }

func (n *nopNotifier) Success(string)    {}
func (n *nopNotifier) Info(string)       {}
func (n *nopNotifier) Error(text string) { n.errors = append(n.errors, text) }

var viewer = api.Identity{ID: "s1", Name: "Ada", Role: api.RoleStudent}

func testChat(id string) api.Chat {
	return api.Chat{
		ID: id,
		Members: api.Members{
			Mentor:  api.Participant{ID: "m1", Name: "Bob"},
			Student: api.Participant{ID: "s1", Name: "Ada"},
		},
		Course:   api.CourseRef{ID: "crs1", Name: "Go"},
		Question: "how do channels work",
	}
}

func msg(id, chatID, senderID string, seen ...string) api.Message {
	return api.Message{
		ID:     id,
		ChatID: chatID,
		Sender: api.Sender{ID: senderID},
		Seen:   seen,
	}
}

func TestOpenJoinsRoomAndMarksSeen(t *testing.T) {
	ch := &stubChannel{}
	v := New(viewer, &stubGateway{}, ch, &nopNotifier{})

	v.Open(testChat("c1"))
	if got := ch.kinds(); got != "join,seen" {
		t.Fatalf("expected join,seen on open, got %q", got)
	}
}

func TestOpenSwitchingLeavesOldRoom(t *testing.T) {
	ch := &stubChannel{}
	v := New(viewer, &stubGateway{}, ch, &nopNotifier{})

	v.Open(testChat("c1"))
	ch.intents = nil
	v.Open(testChat("c2"))

	if got := ch.kinds(); got != "leave,join,seen" {
		t.Fatalf("expected leave,join,seen, got %q", got)
	}
	if ch.intents[0].chatID != "c1" || ch.intents[1].chatID != "c2" {
		t.Fatalf("rooms mixed up: %+v", ch.intents)
	}
}

func TestStaleHistoryIsDiscarded(t *testing.T) {
	v := New(viewer, &stubGateway{}, &stubChannel{}, &nopNotifier{})

	gen := v.Open(testChat("c1"))
	v.Open(testChat("c2"))

	if applied := v.ApplyHistory(gen, []api.Message{msg("m1", "c1", "m1")}); applied {
		t.Fatal("stale fetch result must be discarded")
	}
	if len(v.Messages()) != 0 {
		t.Fatal("stale history leaked into state")
	}
}

func TestHistoryAppliesForCurrentGeneration(t *testing.T) {
	v := New(viewer, &stubGateway{}, &stubChannel{}, &nopNotifier{})

	gen := v.Open(testChat("c1"))
	if applied := v.ApplyHistory(gen, []api.Message{msg("m1", "c1", "m1")}); !applied {
		t.Fatal("current fetch result must apply")
	}
	if len(v.Messages()) != 1 {
		t.Fatalf("expected 1 message, got %d", len(v.Messages()))
	}
}

func TestInboundAppendOnlyForOpenChat(t *testing.T) {
	ch := &stubChannel{}
	v := New(viewer, &stubGateway{}, ch, &nopNotifier{})

	gen := v.Open(testChat("c2"))
	v.ApplyHistory(gen, nil)
	ch.intents = nil

	v.Apply(realtime.MessageReceived{Message: msg("m1", "c1", "m1")})
	if len(v.Messages()) != 0 {
		t.Fatal("message for another chat must not append")
	}
	if len(ch.intents) != 0 {
		t.Fatal("foreign messages must not trigger seen marks")
	}

	v.Apply(realtime.MessageReceived{Message: msg("m2", "c2", "m1")})
	if len(v.Messages()) != 1 {
		t.Fatal("message for the open chat must append")
	}
	if got := ch.kinds(); got != "seen" {
		t.Fatalf("expected immediate re-mark seen, got %q", got)
	}
}

func TestSeenReceiptAppliesUniformlyAndMonotonically(t *testing.T) {
	v := New(viewer, &stubGateway{}, &stubChannel{}, &nopNotifier{})

	gen := v.Open(testChat("c1"))
	v.ApplyHistory(gen, []api.Message{
		msg("m1", "c1", "s1", "m1"),
		msg("m2", "c1", "s1"),
		msg("m3", "c1", "m1"),
	})

	v.Apply(realtime.MessageSeen{ChatID: "c1", SeenBy: "m1"})
	for _, m := range v.Messages() {
		if !has(m.Seen, "m1") {
			t.Fatalf("receipt must apply to every message, %s missing", m.ID)
		}
	}

	// Re-delivery must not grow the set twice.
	v.Apply(realtime.MessageSeen{ChatID: "c1", SeenBy: "m1"})
	for _, m := range v.Messages() {
		if count(m.Seen, "m1") != 1 {
			t.Fatalf("seen set grew on duplicate receipt: %v", m.Seen)
		}
	}

	// Receipts for other conversations change nothing.
	before := v.Messages()
	v.Apply(realtime.MessageSeen{ChatID: "c9", SeenBy: "x"})
	after := v.Messages()
	for i := range before {
		if len(before[i].Seen) != len(after[i].Seen) {
			t.Fatal("foreign receipt mutated state")
		}
	}
}

func TestSendIsFireAndForget(t *testing.T) {
	ch := &stubChannel{}
	v := New(viewer, &stubGateway{}, ch, &nopNotifier{})

	gen := v.Open(testChat("c1"))
	v.ApplyHistory(gen, nil)
	ch.intents = nil

	v.Send(context.Background(), "hello there", nil)

	if got := ch.kinds(); got != "send" {
		t.Fatalf("expected a single send intent, got %q", got)
	}
	if len(v.Messages()) != 0 {
		t.Fatal("send must not insert optimistically; the echo appends")
	}
}

func TestSendEmptyBodyIsNoop(t *testing.T) {
	ch := &stubChannel{}
	v := New(viewer, &stubGateway{}, ch, &nopNotifier{})
	v.Open(testChat("c1"))
	ch.intents = nil

	v.Send(context.Background(), "   ", nil)
	if len(ch.intents) != 0 {
		t.Fatalf("blank send must be a no-op, got %v", ch.intents)
	}
}

func TestSendUploadsAttachmentsFirst(t *testing.T) {
	gw := &stubGateway{uploadURLs: []string{"https://files/x.png"}}
	ch := &stubChannel{}
	v := New(viewer, gw, ch, &nopNotifier{})
	v.Open(testChat("c1"))
	ch.intents = nil

	v.Send(context.Background(), "see attached", []api.Attachment{
		{Name: "x.png", Content: strings.NewReader("data")},
	})

	if gw.uploaded != 1 {
		t.Fatalf("expected 1 upload, got %d", gw.uploaded)
	}
	if len(ch.intents) != 1 || len(ch.intents[0].files) != 1 || ch.intents[0].files[0] != "https://files/x.png" {
		t.Fatalf("uploaded URLs must ride the send intent, got %+v", ch.intents)
	}
}

func TestSendUploadFailureNotifiesAndAborts(t *testing.T) {
	gw := &stubGateway{uploadErr: errors.New("boom")}
	ch := &stubChannel{}
	n := &nopNotifier{}
	v := New(viewer, gw, ch, n)
	v.Open(testChat("c1"))
	ch.intents = nil

	v.Send(context.Background(), "see attached", []api.Attachment{
		{Name: "x.png", Content: strings.NewReader("data")},
	})

	if len(ch.intents) != 0 {
		t.Fatal("failed upload must abort the send")
	}
	if len(n.errors) != 1 {
		t.Fatalf("expected one error notice, got %v", n.errors)
	}
}

func TestCloseLeavesRoomAndInvalidatesFetches(t *testing.T) {
	ch := &stubChannel{}
	v := New(viewer, &stubGateway{}, ch, &nopNotifier{})

	gen := v.Open(testChat("c1"))
	ch.intents = nil
	v.Close()

	if got := ch.kinds(); got != "leave" {
		t.Fatalf("expected leave on close, got %q", got)
	}
	if v.ApplyHistory(gen, []api.Message{msg("m1", "c1", "m1")}) {
		t.Fatal("history for a closed view must be discarded")
	}
}

func has(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func count(ids []string, id string) int {
	n := 0
	for _, v := range ids {
		if v == id {
			n++
		}
	}
	return n
}
