package chatlist

import (
	"testing"
	"time"

	"github.com/mentorlink/mentorlink/internal/api"
)

var studentViewer = api.Identity{ID: "s1", Name: "Ada", Role: api.RoleStudent}

func chat(id, mentorName, courseName, question string) api.Chat {
	return api.Chat{
		ID: id,
		Members: api.Members{
			Mentor:  api.Participant{ID: "m-" + id, Name: mentorName},
			Student: api.Participant{ID: "s1", Name: "Ada"},
		},
		Course:   api.CourseRef{ID: "crs-" + id, Name: courseName},
		Question: question,
	}
}

func inbound(chatID, msgID string, at time.Time) api.Message {
	return api.Message{
		ID:        msgID,
		ChatID:    chatID,
		Message:   "hello",
		Sender:    api.Sender{ID: "m-" + chatID, Name: "Mentor"},
		CreatedAt: at,
	}
}

func newLoaded(chats ...api.Chat) *List {
	l := New(studentViewer)
	l.Apply(Loaded{Chats: chats})
	return l
}

func TestInboundIncrementsOnlyTargetChat(t *testing.T) {
	l := newLoaded(chat("c1", "Bob", "Go", "q1"), chat("c2", "Eve", "Rust", "q2"))
	l.Apply(Selected{ChatID: "c2"})

	l.Apply(MessageReceived{Message: inbound("c1", "m1", time.Now())})

	if got := l.Unread("c1"); got != 1 {
		t.Fatalf("unread(c1) = %d, want 1", got)
	}
	if got := l.Unread("c2"); got != 0 {
		t.Fatalf("unread(c2) = %d, want 0", got)
	}

	l.Apply(MessageReceived{Message: inbound("c1", "m2", time.Now())})
	if got := l.Unread("c1"); got != 2 {
		t.Fatalf("unread(c1) = %d, want 2", got)
	}
}

func TestInboundForOpenChatStaysZero(t *testing.T) {
	l := newLoaded(chat("c1", "Bob", "Go", "q1"))
	l.Apply(Selected{ChatID: "c1"})

	l.Apply(MessageReceived{Message: inbound("c1", "m1", time.Now())})
	if got := l.Unread("c1"); got != 0 {
		t.Fatalf("unread(c1) = %d, want 0 while open", got)
	}
}

func TestSelectingResetsUnread(t *testing.T) {
	l := newLoaded(chat("c1", "Bob", "Go", "q1"))
	for i := 0; i < 5; i++ {
		l.Apply(MessageReceived{Message: inbound("c1", "m", time.Now())})
	}
	if got := l.Unread("c1"); got != 5 {
		t.Fatalf("unread(c1) = %d, want 5", got)
	}

	l.Apply(Selected{ChatID: "c1"})
	if got := l.Unread("c1"); got != 0 {
		t.Fatalf("unread(c1) = %d after select, want 0", got)
	}
}

func TestInboundUpdatesLastMessageAndOrder(t *testing.T) {
	l := newLoaded(chat("c1", "Bob", "Go", "q1"), chat("c2", "Eve", "Rust", "q2"))

	base := time.Now()
	l.Apply(MessageReceived{Message: inbound("c1", "m1", base)})
	l.Apply(MessageReceived{Message: inbound("c2", "m2", base.Add(time.Minute))})

	got := l.Conversations()
	if len(got) != 2 || got[0].ID != "c2" || got[1].ID != "c1" {
		t.Fatalf("expected order [c2 c1], got %v", ids(got))
	}
	if got[0].LastMessage == nil || got[0].LastMessage.ID != "m2" {
		t.Fatalf("lastMessage not replaced: %+v", got[0].LastMessage)
	}
}

func TestFilterMatchesPartnerCourseAndQuestion(t *testing.T) {
	l := newLoaded(
		chat("c1", "Bob Marley", "Go Basics", "how do channels work"),
		chat("c2", "Eve Adams", "Rust", "what is a borrow"),
		chat("c3", "Carol", "Databases", "GO routines vs threads"),
	)

	cases := []struct {
		term string
		want []string
	}{
		{"bob", []string{"c1"}},
		{"GO", []string{"c1", "c3"}}, // course of c1, question of c3
		{"borrow", []string{"c2"}},
		{"zzz", nil},
	}
	for _, tc := range cases {
		l.Apply(FilterChanged{Term: tc.term})
		got := ids(l.Conversations())
		if !equal(got, tc.want) {
			t.Fatalf("filter(%q) = %v, want %v", tc.term, got, tc.want)
		}
	}
}

func TestFilterIsNonDestructive(t *testing.T) {
	l := newLoaded(chat("c1", "Bob", "Go", "q1"), chat("c2", "Eve", "Rust", "q2"))
	before := ids(l.Conversations())

	l.Apply(FilterChanged{Term: "bob"})
	l.Apply(FilterChanged{Term: "rust"})
	l.Apply(FilterChanged{Term: "nothing-matches"})
	l.Apply(FilterChanged{Term: ""})

	after := ids(l.Conversations())
	if !equal(before, after) {
		t.Fatalf("filter must not mutate the list: before %v after %v", before, after)
	}
}

func TestPartnerDerivation(t *testing.T) {
	c := chat("c1", "Bob", "Go", "q1")

	asStudent := New(studentViewer)
	if got := asStudent.Partner(c); got.Name != "Bob" {
		t.Fatalf("student sees mentor, got %q", got.Name)
	}

	mentor := api.Identity{ID: "m-c1", Name: "Bob", Role: api.RoleMentor}
	asMentor := New(mentor)
	if got := asMentor.Partner(c); got.Name != "Ada" {
		t.Fatalf("mentor sees student, got %q", got.Name)
	}
}

func TestChatAddedDeduplicates(t *testing.T) {
	l := newLoaded(chat("c1", "Bob", "Go", "q1"))
	l.Apply(ChatAdded{Chat: chat("c1", "Bob", "Go", "q1")})
	if l.Len() != 1 {
		t.Fatalf("expected 1 chat, got %d", l.Len())
	}

	l.Apply(ChatAdded{Chat: chat("c2", "Eve", "Rust", "q2")})
	if got := ids(l.Conversations()); !equal(got, []string{"c2", "c1"}) {
		t.Fatalf("new chat must lead, got %v", got)
	}
}

func TestInboundForUnknownChatIsIgnored(t *testing.T) {
	l := newLoaded(chat("c1", "Bob", "Go", "q1"))
	l.Apply(MessageReceived{Message: inbound("missing", "m1", time.Now())})
	if l.Len() != 1 || l.Unread("c1") != 0 {
		t.Fatal("unknown chat ids must not disturb the list")
	}
}

func ids(chats []api.Chat) []string {
	var out []string
	for _, c := range chats {
		out = append(out, c.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
