package realtime

import (
	"encoding/json"
	"time"

	"github.com/mentorlink/mentorlink/internal/api"
)

// Wire event names, shared with the server.
const (
	evUserOnline      = "user:online"
	evUserOffline     = "user:offline"
	evJoinChat        = "join:chat"
	evLeaveChat       = "leave:chat"
	evSendMessage     = "send:message"
	evMarkSeen        = "mark:seen"
	evMessageReceived = "message:received"
	evMessageSeen     = "message:seen"
	evError           = "error"
)

// envelope is the JSON frame every event travels in.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is one of the closed set of variants the manager fans out to
// subscribers.
type Event interface{ isEvent() }

// MessageReceived carries a newly delivered chat message.
type MessageReceived struct {
	Message api.Message
}

// MessageSeen is a seen receipt: SeenBy has acknowledged the chat's messages.
type MessageSeen struct {
	ChatID string
	SeenBy string
}

// PresenceUp marks a user's realtime connection as open.
type PresenceUp struct {
	UserID string
}

// PresenceDown marks a user's realtime connection as closed.
type PresenceDown struct {
	UserID string
}

// ChannelError is a server-reported channel fault.
type ChannelError struct {
	Message string
}

// Connected fires when the channel comes up, including after a reconnect.
// Subscribers re-issue room joins on it; the presence set starts empty.
type Connected struct{}

// Disconnected fires when the channel goes down.
type Disconnected struct {
	Err error
}

// Reconnecting fires before each reconnect attempt of the bounded retry
// policy.
type Reconnecting struct {
	Attempt int
	Wait    time.Duration
}

func (MessageReceived) isEvent() {}
func (MessageSeen) isEvent()     {}
func (PresenceUp) isEvent()      {}
func (PresenceDown) isEvent()    {}
func (ChannelError) isEvent()    {}
func (Connected) isEvent()       {}
func (Disconnected) isEvent()    {}
func (Reconnecting) isEvent()    {}
