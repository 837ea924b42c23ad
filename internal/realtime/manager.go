package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mentorlink/mentorlink/internal/api"
	"github.com/mentorlink/mentorlink/internal/notify"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	handshakeTimeout = 10 * time.Second
	readLimit        = 64 << 10
	sendBuffer       = 32
)

// State is the channel lifecycle position.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Config holds everything the manager needs to own the connection.
type Config struct {
	URL      string         // websocket endpoint
	Jar      http.CookieJar // session cookies, shared with the HTTP client
	Notifier notify.Notifier

	// Bounded reconnect policy applied when an established connection drops.
	MaxRetries int
	RetryBase  time.Duration
	RetryMax   time.Duration
}

// Subscriber receives fanned-out channel events. The channel is buffered;
// events are dropped for subscribers that stop draining.
type Subscriber struct {
	id   int
	Ch   chan Event
	quit chan struct{}
}

// Done is closed when the subscriber is removed. Readers blocked on Ch select
// on it, since Ch itself is never closed: fan-out may have snapshotted it.
func (s *Subscriber) Done() <-chan struct{} { return s.quit }

// Manager owns the single realtime connection for the session. It is opened
// when an identity exists and closed when it does not; no other component may
// open its own connection.
type Manager struct {
	cfg Config

	mu     sync.RWMutex
	state  State
	conn   *websocket.Conn
	send   chan envelope
	done   chan struct{}
	userID string
	online map[string]struct{}
	subs   map[int]*Subscriber
	nextID int
}

// NewManager creates a disconnected manager.
func NewManager(cfg Config) *Manager {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMax == 0 {
		cfg.RetryMax = 8 * time.Second
	}
	return &Manager{
		cfg:    cfg,
		subs:   make(map[int]*Subscriber),
		online: make(map[string]struct{}),
	}
}

// State returns the current lifecycle position.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected reports whether the channel is up.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// Connect opens the channel for the given user and announces presence. Called
// exactly when identity becomes non-empty. A failed dial is reported via
// notice; reconnection only applies to connections that were established and
// then lost.
func (m *Manager) Connect(userID string) error {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnecting
	m.userID = userID
	done := make(chan struct{})
	m.done = done
	m.mu.Unlock()

	conn, err := m.dial()
	if err != nil {
		m.setState(StateDisconnected)
		m.cfg.Notifier.Error("Failed to connect to chat service")
		m.fanOut(Disconnected{Err: err})
		return err
	}

	m.attach(conn, done)
	return nil
}

// Close tears the channel down: best-effort user:offline announcement, then
// the connection is closed. Safe to call in any state.
func (m *Manager) Close() {
	m.mu.Lock()
	done := m.done
	m.done = nil
	m.state = StateDisconnected
	m.conn = nil
	m.online = make(map[string]struct{})
	m.mu.Unlock()

	if done != nil {
		close(done)
	}
	m.fanOut(Disconnected{})
}

// Subscribe registers a consumer of inbound events.
func (m *Manager) Subscribe() *Subscriber {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	sub := &Subscriber{
		id:   m.nextID,
		Ch:   make(chan Event, sendBuffer),
		quit: make(chan struct{}),
	}
	m.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes a consumer and releases readers blocked on its channel.
// Idempotent.
func (m *Manager) Unsubscribe(sub *Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[sub.id]; !ok {
		return
	}
	delete(m.subs, sub.id)
	close(sub.quit)
}

// JoinChat enters a conversation room.
func (m *Manager) JoinChat(chatID string) {
	m.intent(evJoinChat, chatPayload{ChatID: chatID})
}

// LeaveChat exits a conversation room.
func (m *Manager) LeaveChat(chatID string) {
	m.intent(evLeaveChat, chatPayload{ChatID: chatID})
}

// SendMessage sends a message over the channel, fire-and-forget. The message
// reaches local state only via the server's echo.
func (m *Manager) SendMessage(chatID, message string, files []string) {
	m.intent(evSendMessage, sendPayload{ChatID: chatID, Message: message, Files: files})
}

// MarkSeen acknowledges the messages of a conversation.
func (m *Manager) MarkSeen(chatID string) {
	m.intent(evMarkSeen, chatPayload{ChatID: chatID})
}

// Online reports whether a user currently has an open realtime connection.
func (m *Manager) Online(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.online[userID]
	return ok
}

// OnlineUsers returns a snapshot of the presence set.
func (m *Manager) OnlineUsers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]string, 0, len(m.online))
	for id := range m.online {
		users = append(users, id)
	}
	return users
}

func (m *Manager) dial() (*websocket.Conn, error) {
	d := websocket.Dialer{Jar: m.cfg.Jar, HandshakeTimeout: handshakeTimeout}
	conn, _, err := d.Dial(m.cfg.URL, nil)
	return conn, err
}

// attach installs a live connection, starts its pumps, announces presence and
// notifies subscribers. The presence set starts empty on every (re)connect:
// the server sends no snapshot of who is already online.
//
// done must be the lifetime channel the dial started under. If the manager was
// torn down (or re-opened for another session) while the dial was in flight,
// m.done no longer matches and the fresh connection is discarded instead of
// installed. Reports whether the connection was installed.
func (m *Manager) attach(conn *websocket.Conn, done chan struct{}) bool {
	m.mu.Lock()
	if done == nil || m.done != done {
		m.mu.Unlock()
		_ = conn.Close()
		return false
	}
	m.conn = conn
	m.state = StateConnected
	m.send = make(chan envelope, sendBuffer)
	m.online = make(map[string]struct{})
	send := m.send
	userID := m.userID
	m.mu.Unlock()

	go m.writePump(conn, send, done, userID)
	go m.readPump(conn, done)

	m.emit(evUserOnline, userPayload{UserID: userID})
	m.fanOut(Connected{})
	return true
}

// intent sends an outbound event, or reports that the channel is down. Every
// intent is a no-op with a notice when not connected.
func (m *Manager) intent(event string, data any) {
	if !m.IsConnected() {
		m.cfg.Notifier.Error("Not connected to chat service")
		return
	}
	m.emit(event, data)
}

func (m *Manager) emit(event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("realtime: encode %s: %v", event, err)
		return
	}

	m.mu.RLock()
	send := m.send
	m.mu.RUnlock()
	if send == nil {
		return
	}

	select {
	case send <- envelope{Event: event, Data: raw}:
	default:
		log.Printf("realtime: dropped outbound %s (send buffer full)", event)
	}
}

func (m *Manager) writePump(conn *websocket.Conn, send chan envelope, done chan struct{}, userID string) {
	ticker := time.NewTicker(pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case env := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			// Best-effort offline announcement before closing.
			raw, _ := json.Marshal(userPayload{UserID: userID})
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteJSON(envelope{Event: evUserOffline, Data: raw})
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (m *Manager) readPump(conn *websocket.Conn, done chan struct{}) {
	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				// Explicit teardown; Close already reported the transition.
				return
			default:
			}
			m.setState(StateDisconnected)
			m.cfg.Notifier.Error("Connection to chat service lost")
			m.fanOut(Disconnected{Err: err})
			go m.reconnect(done)
			return
		}
		m.handle(raw)
	}
}

func (m *Manager) handle(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("realtime: bad frame: %v", err)
		return
	}

	switch env.Event {
	case evMessageReceived:
		var p messagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			log.Printf("realtime: bad %s payload: %v", env.Event, err)
			return
		}
		m.fanOut(MessageReceived{Message: p.Message})
	case evMessageSeen:
		var p seenPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			log.Printf("realtime: bad %s payload: %v", env.Event, err)
			return
		}
		m.fanOut(MessageSeen{ChatID: p.ChatID, SeenBy: p.SeenBy})
	case evUserOnline:
		var p userPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		m.mu.Lock()
		m.online[p.UserID] = struct{}{}
		m.mu.Unlock()
		m.fanOut(PresenceUp{UserID: p.UserID})
	case evUserOffline:
		var p userPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		m.mu.Lock()
		delete(m.online, p.UserID)
		m.mu.Unlock()
		m.fanOut(PresenceDown{UserID: p.UserID})
	case evError:
		var p errorPayload
		_ = json.Unmarshal(env.Data, &p)
		if p.Message == "" {
			p.Message = "Chat service error"
		}
		m.cfg.Notifier.Error(p.Message)
		m.fanOut(ChannelError{Message: p.Message})
	default:
		log.Printf("realtime: unknown event %q", env.Event)
	}
}

// reconnect runs the bounded retry policy after a lost connection: capped
// exponential backoff, giving up after MaxRetries attempts.
func (m *Manager) reconnect(done chan struct{}) {
	for attempt := 1; attempt <= m.cfg.MaxRetries; attempt++ {
		wait := m.backoff(attempt)
		m.fanOut(Reconnecting{Attempt: attempt, Wait: wait})

		select {
		case <-time.After(wait):
		case <-done:
			return
		}

		m.setState(StateConnecting)
		conn, err := m.dial()
		if err == nil {
			if m.attach(conn, done) {
				m.cfg.Notifier.Success("Reconnected to chat service")
			}
			return
		}
		m.setState(StateDisconnected)
	}
	m.cfg.Notifier.Error("Failed to connect to chat service")
}

func (m *Manager) backoff(attempt int) time.Duration {
	wait := m.cfg.RetryBase << (attempt - 1)
	if wait > m.cfg.RetryMax || wait <= 0 {
		wait = m.cfg.RetryMax
	}
	return wait
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) fanOut(ev Event) {
	m.mu.RLock()
	subs := make([]*Subscriber, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	dropped := 0
	for _, sub := range subs {
		select {
		case sub.Ch <- ev:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		log.Printf("realtime: dropped %d events (slow subscribers)", dropped)
	}
}

type userPayload struct {
	UserID string `json:"userId"`
}

type chatPayload struct {
	ChatID string `json:"chatId"`
}

type sendPayload struct {
	ChatID  string   `json:"chatId"`
	Message string   `json:"message"`
	Files   []string `json:"files,omitempty"`
}

type seenPayload struct {
	ChatID string `json:"chatId"`
	SeenBy string `json:"seenBy"`
}

type messagePayload struct {
	Message api.Message `json:"message"`
}

type errorPayload struct {
	Message string `json:"message"`
}
