package notify

import "time"

// Level classifies a notice for display.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// Notice is a short user-visible status message, the terminal equivalent of a
// toast.
type Notice struct {
	Level Level
	Text  string
	At    time.Time
}

// Notifier is how services report outcomes to the user. Implementations must
// not block.
type Notifier interface {
	Success(text string)
	Error(text string)
	Info(text string)
}

// Feed is a buffered in-memory notice queue consumed by the UI loop. Notices
// are dropped rather than blocking the producer when the consumer falls
// behind.
type Feed struct {
	ch chan Notice
}

// NewFeed creates a feed with a fixed buffer.
func NewFeed() *Feed {
	return &Feed{ch: make(chan Notice, 32)}
}

// C is the channel the UI waits on.
func (f *Feed) C() <-chan Notice { return f.ch }

func (f *Feed) Success(text string) { f.push(Notice{Level: LevelSuccess, Text: text, At: time.Now()}) }

func (f *Feed) Error(text string) { f.push(Notice{Level: LevelError, Text: text, At: time.Now()}) }

func (f *Feed) Info(text string) { f.push(Notice{Level: LevelInfo, Text: text, At: time.Now()}) }

func (f *Feed) push(n Notice) {
	select {
	case f.ch <- n:
	default:
	}
}
