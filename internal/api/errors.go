package api

import (
	"errors"
	"fmt"
)

// ErrUnreachable marks a transport-level failure: the request never produced a
// server response. Callers surface these with a generic connectivity message
// and flip the degraded-mode flag, as opposed to server rejections which carry
// a message of their own.
var ErrUnreachable = errors.New("server unreachable")

// Error is a rejection the server produced deliberately. The message is meant
// for the user and is surfaced verbatim.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// IsUnreachable reports whether err is a connectivity failure rather than a
// server rejection.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
