package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/mentorlink/mentorlink/internal/api"
	"github.com/mentorlink/mentorlink/internal/notify"
)

var errEmptyCredentials = errors.New("email and password are required")

// Gateway is the slice of the API client the store needs.
type Gateway interface {
	Me(ctx context.Context) (*api.Identity, error)
	Login(ctx context.Context, email, password string) (*api.Identity, error)
	Signup(ctx context.Context, name, email, password, confirmPassword string, role api.Role) error
	Logout(ctx context.Context) error
}

// Store holds the authenticated identity, or none. It is the only owner of
// that state; every other component reads identity from here.
type Store struct {
	gw     Gateway
	notify notify.Notifier

	mu       sync.RWMutex
	identity *api.Identity
	degraded bool
}

// NewStore creates a session store backed by the given API gateway.
func NewStore(gw Gateway, n notify.Notifier) *Store {
	return &Store{gw: gw, notify: n}
}

// Identity returns the current identity, or nil when logged out.
func (s *Store) Identity() *api.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Authenticated reports whether a user is logged in.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

// Degraded reports whether the API looked unreachable on the last session
// check or login. Distinct from being logged out.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// CheckSession asks the server who the session cookie belongs to. Run once at
// startup. Absence of a session is not an error and produces no notice; only
// an unreachable server flips degraded mode.
func (s *Store) CheckSession(ctx context.Context) {
	identity, err := s.gw.Me(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.identity = nil
		s.degraded = api.IsUnreachable(err)
		return
	}
	s.identity = identity
	s.degraded = false
}

// Login authenticates and stores the identity. Server rejections surface
// their own message; connectivity failures surface a generic one and flip
// degraded mode. Returns a non-nil error on any failure.
func (s *Store) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.notify.Error("Email and password are required")
		return errEmptyCredentials
	}

	identity, err := s.gw.Login(ctx, email, password)
	if err != nil {
		if api.IsUnreachable(err) {
			s.setDegraded(true)
			s.notify.Error("Unable to connect to the server. Please try again later.")
		} else {
			s.notify.Error(err.Error())
		}
		return err
	}

	s.mu.Lock()
	s.identity = identity
	s.degraded = false
	s.mu.Unlock()

	s.notify.Success("Login successful!")
	return nil
}

// Signup registers an account. Validation happens before any network call.
// Failures surface as notices; the return value says whether to move the user
// to the login screen.
func (s *Store) Signup(ctx context.Context, name, email, password, confirmPassword string, role api.Role) bool {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	switch {
	case name == "" || email == "" || password == "":
		s.notify.Error("Please fill in all fields")
		return false
	case password != confirmPassword:
		s.notify.Error("Passwords do not match")
		return false
	case role != api.RoleStudent && role != api.RoleMentor:
		s.notify.Error("Please choose a role")
		return false
	}

	if err := s.gw.Signup(ctx, name, email, password, confirmPassword, role); err != nil {
		if api.IsUnreachable(err) {
			s.notify.Error("Unable to connect to the server. Please try again later.")
		} else {
			s.notify.Error(err.Error())
		}
		return false
	}

	s.notify.Success("Signup successful! Please login.")
	return true
}

// Logout clears the local identity unconditionally, even when the remote call
// fails.
func (s *Store) Logout(ctx context.Context) {
	err := s.gw.Logout(ctx)

	s.mu.Lock()
	s.identity = nil
	s.mu.Unlock()

	if err != nil {
		s.notify.Error(err.Error())
		return
	}
	s.notify.Success("Logged out successfully!")
}

func (s *Store) setDegraded(v bool) {
	s.mu.Lock()
	s.degraded = v
	s.mu.Unlock()
}
