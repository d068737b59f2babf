// Package session owns the authentication token of the current user.
//
// A State is the single owner of the token: views receive the token (or a
// service bound to it) by value and never mutate it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"taskman/internal/apperr"
	"taskman/internal/logging"
	"taskman/internal/service"
)

// Session is an authenticated user session.
type Session struct {
	Token string
	Email string
}

// Valid reports whether the session carries a token.
func (s Session) Valid() bool {
	return s.Token != ""
}

// State holds the current session and mediates login and logout.
type State struct {
	mu    sync.RWMutex
	cur   Session
	auth  service.Authenticator
	store Store
	log   *slog.Logger
}

// New creates a State. store may be nil for an in-memory only session.
func New(auth service.Authenticator, store Store, log *slog.Logger) *State {
	return &State{auth: auth, store: store, log: logging.OrDiscard(log)}
}

// Restore loads a previously saved session from the store.
// Returns false if there is none.
func (s *State) Restore() (bool, error) {
	if s.store == nil {
		return false, nil
	}
	sess, err := s.store.Load()
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return false, nil
		}
		return false, err
	}
	s.mu.Lock()
	s.cur = sess
	s.mu.Unlock()
	return true, nil
}

// Current returns the session and whether one is active.
func (s *State) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur, s.cur.Valid()
}

// Token returns the current token, or "" when logged out.
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Token
}

// LoggedIn reports whether a token is held.
func (s *State) LoggedIn() bool {
	_, ok := s.Current()
	return ok
}

// Login authenticates against the remote service and, on success, makes the
// returned token current. Failures are classified as
// apperr.AuthInvalidCredentials (server rejected the request) or
// apperr.AuthUnreachable (anything else).
func (s *State) Login(ctx context.Context, email, password string) (Session, error) {
	if s.auth == nil {
		return Session{}, apperr.New(apperr.AuthUnreachable, errors.New("no authenticator configured"))
	}
	email = strings.TrimSpace(email)

	token, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.log.Debug("login failed", "email", email, "err", err)
		if errors.Is(err, service.ErrInvalidCredentials) {
			return Session{}, apperr.New(apperr.AuthInvalidCredentials, err)
		}
		return Session{}, apperr.New(apperr.AuthUnreachable, err)
	}
	if token == "" {
		return Session{}, apperr.New(apperr.AuthUnreachable, errors.New("server returned an empty token"))
	}

	sess := Session{Token: token, Email: email}
	if s.store != nil {
		if err := s.store.Save(sess); err != nil {
			return Session{}, fmt.Errorf("failed to save session: %w", err)
		}
	}
	s.mu.Lock()
	s.cur = sess
	s.mu.Unlock()
	s.log.Debug("logged in", "email", email)
	return sess, nil
}

// Logout forgets the token. No server call is made.
func (s *State) Logout() error {
	s.mu.Lock()
	s.cur = Session{}
	s.mu.Unlock()
	if s.store != nil {
		return s.store.Clear()
	}
	return nil
}

// Register creates an account. It does not log in.
func (s *State) Register(ctx context.Context, req service.RegisterRequest) error {
	if s.auth == nil {
		return apperr.New(apperr.RegisterFailed, errors.New("no authenticator configured"))
	}
	if err := s.auth.Register(ctx, req); err != nil {
		s.log.Debug("register failed", "email", req.Email, "err", err)
		return apperr.New(apperr.RegisterFailed, err)
	}
	return nil
}
