// Package state holds the client-side stores: the signed-in session and the
// task and tag collections mirrored from the backend. Stores are safe for
// concurrent use; network calls run on the caller's goroutine.
package state

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Joseda-hg/taskdock/internal/model"
)

// AuthAPI is the part of the API client the session needs.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (model.AuthResult, error)
	Register(ctx context.Context, email, name, password string) (model.AuthResult, error)
	Logout() error
	Profile(ctx context.Context) (model.User, error)
	HasToken() bool
	SetToken(token string) error
}

// AuthChange is emitted when the session gains, loses or switches identity.
// Current is nil after a sign-out.
type AuthChange struct {
	Previous *model.User
	Current  *model.User
}

type Session struct {
	api AuthAPI
	log zerolog.Logger

	mu       sync.Mutex
	user     *model.User
	checking bool
	initOnce sync.Once

	changes listeners[AuthChange]
}

func NewSession(api AuthAPI, logger zerolog.Logger) *Session {
	return &Session{api: api, log: logger, checking: true}
}

// Init validates a previously stored token by fetching the profile. Any
// failure discards the token. Only the first call does any work.
func (s *Session) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		defer s.setChecking(false)

		if !s.api.HasToken() {
			s.log.Debug().Msg("no stored token")
			return
		}

		user, err := s.api.Profile(ctx)
		if err != nil {
			s.log.Info().Err(err).Msg("stored token rejected")
			s.clear()
			return
		}
		s.setUser(user)
	})
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	result, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.log.Info().Err(err).Msg("login failed")
		s.clear()
		return err
	}
	s.setUser(result.User)
	return nil
}

func (s *Session) Register(ctx context.Context, email, name, password string) error {
	result, err := s.api.Register(ctx, email, name, password)
	if err != nil {
		s.log.Info().Err(err).Msg("registration failed")
		s.clear()
		return err
	}
	s.setUser(result.User)
	return nil
}

// AdoptToken stores a token issued elsewhere and keeps it only if the
// profile check accepts it.
func (s *Session) AdoptToken(ctx context.Context, token string) error {
	if err := s.api.SetToken(token); err != nil {
		return err
	}
	user, err := s.api.Profile(ctx)
	if err != nil {
		s.clear()
		return err
	}
	s.setUser(user)
	return nil
}

func (s *Session) Logout() error {
	return s.clear()
}

// ClearAuth drops the token and user, e.g. after the backend rejected the
// token.
func (s *Session) ClearAuth() error {
	return s.clear()
}

func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// User returns a copy of the signed-in user.
func (s *Session) User() (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// Checking reports whether Init has not finished yet.
func (s *Session) Checking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checking
}

// OnChange registers fn for auth changes and returns a function removing it.
func (s *Session) OnChange(fn func(AuthChange)) func() {
	return s.changes.add(fn)
}

func (s *Session) setChecking(checking bool) {
	s.mu.Lock()
	s.checking = checking
	s.mu.Unlock()
}

func (s *Session) setUser(user model.User) {
	s.mu.Lock()
	previous := s.user
	current := user
	s.user = &current
	s.mu.Unlock()

	if previous != nil && previous.ID == current.ID {
		return
	}
	s.log.Info().Str("user", current.ID).Msg("signed in")
	s.changes.emit(AuthChange{Previous: previous, Current: &current})
}

func (s *Session) clear() error {
	err := s.api.Logout()
	if err != nil {
		s.log.Warn().Err(err).Msg("clear stored token")
	}

	s.mu.Lock()
	previous := s.user
	s.user = nil
	s.mu.Unlock()

	if previous != nil {
		s.log.Info().Str("user", previous.ID).Msg("signed out")
		s.changes.emit(AuthChange{Previous: previous})
	}
	return err
}
