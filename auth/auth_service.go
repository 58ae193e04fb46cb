// Package auth is the session facade: login, registration, logout and the
// current user, kept in step with the persisted session.
package auth

import (
	"context"
	"net/http"
	"sync"

	"github.com/jrsteele09/teamtrack/apierror"
	"github.com/jrsteele09/teamtrack/session"
	"github.com/jrsteele09/teamtrack/token"
	"github.com/jrsteele09/teamtrack/transport"
	"github.com/jrsteele09/teamtrack/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	loginPath    = "/auth/login/"
	registerPath = "/auth/register/"
	logoutPath   = "/auth/logout/"
)

// Service holds a cached copy of the persisted session. Every mutation is
// written to the store before the in-memory state changes.
type Service struct {
	api    *transport.Client
	store  session.Repo
	logger zerolog.Logger

	mu          sync.RWMutex
	state       State
	subscribers map[int]func(State)
	nextSub     int
}

type ServiceOption func(*Service)

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService builds the facade over api and its session store, then restores
// the user from the store without contacting the server.
func NewService(api *transport.Client, options ...ServiceOption) (*Service, error) {
	if api == nil {
		return nil, errors.New("[NewService] transport client is required")
	}
	if api.Store() == nil {
		return nil, errors.New("[NewService] session store is required")
	}

	s := &Service{
		api:         api,
		store:       api.Store(),
		logger:      zerolog.Nop(),
		state:       State{Loading: true},
		subscribers: make(map[int]func(State)),
	}
	for _, opt := range options {
		opt(s)
	}

	api.Coordinator().OnSessionCleared(s.sessionCleared)
	s.Reload()
	return s, nil
}

// sessionCleared follows the transport when a failed refresh drops the
// persisted session.
func (s *Service) sessionCleared() {
	s.logger.Info().Msg("session ended by failed token refresh")
	s.set(State{})
}

// Reload rebuilds the state from the store. The user is restored only when
// both an access token and a cached user are present. Tokens are not
// validated here; the first rejected request settles that.
func (s *Service) Reload() {
	s.set(State{Loading: true, User: s.State().User})

	var u *users.User
	if s.store.AccessToken() != "" {
		u = s.store.User()
	}
	s.set(State{User: u})
}

func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) User() *users.User {
	return s.State().User
}

func (s *Service) Loading() bool {
	return s.State().Loading
}

func (s *Service) IsAuthenticated() bool {
	return s.State().IsAuthenticated()
}

func (s *Service) IsAdmin() bool {
	return s.State().IsAdmin()
}

// Authorize is the guard for protected commands.
func (s *Service) Authorize(requireAdmin bool) error {
	state := s.State()
	if !state.IsAuthenticated() {
		return ErrLoginRequired
	}
	if requireAdmin && !state.IsAdmin() {
		return ErrAdminRequired
	}
	return nil
}

// Claims decodes the stored access token for display.
func (s *Service) Claims() (*token.Claims, error) {
	return token.ParseClaims(s.store.AccessToken())
}

func (s *Service) Login(ctx context.Context, email, password string) (*users.User, error) {
	return s.authenticate(ctx, loginPath, LoginRequest{Email: email, Password: password})
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*users.User, error) {
	return s.authenticate(ctx, registerPath, req)
}

func (s *Service) authenticate(ctx context.Context, path string, body any) (*users.User, error) {
	var payload sessionPayload
	if err := s.api.Post(ctx, path, body, &payload); err != nil {
		return nil, err
	}
	if payload.Access == "" || payload.User == nil {
		return nil, apierror.New(http.StatusOK, "Invalid response from server", "", nil, apierror.ErrMissingAccessToken)
	}

	err := s.store.SetSession(session.Session{
		User:    payload.User,
		Access:  payload.Access,
		Refresh: payload.Refresh,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Service.authenticate] SetSession")
	}

	s.logger.Info().Int64("user_id", payload.User.ID).Str("path", path).Msg("session started")
	s.set(State{User: payload.User})
	return payload.User, nil
}

// Logout revokes the refresh token on the server when one is stored, then
// clears local state whatever the server said. The server error, if any, is
// still returned.
func (s *Service) Logout(ctx context.Context) error {
	var serverErr error
	if refresh := s.store.RefreshToken(); refresh != "" {
		serverErr = s.api.Post(ctx, logoutPath, logoutRequest{Refresh: refresh}, nil)
		if serverErr != nil {
			s.logger.Warn().Err(serverErr).Msg("server logout failed, clearing local session")
		}
	}

	clearErr := s.store.Clear()
	s.set(State{})

	if serverErr != nil {
		return serverErr
	}
	if clearErr != nil {
		return errors.Wrap(clearErr, "[Service.Logout] Clear")
	}
	return nil
}

// UpdateUser replaces the cached user, typically after a profile update.
func (s *Service) UpdateUser(u *users.User) error {
	if err := s.store.SetUser(u); err != nil {
		return errors.Wrap(err, "[Service.UpdateUser] SetUser")
	}
	s.set(State{User: u})
	return nil
}

// Subscribe registers fn to be called after every state change. Calls happen
// outside the facade's lock, in the goroutine that changed the state.
func (s *Service) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Service) set(state State) {
	s.mu.Lock()
	s.state = state
	subscribers := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(state)
	}
}
