package session

import (
	"encoding/json"
	stderrors "errors"
	"sync"

	"github.com/jrsteele09/teamtrack/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Storage keys, under the teamtrack_ namespace.
const (
	KeyPrefix  = "teamtrack_"
	AccessKey  = KeyPrefix + "access"
	RefreshKey = KeyPrefix + "refresh"
	UserKey    = KeyPrefix + "user"
)

// Session is the authenticated state persisted between runs.
type Session struct {
	User    *users.User
	Access  string
	Refresh string
}

// Store persists a Session across the three storage keys. Every mutation is
// written through to the backend before it returns.
type Store struct {
	backend Backend
	logger  zerolog.Logger
	mu      sync.RWMutex
}

var _ Repo = (*Store)(nil)

type StoreOption func(*Store)

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(backend Backend, options ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(AccessKey)
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(RefreshKey)
}

// User returns the cached user record. A corrupted or null payload reads as nil.
func (s *Store) User() *users.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user()
}

func (s *Store) user() *users.User {
	raw := s.get(UserKey)
	if raw == "" {
		return nil
	}
	var u *users.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable cached user")
		return nil
	}
	return u
}

// Snapshot reads all three slots under one lock.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{
		User:    s.user(),
		Access:  s.get(AccessKey),
		Refresh: s.get(RefreshKey),
	}
}

// SetSession replaces all three slots. Empty values remove their key.
func (s *Store) SetSession(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setUser(sess.User); err != nil {
		return err
	}
	if err := s.put(AccessKey, sess.Access); err != nil {
		return err
	}
	return s.put(RefreshKey, sess.Refresh)
}

// SetUser replaces only the cached user record.
func (s *Store) SetUser(u *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setUser(u)
}

// UpdateTokens replaces the tokens while keeping the cached user.
// An empty refresh keeps the stored refresh token.
func (s *Store) UpdateTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if refresh == "" {
		refresh = s.get(RefreshKey)
	}
	if err := s.put(AccessKey, access); err != nil {
		return err
	}
	return s.put(RefreshKey, refresh)
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, key := range []string{AccessKey, RefreshKey, UserKey} {
		if err := s.backend.Remove(key); err != nil {
			errs = append(errs, errors.Wrapf(err, "Store.Clear Remove %s", key))
		}
	}
	return stderrors.Join(errs...)
}

func (s *Store) setUser(u *users.User) error {
	if u == nil {
		return s.put(UserKey, "")
	}
	b, err := json.Marshal(u)
	if err != nil {
		return errors.Wrap(err, "Store.SetUser Marshal")
	}
	return s.put(UserKey, string(b))
}

func (s *Store) get(key string) string {
	v, ok, err := s.backend.Get(key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("session read failed")
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

func (s *Store) put(key, value string) error {
	if value == "" {
		if err := s.backend.Remove(key); err != nil {
			return errors.Wrapf(err, "Store Remove %s", key)
		}
		return nil
	}
	if err := s.backend.Set(key, value); err != nil {
		return errors.Wrapf(err, "Store Set %s", key)
	}
	return nil
}
