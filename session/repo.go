package session

import "github.com/jrsteele09/teamtrack/users"

// Repo is the persisted session as seen by the transport and the auth facade.
// Absent tokens are returned as empty strings.
type Repo interface {
	AccessToken() string
	RefreshToken() string
	User() *users.User
	SetSession(s Session) error
	SetUser(u *users.User) error
	UpdateTokens(access, refresh string) error
	Clear() error
}

// Backend is durable string-keyed storage, the equivalent of browser local
// storage. Get reports ok=false for a missing key.
type Backend interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}
