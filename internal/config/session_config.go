package config

import (
	"os"
	"path/filepath"
)

const (
	sessionDirVar = "TEAMTRACK_SESSION_DIR"
	sessionKeyVar = "TEAMTRACK_SESSION_KEY"
)

type SessionConfig interface {
	GetSessionDir() string
	GetSessionKey() string
}

type Session struct{}

var _ SessionConfig = Session{}

// GetSessionDir defaults to teamtrack under the user config directory.
func (Session) GetSessionDir() string {
	if dir := os.Getenv(sessionDirVar); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "teamtrack")
}

// GetSessionKey is the passphrase for sealed session storage. Empty stores
// the session in plain files.
func (Session) GetSessionKey() string {
	return os.Getenv(sessionKeyVar)
}
