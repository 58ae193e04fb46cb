package auth

import "github.com/jrsteele09/teamtrack/users"

// LoginRequest is the body of POST /auth/login/.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register/. Names are optional.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type logoutRequest struct {
	Refresh string `json:"refresh"`
}

// sessionPayload is returned by login and register.
type sessionPayload struct {
	User    *users.User `json:"user"`
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
}

// State is what consumers of the facade observe.
type State struct {
	Loading bool
	User    *users.User
}

func (s State) IsAuthenticated() bool {
	return s.User != nil
}

func (s State) IsAdmin() bool {
	return s.User.IsAdmin()
}
