package fakeapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/teamtrack/token"
	"github.com/jrsteele09/teamtrack/users"
	"github.com/pkg/errors"
)

const (
	accessType  = "access"
	refreshType = "refresh"

	tokenNotValid = "Given token not valid for any token type"
)

type ctxKey struct{}

// AddUser stores an active account and returns it with its assigned id.
func (a *API) AddUser(u users.User, password string) users.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addUser(u, password)
}

func (a *API) addUser(u users.User, password string) users.User {
	u.ID = a.id()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = users.RoleTeamMember
	}
	u.IsActive = true
	u.DateJoined = a.timestamp()
	a.accounts[u.ID] = &account{user: u, password: password}
	return u
}

// IssueTokens signs a fresh pair for userID, as the login endpoint would.
func (a *API) IssueTokens(userID int64) (token.Pair, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.issue(userID)
}

func (a *API) issue(userID int64) (token.Pair, error) {
	access, err := a.sign(userID, accessType, a.accessTTL)
	if err != nil {
		return token.Pair{}, err
	}
	refresh, err := a.sign(userID, refreshType, a.refreshTTL)
	if err != nil {
		return token.Pair{}, err
	}
	return token.Pair{Access: access, Refresh: refresh}, nil
}

func (a *API) sign(userID int64, tokenType string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := jwt.MapClaims{
		"token_type": tokenType,
		"user_id":    userID,
		"jti":        uuid.NewString(),
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
		"gen":        a.generation,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", errors.Wrap(err, "API.sign SignedString")
	}
	return signed, nil
}

type parsedToken struct {
	userID     int64
	jti        string
	generation int
}

func (a *API) parse(raw, tokenType string) (parsedToken, error) {
	parsed, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return parsedToken{}, errors.Wrap(err, "API.parse")
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return parsedToken{}, errors.New("API.parse: unexpected claims")
	}
	if typ, _ := mc["token_type"].(string); typ != tokenType {
		return parsedToken{}, errors.Errorf("API.parse: token type %q", typ)
	}
	id, _ := mc["user_id"].(float64)
	gen, _ := mc["gen"].(float64)
	jti, _ := mc["jti"].(string)
	return parsedToken{userID: int64(id), jti: jti, generation: int(gen)}, nil
}

func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.", "not_authenticated", nil)
			return
		}

		a.mu.Lock()
		t, err := a.parse(raw, accessType)
		acct := a.accounts[t.userID]
		valid := err == nil && t.generation == a.generation && acct != nil && acct.user.IsActive
		a.mu.Unlock()

		if !valid {
			writeError(w, http.StatusUnauthorized, tokenNotValid, "token_not_valid", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, t.userID)))
	})
}

func (a *API) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		admin := a.caller(r).user.IsAdmin()
		a.mu.Unlock()
		if !admin {
			writeForbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// caller must be called with a.mu held, behind authenticate.
func (a *API) caller(r *http.Request) *account {
	id, _ := r.Context().Value(ctxKey{}).(int64)
	return a.accounts[id]
}

func (a *API) findByEmail(email string) *account {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, acct := range a.accounts {
		if acct.user.Email == email {
			return acct
		}
	}
	return nil
}

func (a *API) writeSession(w http.ResponseWriter, status int, u users.User) {
	pair, err := a.issue(u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error", "server_error", nil)
		return
	}
	writeData(w, status, map[string]any{"user": u, "access": pair.Access, "refresh": pair.Refresh})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	acct := a.findByEmail(body.Email)
	if acct == nil || acct.password != body.Password || !acct.user.IsActive {
		writeValidation(w, "Invalid credentials or validation failed", map[string][]string{
			"non_field_errors": {"Invalid email or password."},
		})
		return
	}
	a.writeSession(w, http.StatusOK, acct.user)
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	fields := map[string][]string{}
	switch {
	case strings.TrimSpace(body.Email) == "":
		fields["email"] = []string{"This field is required."}
	case !strings.Contains(body.Email, "@"):
		fields["email"] = []string{"Enter a valid email address."}
	case a.findByEmail(body.Email) != nil:
		fields["email"] = []string{"A user with this email already exists."}
	}
	if len(body.Password) < 8 {
		fields["password"] = []string{"This password is too short. It must contain at least 8 characters."}
	}
	if len(fields) > 0 {
		writeValidation(w, "Validation failed", fields)
		return
	}

	u := a.addUser(users.User{
		Email:     body.Email,
		FirstName: strings.TrimSpace(body.FirstName),
		LastName:  strings.TrimSpace(body.LastName),
	}, body.Password)
	a.writeSession(w, http.StatusCreated, u)
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	a.refreshCalls.Add(1)

	a.mu.Lock()
	gate := a.refreshGate
	a.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	var body struct {
		Refresh string `json:"refresh"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	t, err := a.parse(body.Refresh, refreshType)
	if a.failRefresh || err != nil || a.revoked[t.jti] || a.accounts[t.userID] == nil {
		writeError(w, http.StatusUnauthorized, "Token is invalid or expired", "token_not_valid", nil)
		return
	}

	access, err := a.sign(t.userID, accessType, a.accessTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error", "server_error", nil)
		return
	}
	data := map[string]any{"access": access, "refresh": nil}
	if a.rotate {
		rotated, err := a.sign(t.userID, refreshType, a.refreshTTL)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error", "server_error", nil)
			return
		}
		a.revoked[t.jti] = true
		data["refresh"] = rotated
	}
	writeData(w, http.StatusOK, data)
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	a.logoutCalls.Add(1)

	var body struct {
		Refresh string `json:"refresh"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	a.mu.Lock()
	if t, err := a.parse(body.Refresh, refreshType); err == nil {
		a.revoked[t.jti] = true
	}
	a.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out successfully."})
}
