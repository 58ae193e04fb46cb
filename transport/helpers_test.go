package transport_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/teamtrack/session"
	"github.com/jrsteele09/teamtrack/session/backendfake"
	"github.com/jrsteele09/teamtrack/transport"
	"github.com/jrsteele09/teamtrack/users"
	"github.com/stretchr/testify/require"
)

const (
	staleAccess  = "stale-access"
	freshAccess  = "fresh-access"
	testRefresh  = "refresh-1"
	tokenInvalid = "Given token not valid for any token type"
)

var testUser = &users.User{ID: 1, Email: "jane@example.com", FirstName: "Jane", Role: users.RoleTeamMember, IsActive: true}

type project struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// apiServer accepts one valid access token and counts refresh calls.
type apiServer struct {
	mu     sync.Mutex
	access string

	refreshes         atomic.Int32
	refreshAuthHeader atomic.Value
	refresh           http.HandlerFunc
	alwaysReject      bool
}

func newAPIServer() *apiServer {
	s := &apiServer{access: freshAccess}
	s.refresh = s.grant(freshAccess, "")
	return s
}

func (s *apiServer) validAccess() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

// grant answers the refresh call with access and, when set, a rotated refresh token.
func (s *apiServer) grant(access, rotated string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{"access": access, "refresh": nil}
		if rotated != "" {
			data["refresh"] = rotated
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
	}
}

func (s *apiServer) reject(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"success": false,
		"message": "Invalid or expired refresh token",
		"code":    "invalid_refresh",
	})
}

func (s *apiServer) router() http.Handler {
	r := chi.NewRouter()
	r.Post("/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		s.refreshes.Add(1)
		s.refreshAuthHeader.Store(r.Header.Get("Authorization"))
		var body struct {
			Refresh string `json:"refresh"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Refresh == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "refresh required"})
			return
		}
		s.refresh(w, r)
	})
	r.Group(func(r chi.Router) {
		r.Use(s.requireAccess)
		r.Get("/projects/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []project{{ID: 1, Name: "Alpha"}, {ID: 2, Name: "Beta"}})
		})
		r.Get("/projects/{id}/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": project{ID: 1, Name: "Alpha"}})
		})
	})
	return r
}

func (s *apiServer) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.alwaysReject || r.Header.Get("Authorization") != "Bearer "+s.validAccess() {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": tokenInvalid, "code": "token_not_valid"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type fixture struct {
	api     *apiServer
	server  *httptest.Server
	backend *backendfake.FakeBackend
	store   *session.Store
	client  *transport.Client
}

func setupFixture(t *testing.T, api *apiServer, sess session.Session, options ...transport.Option) *fixture {
	t.Helper()

	server := httptest.NewServer(api.router())
	t.Cleanup(server.Close)

	backend := backendfake.NewFakeBackend()
	store := session.NewStore(backend)
	require.NoError(t, store.SetSession(sess))

	return &fixture{
		api:     api,
		server:  server,
		backend: backend,
		store:   store,
		client:  transport.New(server.URL, store, options...),
	}
}

func expiredSession() session.Session {
	return session.Session{User: testUser, Access: staleAccess, Refresh: testRefresh}
}

// waitFor polls cond from a goroutine that must not call t.FailNow.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// recorder captures metrics calls.
type recorder struct {
	mu        sync.Mutex
	requests  int
	refreshes map[string]int
	waiters   int
}

func newRecorder() *recorder {
	return &recorder{refreshes: map[string]int{}}
}

func (r *recorder) RecordRequest(string, int, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests++
}

func (r *recorder) RecordRefresh(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes[outcome]++
}

func (r *recorder) RecordRefreshWaiter() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waiters++
}

func (r *recorder) refreshCount(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshes[outcome]
}

func (r *recorder) waiterCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiters
}
