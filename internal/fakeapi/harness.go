package fakeapi

import (
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/teamtrack/session"
	"github.com/jrsteele09/teamtrack/session/backendfake"
	"github.com/jrsteele09/teamtrack/transport"
	"github.com/jrsteele09/teamtrack/users"
)

// Harness is a running API plus a transport client wired to an in-memory
// session store.
type Harness struct {
	API     *API
	Server  *httptest.Server
	Backend *backendfake.FakeBackend
	Store   *session.Store
	Client  *transport.Client
}

// Start serves a new API for the duration of the test.
func Start(t testing.TB, options ...Option) *Harness {
	t.Helper()

	api := New(options...)
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	backend := backendfake.NewFakeBackend()
	store := session.NewStore(backend)
	return &Harness{
		API:     api,
		Server:  server,
		Backend: backend,
		Store:   store,
		Client:  transport.New(server.URL+BasePath, store),
	}
}

// URL is the API base URL including BasePath.
func (h *Harness) URL() string {
	return h.Server.URL + BasePath
}

// SignIn stores a fresh session for u as a successful login would.
func (h *Harness) SignIn(t testing.TB, u users.User) {
	t.Helper()

	pair, err := h.API.IssueTokens(u.ID)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	if err := h.Store.SetSession(session.Session{User: &u, Access: pair.Access, Refresh: pair.Refresh}); err != nil {
		t.Fatalf("store session: %v", err)
	}
}
