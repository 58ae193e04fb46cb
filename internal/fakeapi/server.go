// Package fakeapi is an in-memory TeamTrack API for tests. It issues real
// HS256 tokens, applies the same response envelopes and pagination as the
// production server, and exposes switches for expiring tokens and failing
// refresh calls.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/teamtrack/projects"
	"github.com/jrsteele09/teamtrack/tasks"
	"github.com/jrsteele09/teamtrack/transport"
	"github.com/jrsteele09/teamtrack/users"
)

// BasePath is the prefix every route is mounted under.
const BasePath = "/api/v1"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type account struct {
	user     users.User
	password string
}

type API struct {
	router     chi.Router
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	rotate     bool
	now        func() time.Time

	mu          sync.Mutex
	accounts    map[int64]*account
	projects    map[int64]*projects.Project
	members     map[int64][]projects.Member
	tasks       map[int64]*tasks.Task
	nextID      int64
	generation  int
	revoked     map[string]bool
	failRefresh bool
	refreshGate chan struct{}

	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
}

type Option func(*API)

func WithAccessTTL(d time.Duration) Option {
	return func(a *API) {
		a.accessTTL = d
	}
}

// WithRotation makes every refresh call return a new refresh token and
// revoke the old one.
func WithRotation() Option {
	return func(a *API) {
		a.rotate = true
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *API) {
		a.now = now
	}
}

func New(options ...Option) *API {
	a := &API{
		secret:     []byte("teamtrack-fake-secret"),
		accessTTL:  5 * time.Minute,
		refreshTTL: 24 * time.Hour,
		now:        time.Now,
		accounts:   make(map[int64]*account),
		projects:   make(map[int64]*projects.Project),
		members:    make(map[int64][]projects.Member),
		tasks:      make(map[int64]*tasks.Task),
		revoked:    make(map[string]bool),
	}
	for _, opt := range options {
		opt(a)
	}
	a.router = a.routes()
	return a
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *API) routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found.", "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.", "method_not_allowed", nil)
	})

	r.Route(BasePath, func(r chi.Router) {
		r.Post("/auth/login/", a.login)
		r.Post("/auth/register/", a.register)
		r.Post("/auth/refresh/", a.refresh)
		r.Post("/auth/logout/", a.logout)

		r.Group(func(r chi.Router) {
			r.Use(a.authenticate)

			r.Get("/users/me/", a.me)
			r.Patch("/users/me/", a.updateMe)
			r.Get("/dashboard/summary/", a.summary)

			r.Get("/projects/", a.listProjects)
			r.Post("/projects/", a.createProject)
			r.Get("/projects/{id}/", a.getProject)
			r.Patch("/projects/{id}/", a.updateProject)
			r.Delete("/projects/{id}/", a.deleteProject)
			r.Get("/projects/{id}/members/", a.listMembers)
			r.Post("/projects/{id}/members/", a.addMember)
			r.Delete("/projects/{id}/members/{userID}/", a.removeMember)
			r.Get("/projects/{id}/tasks/", a.listTasks)
			r.Post("/projects/{id}/tasks/", a.createTask)
			r.Get("/projects/{id}/tasks/{taskID}/", a.getTask)
			r.Patch("/projects/{id}/tasks/{taskID}/", a.updateTask)
			r.Delete("/projects/{id}/tasks/{taskID}/", a.deleteTask)

			r.Group(func(r chi.Router) {
				r.Use(a.requireAdmin)
				r.Get("/users/", a.listUsers)
				r.Get("/users/{id}/", a.getUser)
				r.Patch("/users/{id}/", a.updateUser)
			})
		})
	})
	return r
}

// RefreshCalls is the number of requests received by the refresh endpoint.
func (a *API) RefreshCalls() int {
	return int(a.refreshCalls.Load())
}

func (a *API) LogoutCalls() int {
	return int(a.logoutCalls.Load())
}

// ExpireAccessTokens invalidates every access token issued so far.
func (a *API) ExpireAccessTokens() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generation++
}

// FailRefresh makes the refresh endpoint reject every token.
func (a *API) FailRefresh(fail bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failRefresh = fail
}

// HoldRefresh blocks refresh calls until the returned release is called.
func (a *API) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	a.mu.Lock()
	a.refreshGate = gate
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			a.refreshGate = nil
			a.mu.Unlock()
			close(gate)
		})
	}
}

func (a *API) id() int64 {
	a.nextID++
	return a.nextID
}

func (a *API) timestamp() time.Time {
	return a.now().UTC().Truncate(time.Microsecond)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, message, code string, details any) {
	body := map[string]any{"success": false, "message": message}
	if code != "" {
		body["code"] = code
	}
	if details != nil {
		body["errors"] = details
	}
	writeJSON(w, status, body)
}

func writeValidation(w http.ResponseWriter, message string, fields map[string][]string) {
	writeError(w, http.StatusBadRequest, message, "validation_error", fields)
}

func writeForbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "You do not have permission to perform this action.", "permission_denied", nil)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "JSON parse error", "parse_error", nil)
		return false
	}
	return true
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(q url.Values, key string, fallback int) int {
	v, err := strconv.Atoi(q.Get(key))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

// paginate writes one page of items in the paginated envelope.
func paginate[T any](w http.ResponseWriter, r *http.Request, items []T) {
	q := r.URL.Query()
	page := queryInt(q, "page", 1)
	size := min(queryInt(q, "page_size", defaultPageSize), maxPageSize)

	pages := max(1, (len(items)+size-1)/size)
	if page > pages {
		writeError(w, http.StatusNotFound, "Invalid page.", "not_found", nil)
		return
	}
	start := (page - 1) * size
	end := min(start+size, len(items))
	results := items[start:end]
	if results == nil {
		results = []T{}
	}

	link := func(n int) *string {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(n))
		s := "http://" + r.Host + r.URL.Path + "?" + q.Encode()
		return &s
	}
	meta := transport.Pagination{
		Count:       len(items),
		TotalPages:  pages,
		CurrentPage: page,
		PageSize:    size,
	}
	if page < pages {
		meta.Next = link(page + 1)
	}
	if page > 1 {
		meta.Previous = link(page - 1)
	}
	writeData(w, http.StatusOK, map[string]any{"results": results, "pagination": meta})
}
