package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/teamtrack/apierror"
	"github.com/jrsteele09/teamtrack/session"
	"github.com/jrsteele09/teamtrack/session/backendfake"
	"github.com/jrsteele09/teamtrack/transport"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newEchoClient(t *testing.T, handler http.HandlerFunc, access string, options ...transport.Option) *transport.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := session.NewStore(backendfake.NewFakeBackend())
	require.NoError(t, store.SetSession(session.Session{Access: access}))
	return transport.New(server.URL+"/api/v1/", store, options...)
}

func TestClientAttachesHeaders(t *testing.T) {
	var got http.Header
	var path string
	client := newEchoClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		path = r.URL.Path
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"id": 1}})
	}, "abc")

	var out struct {
		ID int `json:"id"`
	}
	require.NoError(t, client.Get(context.Background(), "/users/me/", nil, &out))
	require.Equal(t, 1, out.ID)
	require.Equal(t, "/api/v1/users/me/", path)
	require.Equal(t, "Bearer abc", got.Get("Authorization"))
	require.Equal(t, "application/json", got.Get("Content-Type"))
	require.Equal(t, "application/json", got.Get("Accept"))
	_, err := uuid.Parse(got.Get("X-Request-ID"))
	require.NoError(t, err)
}

func TestClientOmitsAuthorizationWithoutToken(t *testing.T) {
	var auth []string
	client := newEchoClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Values("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}, "")

	require.NoError(t, client.Post(context.Background(), "/auth/login/", map[string]string{"email": "a@b.c"}, nil))
	require.Empty(t, auth)
}

func TestClientSendsJSONBodyAndQuery(t *testing.T) {
	var body map[string]any
	var query string
	client := newEchoClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": body})
	}, "abc")

	require.NoError(t, client.Patch(context.Background(), "/users/me/", map[string]string{"first_name": "Jane"}, nil))
	require.Equal(t, "Jane", body["first_name"])

	q := map[string][]string{"page": {"2"}, "status": {"TODO"}}
	require.NoError(t, client.Get(context.Background(), "/projects/1/tasks/", q, nil))
	require.Equal(t, "page=2&status=TODO", query)
}

func TestClientErrorEnvelope(t *testing.T) {
	client := newEchoClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"success": false,
			"message": "You do not have permission to perform this action.",
			"code":    "permission_denied",
		})
	}, "abc")

	err := client.Delete(context.Background(), "/projects/1/")
	require.Error(t, err)
	apiErr := apierror.From(err)
	require.Equal(t, http.StatusForbidden, apiErr.Status)
	require.Equal(t, "permission_denied", apiErr.Code)
	require.Equal(t, "You do not have permission to perform this action.", apiErr.Message)
	require.True(t, apierror.IsForbidden(err))
}

func TestClientNonJSONBody(t *testing.T) {
	client := newEchoClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<h1>Server Error (500)</h1>"))
	}, "abc")

	err := client.Get(context.Background(), "/dashboard/summary/", nil, nil)
	apiErr := apierror.From(err)
	require.Equal(t, http.StatusInternalServerError, apiErr.Status)
	require.Equal(t, "Internal Server Error", apiErr.Message)
	require.Equal(t, apierror.KindServer, apiErr.Kind())
}

func TestClientNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := transport.New(url, session.NewStore(backendfake.NewFakeBackend()), transport.WithTimeout(time.Second))
	err := client.Get(context.Background(), "/users/me/", nil, nil)
	require.Error(t, err)
	apiErr := apierror.From(err)
	require.Equal(t, 0, apiErr.Status)
	require.NotEmpty(t, apiErr.Message)
	require.Equal(t, apierror.KindNetwork, apiErr.Kind())
}

func TestClientDecodesIntoMismatchedType(t *testing.T) {
	client := newEchoClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": "a string"})
	}, "abc")

	var out struct{ ID int }
	err := client.Get(context.Background(), "/users/me/", nil, &out)
	require.Error(t, err)
	require.Equal(t, "Invalid response from server", apierror.From(err).Message)
}

func TestListShapes(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/paged/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data": map[string]any{
					"results":    []project{{ID: 1, Name: "Alpha"}},
					"pagination": map[string]any{"count": 1, "total_pages": 1, "current_page": 1, "page_size": 20, "next": nil, "previous": nil},
				},
			})
		})
		api.Get("/bare/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []project{{ID: 2, Name: "Beta"}}})
		})
		api.Get("/raw/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []project{{ID: 3, Name: "Gamma"}})
		})
		api.Get("/empty/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})
	client := newEchoClient(t, r.ServeHTTP, "abc")
	ctx := context.Background()

	page, err := transport.List[project](ctx, client, "/paged/", nil)
	require.NoError(t, err)
	require.Equal(t, []project{{ID: 1, Name: "Alpha"}}, page.Results)
	require.NotNil(t, page.Pagination)
	require.Equal(t, 1, page.Pagination.TotalPages)
	require.False(t, page.HasNext())

	page, err = transport.List[project](ctx, client, "/bare/", nil)
	require.NoError(t, err)
	require.Equal(t, []project{{ID: 2, Name: "Beta"}}, page.Results)
	require.Nil(t, page.Pagination)

	page, err = transport.List[project](ctx, client, "/raw/", nil)
	require.NoError(t, err)
	require.Equal(t, []project{{ID: 3, Name: "Gamma"}}, page.Results)
	require.Nil(t, page.Pagination)

	page, err = transport.List[project](ctx, client, "/empty/", nil)
	require.NoError(t, err)
	require.NotNil(t, page.Results)
	require.Empty(t, page.Results)
	require.Nil(t, page.Pagination)
}

func TestRateLimitHonoursContext(t *testing.T) {
	client := newEchoClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}, "abc", transport.WithRateLimit(rate.Every(time.Hour), 1))

	require.NoError(t, client.Get(context.Background(), "/users/me/", nil, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := client.Get(ctx, "/users/me/", nil, nil)
	require.Error(t, err)
	require.Equal(t, apierror.KindNetwork, apierror.KindOf(err))
}

func TestClientRecordsRequests(t *testing.T) {
	rec := newRecorder()
	client := newEchoClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}, "abc", transport.WithMetrics(rec))

	require.NoError(t, client.Get(context.Background(), "/users/me/", nil, nil))
	require.NoError(t, client.Get(context.Background(), "/users/me/", nil, nil))
	require.Equal(t, 2, rec.requests)
}
