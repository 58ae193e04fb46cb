package fakeapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jrsteele09/teamtrack/internal/fakeapi"
	"github.com/jrsteele09/teamtrack/token"
	"github.com/jrsteele09/teamtrack/users"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

func call(t *testing.T, h *fakeapi.Harness, method, path, access string, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.URL()+path, reader)
	require.NoError(t, err)
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func TestIssuedTokensCarryClaims(t *testing.T) {
	h := fakeapi.Start(t)
	u := h.API.AddUser(users.User{Email: "a@example.com"}, "password1")

	pair, err := h.API.IssueTokens(u.ID)
	require.NoError(t, err)

	claims, err := token.ParseClaims(pair.Access)
	require.NoError(t, err)
	require.Equal(t, "access", claims.TokenType)
	require.Equal(t, "1", claims.Subject)
	require.NotEmpty(t, claims.JTI)
}

func TestExpireAccessTokens(t *testing.T) {
	h := fakeapi.Start(t)
	u := h.API.AddUser(users.User{Email: "a@example.com"}, "password1")
	pair, err := h.API.IssueTokens(u.ID)
	require.NoError(t, err)

	status, _ := call(t, h, http.MethodGet, "/users/me/", pair.Access, nil)
	require.Equal(t, http.StatusOK, status)

	h.API.ExpireAccessTokens()
	status, env := call(t, h, http.MethodGet, "/users/me/", pair.Access, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "token_not_valid", env.Code)

	status, env = call(t, h, http.MethodPost, "/auth/refresh/", "", map[string]string{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, status)
	var refreshed token.Pair
	require.NoError(t, json.Unmarshal(env.Data, &refreshed))
	require.NotEmpty(t, refreshed.Access)
	require.Empty(t, refreshed.Refresh)
	require.Equal(t, 1, h.API.RefreshCalls())

	status, _ = call(t, h, http.MethodGet, "/users/me/", refreshed.Access, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestRotationRevokesOldRefreshToken(t *testing.T) {
	h := fakeapi.Start(t, fakeapi.WithRotation())
	u := h.API.AddUser(users.User{Email: "a@example.com"}, "password1")
	pair, err := h.API.IssueTokens(u.ID)
	require.NoError(t, err)

	status, env := call(t, h, http.MethodPost, "/auth/refresh/", "", map[string]string{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, status)
	var refreshed token.Pair
	require.NoError(t, json.Unmarshal(env.Data, &refreshed))
	require.NotEmpty(t, refreshed.Refresh)

	status, _ = call(t, h, http.MethodPost, "/auth/refresh/", "", map[string]string{"refresh": pair.Refresh})
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	h := fakeapi.Start(t)
	member := h.API.AddUser(users.User{Email: "m@example.com"}, "password1")
	pair, err := h.API.IssueTokens(member.ID)
	require.NoError(t, err)

	status, env := call(t, h, http.MethodGet, "/users/", pair.Access, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.False(t, env.Success)
	require.Equal(t, "permission_denied", env.Code)
}

func TestProjectListIsPaginated(t *testing.T) {
	h := fakeapi.Start(t)
	owner := h.API.AddUser(users.User{Email: "o@example.com"}, "password1")
	for _, name := range []string{"One", "Two", "Three"} {
		h.API.AddProject(name, owner.ID)
	}
	pair, err := h.API.IssueTokens(owner.ID)
	require.NoError(t, err)

	status, env := call(t, h, http.MethodGet, "/projects/?page_size=2", pair.Access, nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Results    []map[string]any `json:"results"`
		Pagination struct {
			Count      int     `json:"count"`
			TotalPages int     `json:"total_pages"`
			Next       *string `json:"next"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Results, 2)
	require.Equal(t, 3, page.Pagination.Count)
	require.Equal(t, 2, page.Pagination.TotalPages)
	require.NotNil(t, page.Pagination.Next)

	status, _ = call(t, h, http.MethodGet, "/projects/?page=5", pair.Access, nil)
	require.Equal(t, http.StatusNotFound, status)
}
