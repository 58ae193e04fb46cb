package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/jrsteele09/teamtrack/apierror"
	"github.com/jrsteele09/teamtrack/auth"
	"github.com/jrsteele09/teamtrack/internal/fakeapi"
	"github.com/jrsteele09/teamtrack/projects"
	"github.com/jrsteele09/teamtrack/tasks"
	"github.com/jrsteele09/teamtrack/users"
	"github.com/stretchr/testify/require"
)

const password = "password1"

type testFixture struct {
	t          *testing.T
	api        *fakeapi.API
	sessionDir string
	admin      users.User
	member     users.User
}

type result struct {
	code   int
	stdout string
	stderr string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	h := fakeapi.Start(t)
	f := &testFixture{
		t:          t,
		api:        h.API,
		sessionDir: t.TempDir(),
		admin:      h.API.AddUser(users.User{Email: "admin@example.com", FirstName: "Ada", LastName: "Min", Role: users.RoleAdmin}, password),
		member:     h.API.AddUser(users.User{Email: "alice@example.com", FirstName: "Alice", LastName: "Smith"}, password),
	}

	t.Setenv("TEAMTRACK_API_BASE_URL", h.URL())
	t.Setenv("TEAMTRACK_SESSION_DIR", f.sessionDir)
	t.Setenv("TEAMTRACK_SESSION_KEY", "")
	t.Setenv("TEAMTRACK_RATE_LIMIT", "")
	t.Setenv("ENV", "TEST")
	t.Setenv("LOG_LEVEL", "error")
	return f
}

func (f *testFixture) runWithInput(stdin string, args ...string) result {
	f.t.Helper()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func (f *testFixture) run(args ...string) result {
	f.t.Helper()
	return f.runWithInput("", args...)
}

func (f *testFixture) login(u users.User) {
	f.t.Helper()
	res := f.run("login", "-email", u.Email, "-password", password)
	require.Equal(f.t, exitOK, res.code, res.stderr)
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func TestLoginWhoamiLogout(t *testing.T) {
	f := setupTestFixture(t)

	res := f.run("login", "-email", "alice@example.com", "-password", password)
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "Logged in as Alice Smith <alice@example.com> (Team Member)")

	res = f.run("whoami")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "alice@example.com")
	require.Contains(t, res.stdout, "Team Member")
	require.Contains(t, res.stdout, "Token: access, expires in")

	res = f.run("logout")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "Logged out")
	require.Equal(t, 1, f.api.LogoutCalls())

	res = f.run("whoami")
	require.Equal(t, exitLogin, res.code)
	require.Contains(t, res.stderr, "Not logged in")
}

func TestLoginReadsPasswordFromStdin(t *testing.T) {
	f := setupTestFixture(t)

	res := f.runWithInput(password+"\n", "login", "-email", "alice@example.com")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "Logged in as Alice Smith")
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := setupTestFixture(t)

	res := f.run("login", "-email", "alice@example.com", "-password", "wrong")
	require.Equal(t, exitError, res.code)
	require.Contains(t, res.stderr, "non_field_errors: Invalid email or password.")

	res = f.run("whoami")
	require.Equal(t, exitLogin, res.code)
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)

	res := f.run("register", "-email", "bob@example.com", "-password", "longenough", "-first", "Bob")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "Registered and logged in as Bob <bob@example.com> (Team Member)")

	res = f.run("register", "-email", "bob@example.com", "-password", "short")
	require.Equal(t, exitError, res.code)
	require.Contains(t, res.stderr, "email: A user with this email already exists.")
	require.Contains(t, res.stderr, "password: This password is too short.")
}

func TestProfileUpdatesCachedUser(t *testing.T) {
	f := setupTestFixture(t)
	f.login(f.member)

	res := f.run("profile", "-first", "Al")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "Profile updated: Al Smith")

	res = f.run("whoami")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "Al Smith")

	res = f.run("profile")
	require.Equal(t, exitUsage, res.code)
}

func TestProjectsAndTasks(t *testing.T) {
	f := setupTestFixture(t)
	f.login(f.member)

	res := f.run("projects", "create", "-name", "Apollo", "-description", "Moon shot")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "Created project")

	res = f.run("projects", "list")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "Apollo")
	require.Contains(t, res.stdout, "Active")

	project := f.api.AddProject("Zeus", f.member.ID)
	pid := id(project.ID)

	res = f.run("tasks", "create", pid, "-title", "Write docs", "-priority", "high", "-due", "2026-03-09")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "Write docs")
	require.Contains(t, res.stdout, "High")
	require.Contains(t, res.stdout, "Mar 9, 2026")

	task := f.api.AddTask(project.ID, tasks.Task{Title: "Review", Status: tasks.StatusInProgress})
	res = f.run("tasks", "update", pid, id(task.ID), "-status", "DONE", "-assign", id(f.member.ID))
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "Done")
	require.Contains(t, res.stdout, "alice@example.com")

	res = f.run("tasks", "list", pid, "-status", "DONE")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "Review")
	require.NotContains(t, res.stdout, "Write docs")

	res = f.run("tasks", "update", pid, id(task.ID), "-unassign")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.NotContains(t, res.stdout, "alice@example.com")

	res = f.run("tasks", "delete", pid, id(task.ID))
	require.Equal(t, exitOK, res.code, res.stderr)

	res = f.run("tasks", "get", pid, id(task.ID))
	require.Equal(t, exitError, res.code)
}

func TestMembers(t *testing.T) {
	f := setupTestFixture(t)
	project := f.api.AddProject("Apollo", f.member.ID)
	f.login(f.member)

	res := f.run("members", "add", id(project.ID), "-user", id(f.admin.ID))
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "Added admin@example.com to project")

	res = f.run("members", "list", id(project.ID))
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "admin@example.com")
	require.Contains(t, res.stdout, projects.RoleProjectAdmin.Label())

	res = f.run("members", "remove", id(project.ID), id(f.admin.ID))
	require.Equal(t, exitOK, res.code, res.stderr)

	res = f.run("members", "list", id(project.ID))
	require.Equal(t, exitOK, res.code, res.stderr)
	require.NotContains(t, res.stdout, "admin@example.com")
}

func TestDashboard(t *testing.T) {
	f := setupTestFixture(t)
	apollo := f.api.AddProject("Apollo", f.member.ID)
	f.api.AddProject("Zeus", f.member.ID)
	f.api.AddTask(apollo.ID, tasks.Task{Title: "one", Status: tasks.StatusDone})
	f.api.AddTask(apollo.ID, tasks.Task{Title: "two"})
	f.login(f.member)

	res := f.run("dashboard")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "Total tasks: 2  Completed: 1  Pending: 1")
	require.Contains(t, res.stdout, "50.0%")
	require.Contains(t, res.stdout, "Zeus")
	require.Contains(t, res.stdout, "—")
}

func TestDashboardWithExpiredAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	f.api.AddProject("Apollo", f.member.ID)
	f.login(f.member)
	f.api.ExpireAccessTokens()

	res := f.run("dashboard")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "Apollo")
	require.GreaterOrEqual(t, f.api.RefreshCalls(), 1)
}

func TestTransparentRefreshPersistsNewToken(t *testing.T) {
	f := setupTestFixture(t)
	f.api.AddProject("Apollo", f.member.ID)
	f.login(f.member)
	f.api.ExpireAccessTokens()

	res := f.run("projects", "list")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "Apollo")
	require.Equal(t, 1, f.api.RefreshCalls())

	res = f.run("projects", "list")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Equal(t, 1, f.api.RefreshCalls())
}

func TestSessionExpired(t *testing.T) {
	f := setupTestFixture(t)
	f.login(f.member)
	f.api.ExpireAccessTokens()
	f.api.FailRefresh(true)

	res := f.run("projects", "list")
	require.Equal(t, exitLogin, res.code)
	require.Contains(t, res.stderr, "Session expired")

	res = f.run("whoami")
	require.Equal(t, exitLogin, res.code)
	require.Contains(t, res.stderr, "Not logged in")
}

func TestUsersRequiresAdmin(t *testing.T) {
	f := setupTestFixture(t)
	f.login(f.member)

	res := f.run("users", "list")
	require.Equal(t, exitForbidden, res.code)
	require.Contains(t, res.stderr, "requires the Admin role")

	f.login(f.admin)
	res = f.run("users", "list", "-role", "team_member")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "alice@example.com")
	require.NotContains(t, res.stdout, "admin@example.com")

	res = f.run("users", "update", id(f.member.ID), "-active", "false")
	require.Equal(t, exitOK, res.code, res.stderr)

	res = f.run("users", "get", id(f.member.ID))
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stdout, "false")
}

func TestServerForbidden(t *testing.T) {
	f := setupTestFixture(t)
	project := f.api.AddProject("Apollo", f.admin.ID, f.member.ID)
	f.login(f.member)

	res := f.run("projects", "delete", id(project.ID))
	require.Equal(t, exitForbidden, res.code)
	require.Contains(t, res.stderr, "Permission denied")
}

func TestUsageErrors(t *testing.T) {
	f := setupTestFixture(t)
	f.login(f.member)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{name: "no args", args: nil, code: exitUsage},
		{name: "help", args: []string{"help"}, code: exitOK},
		{name: "unknown command", args: []string{"bogus"}, code: exitUsage},
		{name: "missing subcommand", args: []string{"projects"}, code: exitUsage},
		{name: "unknown subcommand", args: []string{"projects", "bogus"}, code: exitUsage},
		{name: "missing id", args: []string{"tasks", "get", "1"}, code: exitUsage},
		{name: "invalid id", args: []string{"tasks", "get", "x", "1"}, code: exitUsage},
		{name: "unknown flag", args: []string{"projects", "list", "-nope"}, code: exitUsage},
		{name: "invalid status", args: []string{"tasks", "list", "1", "-status", "LATER"}, code: exitUsage},
		{name: "invalid date", args: []string{"tasks", "list", "1", "-from", "03/09/2026"}, code: exitUsage},
		{name: "extra argument", args: []string{"projects", "get", "1", "2"}, code: exitUsage},
		{name: "missing name", args: []string{"projects", "create"}, code: exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.run(tt.args...)
			require.Equal(t, tt.code, res.code, res.stderr)
		})
	}
}

func TestVersion(t *testing.T) {
	f := setupTestFixture(t)

	res := f.run("version")
	require.Equal(t, exitOK, res.code)
	require.Contains(t, res.stdout, "teamtrack "+version)
}

func TestSealedSession(t *testing.T) {
	f := setupTestFixture(t)
	t.Setenv("TEAMTRACK_SESSION_KEY", "correct horse")
	f.login(f.member)

	res := f.run("whoami")
	require.Equal(t, exitOK, res.code, res.stderr)

	entries, err := os.ReadDir(f.sessionDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, e := range entries {
		raw, err := os.ReadFile(filepath.Join(f.sessionDir, e.Name()))
		require.NoError(t, err)
		require.NotContains(t, string(raw), "alice@example.com")
	}

	t.Setenv("TEAMTRACK_SESSION_KEY", "battery staple")
	res = f.run("whoami")
	require.Equal(t, exitLogin, res.code)
}

func TestMetricsLoggedAtDebug(t *testing.T) {
	f := setupTestFixture(t)
	f.login(f.member)
	t.Setenv("LOG_LEVEL", "debug")

	res := f.run("projects", "list")
	require.Equal(t, exitOK, res.code, res.stderr)
	require.Contains(t, res.stderr, "teamtrack_client_requests_total")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "nil", err: nil, code: exitOK},
		{name: "usage", err: usagef("bad"), code: exitUsage},
		{name: "login required", err: auth.ErrLoginRequired, code: exitLogin},
		{name: "admin required", err: auth.ErrAdminRequired, code: exitForbidden},
		{name: "no refresh token", err: apierror.New(401, "", "not_authenticated", nil, apierror.ErrNoRefreshToken), code: exitLogin},
		{name: "refresh failed", err: apierror.New(0, "", "", nil, fmt.Errorf("%w: %w", apierror.ErrRefreshFailed, io.EOF)), code: exitLogin},
		{name: "forbidden", err: apierror.New(403, "no", "permission_denied", nil, nil), code: exitForbidden},
		{name: "not found", err: apierror.New(404, "gone", "not_found", nil, nil), code: exitError},
		{name: "plain", err: context.DeadlineExceeded, code: exitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.code, exitCode(tt.err))
		})
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	setupTestFixture(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"login", "-email", "a@example.com", "-password", "x"},
		panicReader{}, &stdout, &stderr)
	require.Equal(t, exitError, code)

	code = run(context.Background(), []string{"login", "-email", "a@example.com"}, panicReader{}, &stdout, &stderr)
	require.Equal(t, exitError, code)
	require.Contains(t, stderr.String(), "Recovered from panic")
}

type panicReader struct{}

func (panicReader) Read([]byte) (int, error) {
	panic("stdin exploded")
}
