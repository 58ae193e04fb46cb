package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/teamtrack/auth"
	"github.com/jrsteele09/teamtrack/dashboard"
	"github.com/jrsteele09/teamtrack/internal/format"
	"github.com/jrsteele09/teamtrack/internal/utils"
	"github.com/jrsteele09/teamtrack/projects"
	"github.com/jrsteele09/teamtrack/token"
	"github.com/jrsteele09/teamtrack/transport"
	"github.com/jrsteele09/teamtrack/users"
	"github.com/jrsteele09/teamtrack/users/userclient"
	"golang.org/x/sync/errgroup"
)

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password, read from stdin when empty")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *email == "" {
		return usagef("login: -email is required")
	}
	pw, err := a.password(*password)
	if err != nil {
		return err
	}

	u, err := a.auth.Login(ctx, *email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", describeUser(u))
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "register")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password, read from stdin when empty")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *email == "" {
		return usagef("register: -email is required")
	}
	pw, err := a.password(*password)
	if err != nil {
		return err
	}

	u, err := a.auth.Register(ctx, auth.RegisterRequest{
		Email:     *email,
		Password:  pw,
		FirstName: *first,
		LastName:  *last,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered and logged in as %s\n", describeUser(u))
	return nil
}

// password returns given, or the first line of stdin when given is empty.
func (a *app) password(given string) (string, error) {
	if given != "" {
		return given, nil
	}
	fmt.Fprint(a.errOut, "Password: ")
	scanner := bufio.NewScanner(a.in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", usagef("no password given")
	}
	pw := strings.TrimRight(scanner.Text(), "\r")
	if pw == "" {
		return "", usagef("no password given")
	}
	return pw, nil
}

func runLogout(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "logout")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if err := a.auth.Logout(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("server logout failed")
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func runWhoami(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "whoami")
	refresh := fs.Bool("refresh", false, "fetch the profile from the server")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	u := a.auth.User()
	if *refresh {
		fresh, err := a.users.Me(ctx)
		if err != nil {
			return err
		}
		if err := a.auth.UpdateUser(fresh); err != nil {
			return err
		}
		u = fresh
	}

	printUser(a.out, u)
	claims, err := a.auth.Claims()
	if err != nil {
		a.logger.Debug().Err(err).Msg("decode access token")
		return nil
	}
	expires := "expired"
	if left := token.ExpiresIn(a.store.AccessToken(), time.Now()); left > 0 {
		expires = "in " + left.Round(time.Second).String()
	}
	fmt.Fprintf(a.out, "Token: %s, expires %s\n", claims.TokenType, expires)
	return nil
}

func runProfile(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "profile")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	var update userclient.ProfileUpdate
	set := visited(fs)
	if set["first"] {
		update.FirstName = first
	}
	if set["last"] {
		update.LastName = last
	}
	if update.FirstName == nil && update.LastName == nil {
		return usagef("profile: give -first or -last")
	}

	u, err := a.users.UpdateMe(ctx, update)
	if err != nil {
		return err
	}
	if err := a.auth.UpdateUser(u); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Profile updated: %s\n", describeUser(u))
	return nil
}

func runDashboard(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "dashboard")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	var (
		summary *dashboard.Summary
		recent  *transport.Page[projects.Project]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := a.dashboard.Summary(gctx)
		summary = s
		return err
	})
	g.Go(func() error {
		p, err := a.projects.List(gctx, projects.ListParams{Page: 1})
		recent = p
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Total tasks: %d  Completed: %d  Pending: %d\n\n",
		summary.TotalTasks, summary.CompletedTasks, summary.PendingTasks)

	tw := newTable(a.out)
	fmt.Fprintln(tw, "ID\tPROJECT\tTASKS\tDONE\tPENDING\tPROGRESS")
	for _, p := range summary.Projects {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%s\n", p.ID, p.Name, p.TotalTasks, p.CompletedTasks,
			p.PendingTasks, progress(p))
	}
	tw.Flush()

	if recent != nil && recent.Pagination != nil && recent.Pagination.Count > len(summary.Projects) {
		fmt.Fprintf(a.out, "\n%d projects in total, see `teamtrack projects list`\n", recent.Pagination.Count)
	}
	return nil
}

// progress is the placeholder for projects without tasks.
func progress(p dashboard.ProjectProgress) string {
	if p.TotalTasks == 0 {
		return format.ProgressPct(nil)
	}
	return format.ProgressPct(utils.Ptr(p.ProgressPct))
}

func describeUser(u *users.User) string {
	if u == nil {
		return "unknown user"
	}
	if name := u.FullName(); name != u.Email {
		return fmt.Sprintf("%s <%s> (%s)", name, u.Email, u.Role.Label())
	}
	return fmt.Sprintf("%s (%s)", u.Email, u.Role.Label())
}
