package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jrsteele09/teamtrack/users"
	"github.com/jrsteele09/teamtrack/users/userclient"
)

func runUsersList(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "users list")
	role := fs.String("role", "", "ADMIN or TEAM_MEMBER")
	active := fs.String("active", "", "true or false")
	page := fs.Int("page", 0, "page number")
	pageSize := fs.Int("page-size", 0, "results per page")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	params := userclient.ListParams{Page: *page, PageSize: *pageSize}
	if *role != "" {
		r, err := parseRole(*role)
		if err != nil {
			return err
		}
		params.Role = r
	}
	if *active != "" {
		b, err := parseBool("active", *active)
		if err != nil {
			return err
		}
		params.IsActive = b
	}

	result, err := a.users.List(ctx, params)
	if err != nil {
		return err
	}
	if len(result.Results) == 0 {
		fmt.Fprintln(a.out, "No users")
		return nil
	}
	printUsers(a.out, result)
	return nil
}

func runUsersGet(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "users get")
	ids, err := parseArgs(fs, args, "USER_ID")
	if err != nil {
		return err
	}

	u, err := a.users.Get(ctx, ids[0])
	if err != nil {
		return err
	}
	printUser(a.out, u)
	return nil
}

func runUsersUpdate(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "users update")
	role := fs.String("role", "", "ADMIN or TEAM_MEMBER")
	active := fs.String("active", "", "true or false")
	ids, err := parseArgs(fs, args, "USER_ID")
	if err != nil {
		return err
	}

	var update userclient.AdminUpdate
	set := visited(fs)
	if set["role"] {
		r, err := parseRole(*role)
		if err != nil {
			return err
		}
		update.Role = &r
	}
	if set["active"] {
		b, err := parseBool("active", *active)
		if err != nil {
			return err
		}
		update.IsActive = b
	}
	if update.Role == nil && update.IsActive == nil {
		return usagef("users update: give -role or -active")
	}

	u, err := a.users.Update(ctx, ids[0], update)
	if err != nil {
		return err
	}
	if self := a.auth.User(); self != nil && self.ID == u.ID {
		if err := a.auth.UpdateUser(u); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "Updated %s\n", describeUser(u))
	return nil
}

func parseRole(s string) (users.RoleType, error) {
	r := users.RoleType(strings.ToUpper(s))
	if !r.Valid() {
		return "", usagef("invalid -role %q", s)
	}
	return r, nil
}
