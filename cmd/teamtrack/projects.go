package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/jrsteele09/teamtrack/projects"
)

func runProjectsList(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "projects list")
	page := fs.Int("page", 0, "page number")
	pageSize := fs.Int("page-size", 0, "results per page")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	result, err := a.projects.List(ctx, projects.ListParams{Page: *page, PageSize: *pageSize})
	if err != nil {
		return err
	}
	if len(result.Results) == 0 {
		fmt.Fprintln(a.out, "No projects")
		return nil
	}
	printProjects(a.out, result)
	return nil
}

func runProjectsGet(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "projects get")
	ids, err := parseArgs(fs, args, "PROJECT_ID")
	if err != nil {
		return err
	}

	p, err := a.projects.Get(ctx, ids[0])
	if err != nil {
		return err
	}
	printProject(a.out, p)
	return nil
}

func runProjectsCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "projects create")
	in, err := projectInput(fs, args, nil)
	if err != nil {
		return err
	}
	if in.Name == "" {
		return usagef("projects create: -name is required")
	}

	p, err := a.projects.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created project %d\n", p.ID)
	printProject(a.out, p)
	return nil
}

func runProjectsUpdate(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "projects update")
	var id int64
	in, err := projectInput(fs, args, &id)
	if err != nil {
		return err
	}
	if in == (projects.Input{}) {
		return usagef("projects update: nothing to change")
	}

	p, err := a.projects.Update(ctx, id, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated project %d\n", p.ID)
	printProject(a.out, p)
	return nil
}

// projectInput parses the shared project flags. When id is non-nil a leading
// PROJECT_ID is read into it.
func projectInput(fs *flag.FlagSet, args []string, id *int64) (projects.Input, error) {
	name := fs.String("name", "", "project name")
	description := fs.String("description", "", "project description")
	status := fs.String("status", "", "ACTIVE or ARCHIVED")

	var names []string
	if id != nil {
		names = []string{"PROJECT_ID"}
	}
	ids, err := parseArgs(fs, args, names...)
	if err != nil {
		return projects.Input{}, err
	}
	if id != nil {
		*id = ids[0]
	}

	in := projects.Input{Name: strings.TrimSpace(*name), Description: *description}
	if *status != "" {
		in.Status = projects.Status(strings.ToUpper(*status))
		if !in.Status.Valid() {
			return projects.Input{}, usagef("invalid -status %q", *status)
		}
	}
	return in, nil
}

func runProjectsDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "projects delete")
	ids, err := parseArgs(fs, args, "PROJECT_ID")
	if err != nil {
		return err
	}
	if err := a.projects.Delete(ctx, ids[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted project %d\n", ids[0])
	return nil
}

func runMembersList(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "members list")
	ids, err := parseArgs(fs, args, "PROJECT_ID")
	if err != nil {
		return err
	}

	members, err := a.projects.Members(ctx, ids[0])
	if err != nil {
		return err
	}
	if len(members) == 0 {
		fmt.Fprintln(a.out, "No members")
		return nil
	}
	printMembers(a.out, members)
	return nil
}

func runMembersAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "members add")
	userID := fs.Int64("user", 0, "user id to add")
	role := fs.String("role", string(projects.RoleMember), "MEMBER or PROJECT_ADMIN")
	ids, err := parseArgs(fs, args, "PROJECT_ID")
	if err != nil {
		return err
	}
	if *userID <= 0 {
		return usagef("members add: -user is required")
	}
	req := projects.AddMemberRequest{UserID: *userID, Role: projects.MemberRole(strings.ToUpper(*role))}
	if !req.Role.Valid() {
		return usagef("invalid -role %q", *role)
	}

	m, err := a.projects.AddMember(ctx, ids[0], req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s to project %d as %s\n", m.Email, ids[0], m.Role.Label())
	return nil
}

func runMembersRemove(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "members remove")
	ids, err := parseArgs(fs, args, "PROJECT_ID", "USER_ID")
	if err != nil {
		return err
	}
	if err := a.projects.RemoveMember(ctx, ids[0], ids[1]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed user %d from project %d\n", ids[1], ids[0])
	return nil
}
