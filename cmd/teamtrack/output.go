package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/teamtrack/internal/format"
	"github.com/jrsteele09/teamtrack/projects"
	"github.com/jrsteele09/teamtrack/tasks"
	"github.com/jrsteele09/teamtrack/transport"
	"github.com/jrsteele09/teamtrack/users"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printPagination(w io.Writer, p *transport.Pagination) {
	if p == nil || p.TotalPages <= 1 {
		return
	}
	fmt.Fprintf(w, "\nPage %d of %d (%d total)\n", p.CurrentPage, p.TotalPages, p.Count)
}

func printUser(w io.Writer, u *users.User) {
	if u == nil {
		fmt.Fprintln(w, format.Placeholder)
		return
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%d\n", u.ID)
	fmt.Fprintf(tw, "Email:\t%s\n", u.Email)
	fmt.Fprintf(tw, "Name:\t%s\n", format.Optional(u.FullName()))
	fmt.Fprintf(tw, "Role:\t%s\n", u.Role.Label())
	fmt.Fprintf(tw, "Active:\t%t\n", u.IsActive)
	fmt.Fprintf(tw, "Joined:\t%s\n", format.Date(u.DateJoined))
	tw.Flush()
}

func printUsers(w io.Writer, page *transport.Page[users.User]) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tACTIVE\tJOINED")
	for _, u := range page.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\n", u.ID, u.Email, format.Optional(u.FullName()),
			u.Role.Label(), u.IsActive, format.Date(u.DateJoined))
	}
	tw.Flush()
	printPagination(w, page.Pagination)
}

func printProjects(w io.Writer, page *transport.Page[projects.Project]) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tMEMBERS\tOWNER\tCREATED")
	for _, p := range page.Results {
		members := format.Placeholder
		if p.MemberCount != nil {
			members = strconv.Itoa(*p.MemberCount)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Status.Label(), members,
			format.Optional(p.CreatedByEmail), format.Date(p.CreatedAt))
	}
	tw.Flush()
	printPagination(w, page.Pagination)
}

func printProject(w io.Writer, p *projects.Project) {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%d\n", p.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", p.Name)
	fmt.Fprintf(tw, "Description:\t%s\n", format.Optional(p.Description))
	fmt.Fprintf(tw, "Status:\t%s\n", p.Status.Label())
	fmt.Fprintf(tw, "Owner:\t%s\n", format.Optional(p.CreatedByEmail))
	fmt.Fprintf(tw, "Created:\t%s\n", format.DateTime(p.CreatedAt, time.Local))
	fmt.Fprintf(tw, "Updated:\t%s\n", format.DateTime(p.UpdatedAt, time.Local))
	tw.Flush()
	if len(p.Members) > 0 {
		fmt.Fprintln(w)
		printMembers(w, p.Members)
	}
}

func printMembers(w io.Writer, members []projects.Member) {
	tw := newTable(w)
	fmt.Fprintln(tw, "USER\tEMAIL\tROLE\tJOINED")
	for _, m := range members {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.UserID, m.Email, m.Role.Label(), format.Date(m.JoinedAt))
	}
	tw.Flush()
}

func printTasks(w io.Writer, page *transport.Page[tasks.Task]) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tDUE\tASSIGNEE")
	for _, t := range page.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status.Label(), t.Priority.Label(),
			format.Date(t.DueDate.Time), assignee(t))
	}
	tw.Flush()
	printPagination(w, page.Pagination)
}

func printTask(w io.Writer, t *tasks.Task) {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%d\n", t.ID)
	fmt.Fprintf(tw, "Project:\t%d\n", t.Project)
	fmt.Fprintf(tw, "Title:\t%s\n", t.Title)
	fmt.Fprintf(tw, "Description:\t%s\n", format.Optional(t.Description))
	fmt.Fprintf(tw, "Status:\t%s\n", t.Status.Label())
	fmt.Fprintf(tw, "Priority:\t%s\n", t.Priority.Label())
	fmt.Fprintf(tw, "Due:\t%s\n", format.Date(t.DueDate.Time))
	fmt.Fprintf(tw, "Assignee:\t%s\n", assignee(*t))
	fmt.Fprintf(tw, "Created by:\t%s\n", format.Optional(t.CreatedByEmail))
	fmt.Fprintf(tw, "Updated:\t%s\n", format.DateTime(t.UpdatedAt, time.Local))
	tw.Flush()
}

func assignee(t tasks.Task) string {
	if t.AssignedToEmail != nil && *t.AssignedToEmail != "" {
		return *t.AssignedToEmail
	}
	if t.AssignedTo != nil {
		return strconv.FormatInt(*t.AssignedTo, 10)
	}
	return format.Placeholder
}
