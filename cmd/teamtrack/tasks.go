package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/jrsteele09/teamtrack/tasks"
)

// noDueDate clears the due date on update.
const noDueDate = "none"

func runTasksList(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "tasks list")
	status := fs.String("status", "", "TODO, IN_PROGRESS or DONE")
	priority := fs.String("priority", "", "LOW, MEDIUM or HIGH")
	assignedTo := fs.Int64("assigned-to", 0, "assignee user id")
	from := fs.String("from", "", "due on or after YYYY-MM-DD")
	to := fs.String("to", "", "due on or before YYYY-MM-DD")
	search := fs.String("search", "", "text in title or description")
	page := fs.Int("page", 0, "page number")
	pageSize := fs.Int("page-size", 0, "results per page")
	ids, err := parseArgs(fs, args, "PROJECT_ID")
	if err != nil {
		return err
	}

	filter := tasks.Filter{AssignedTo: *assignedTo, Search: *search, Page: *page, PageSize: *pageSize}
	if filter.Status, err = parseStatus(*status); err != nil {
		return err
	}
	if filter.Priority, err = parsePriority(*priority); err != nil {
		return err
	}
	if filter.DueDateFrom, err = parseDue("from", *from); err != nil {
		return err
	}
	if filter.DueDateTo, err = parseDue("to", *to); err != nil {
		return err
	}

	result, err := a.tasks.List(ctx, ids[0], filter)
	if err != nil {
		return err
	}
	if len(result.Results) == 0 {
		fmt.Fprintln(a.out, "No tasks")
		return nil
	}
	printTasks(a.out, result)
	return nil
}

func runTasksGet(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "tasks get")
	ids, err := parseArgs(fs, args, "PROJECT_ID", "TASK_ID")
	if err != nil {
		return err
	}

	t, err := a.tasks.Get(ctx, ids[0], ids[1])
	if err != nil {
		return err
	}
	printTask(a.out, t)
	return nil
}

func runTasksCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "tasks create")
	flags := defineTaskFlags(fs)
	ids, err := parseArgs(fs, args, "PROJECT_ID")
	if err != nil {
		return err
	}
	in, err := flags.input(visited(fs))
	if err != nil {
		return err
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return usagef("tasks create: -title is required")
	}

	t, err := a.tasks.Create(ctx, ids[0], in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created task %d\n", t.ID)
	printTask(a.out, t)
	return nil
}

func runTasksUpdate(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "tasks update")
	flags := defineTaskFlags(fs)
	unassign := fs.Bool("unassign", false, "clear the assignee")
	ids, err := parseArgs(fs, args, "PROJECT_ID", "TASK_ID")
	if err != nil {
		return err
	}
	in, err := flags.input(visited(fs))
	if err != nil {
		return err
	}
	if *unassign {
		if in.AssignedTo != nil {
			return usagef("tasks update: -assign and -unassign are exclusive")
		}
		in.Unassign = true
	}
	if in == (tasks.Input{}) {
		return usagef("tasks update: nothing to change")
	}

	t, err := a.tasks.Update(ctx, ids[0], ids[1], in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated task %d\n", t.ID)
	printTask(a.out, t)
	return nil
}

func runTasksDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "tasks delete")
	ids, err := parseArgs(fs, args, "PROJECT_ID", "TASK_ID")
	if err != nil {
		return err
	}
	if err := a.tasks.Delete(ctx, ids[0], ids[1]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted task %d\n", ids[1])
	return nil
}

type taskFlags struct {
	title       *string
	description *string
	status      *string
	priority    *string
	due         *string
	assign      *int64
}

func defineTaskFlags(fs *flag.FlagSet) taskFlags {
	return taskFlags{
		title:       fs.String("title", "", "task title"),
		description: fs.String("description", "", "task description"),
		status:      fs.String("status", "", "TODO, IN_PROGRESS or DONE"),
		priority:    fs.String("priority", "", "LOW, MEDIUM or HIGH"),
		due:         fs.String("due", "", "due date YYYY-MM-DD, or none to clear it"),
		assign:      fs.Int64("assign", 0, "assignee user id"),
	}
}

// input builds a partial update from the flags given on the command line.
func (f taskFlags) input(set map[string]bool) (tasks.Input, error) {
	var in tasks.Input
	if set["title"] {
		in.Title = f.title
	}
	if set["description"] {
		in.Description = f.description
	}
	if set["status"] {
		s, err := parseStatus(*f.status)
		if err != nil {
			return in, err
		}
		in.Status = &s
	}
	if set["priority"] {
		p, err := parsePriority(*f.priority)
		if err != nil {
			return in, err
		}
		in.Priority = &p
	}
	if set["due"] {
		var d tasks.Date
		if !strings.EqualFold(*f.due, noDueDate) {
			parsed, err := parseDue("due", *f.due)
			if err != nil {
				return in, err
			}
			d = parsed
		}
		in.DueDate = &d
	}
	if set["assign"] {
		if *f.assign <= 0 {
			return in, usagef("invalid -assign %d", *f.assign)
		}
		in.AssignedTo = f.assign
	}
	return in, nil
}

func parseStatus(s string) (tasks.Status, error) {
	if s == "" {
		return "", nil
	}
	status := tasks.Status(strings.ToUpper(s))
	if !status.Valid() {
		return "", usagef("invalid -status %q", s)
	}
	return status, nil
}

func parsePriority(s string) (tasks.Priority, error) {
	if s == "" {
		return "", nil
	}
	priority := tasks.Priority(strings.ToUpper(s))
	if !priority.Valid() {
		return "", usagef("invalid -priority %q", s)
	}
	return priority, nil
}

func parseDue(flagName, s string) (tasks.Date, error) {
	if s == "" {
		return tasks.Date{}, nil
	}
	d, err := tasks.ParseDate(s)
	if err != nil {
		return tasks.Date{}, usagef("invalid -%s %q, want YYYY-MM-DD", flagName, s)
	}
	return d, nil
}
