package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

type access int

const (
	accessPublic access = iota
	accessMember
	accessAdmin
)

type command struct {
	name    string
	path    string // Full name, such as "projects list"
	args    string
	summary string
	access  access
	run     func(ctx context.Context, a *app, args []string) error
	subs    []*command
}

var commands []*command

func init() {
	commands = []*command{
		{name: "login", args: "-email EMAIL [-password PASSWORD]", summary: "Log in and store the session", run: runLogin},
		{name: "register", args: "-email EMAIL [-password PASSWORD] [-first NAME] [-last NAME]", summary: "Create an account and log in", run: runRegister},
		{name: "logout", summary: "Log out and clear the stored session", run: runLogout},
		{name: "whoami", args: "[-refresh]", summary: "Show the logged in user", access: accessMember, run: runWhoami},
		{name: "profile", args: "[-first NAME] [-last NAME]", summary: "Update your name", access: accessMember, run: runProfile},
		{name: "dashboard", summary: "Show task progress across your projects", access: accessMember, run: runDashboard},
		{name: "projects", summary: "Manage projects", subs: []*command{
			{name: "list", args: "[-page N] [-page-size N]", access: accessMember, run: runProjectsList},
			{name: "get", args: "PROJECT_ID", access: accessMember, run: runProjectsGet},
			{name: "create", args: "-name NAME [-description TEXT] [-status ACTIVE|ARCHIVED]", access: accessMember, run: runProjectsCreate},
			{name: "update", args: "PROJECT_ID [-name NAME] [-description TEXT] [-status ACTIVE|ARCHIVED]", access: accessMember, run: runProjectsUpdate},
			{name: "delete", args: "PROJECT_ID", access: accessMember, run: runProjectsDelete},
		}},
		{name: "members", summary: "Manage project members", subs: []*command{
			{name: "list", args: "PROJECT_ID", access: accessMember, run: runMembersList},
			{name: "add", args: "PROJECT_ID -user USER_ID [-role MEMBER|PROJECT_ADMIN]", access: accessMember, run: runMembersAdd},
			{name: "remove", args: "PROJECT_ID USER_ID", access: accessMember, run: runMembersRemove},
		}},
		{name: "tasks", summary: "Manage tasks", subs: []*command{
			{name: "list", args: "PROJECT_ID [-status S] [-priority P] [-assigned-to ID] [-from DATE] [-to DATE] [-search TEXT] [-page N] [-page-size N]", access: accessMember, run: runTasksList},
			{name: "get", args: "PROJECT_ID TASK_ID", access: accessMember, run: runTasksGet},
			{name: "create", args: "PROJECT_ID -title TITLE [-description TEXT] [-status S] [-priority P] [-due DATE] [-assign USER_ID]", access: accessMember, run: runTasksCreate},
			{name: "update", args: "PROJECT_ID TASK_ID [-title TITLE] [-description TEXT] [-status S] [-priority P] [-due DATE] [-assign USER_ID] [-unassign]", access: accessMember, run: runTasksUpdate},
			{name: "delete", args: "PROJECT_ID TASK_ID", access: accessMember, run: runTasksDelete},
		}},
		{name: "users", summary: "Administer users", subs: []*command{
			{name: "list", args: "[-role ADMIN|TEAM_MEMBER] [-active true|false] [-page N] [-page-size N]", access: accessAdmin, run: runUsersList},
			{name: "get", args: "USER_ID", access: accessAdmin, run: runUsersGet},
			{name: "update", args: "USER_ID [-role ADMIN|TEAM_MEMBER] [-active true|false]", access: accessAdmin, run: runUsersUpdate},
		}},
		{name: "version", summary: "Print the version"},
	}

	for _, cmd := range commands {
		cmd.path = cmd.name
		for _, sub := range cmd.subs {
			sub.path = cmd.name + " " + sub.name
		}
	}
}

func isHelp(arg string) bool {
	switch arg {
	case "help", "-h", "-help", "--help":
		return true
	}
	return false
}

// resolve finds the command named by the leading args and returns the
// remaining arguments.
func resolve(args []string) (*command, []string, error) {
	cmd := find(commands, args[0])
	if cmd == nil {
		return nil, nil, usagef("unknown command %q", args[0])
	}
	if len(cmd.subs) == 0 {
		return cmd, args[1:], nil
	}
	if len(args) < 2 {
		return nil, nil, usagef("%s requires a subcommand", cmd.name)
	}
	sub := find(cmd.subs, args[1])
	if sub == nil {
		return nil, nil, usagef("unknown command %q", cmd.name+" "+args[1])
	}
	return sub, args[2:], nil
}

func find(cmds []*command, name string) *command {
	for _, cmd := range cmds {
		if cmd.name == name {
			return cmd
		}
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: teamtrack COMMAND [ARGS]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, cmd := range commands {
		if len(cmd.subs) == 0 {
			fmt.Fprintf(tw, "  %s %s\t%s\n", cmd.name, cmd.args, cmd.summary)
			continue
		}
		fmt.Fprintf(tw, "  %s\t%s\n", cmd.name, cmd.summary)
		for _, sub := range cmd.subs {
			fmt.Fprintf(tw, "    %s %s\t\n", sub.name, sub.args)
		}
	}
	tw.Flush()
}

// newFlags returns a flag set that reports errors instead of exiting.
func newFlags(a *app, cmd string) *flag.FlagSet {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// parseArgs reads the leading positional ids named by names and then the
// flags that follow them.
func parseArgs(fs *flag.FlagSet, args []string, names ...string) ([]int64, error) {
	ids := make([]int64, len(names))
	for i, name := range names {
		if i >= len(args) || strings.HasPrefix(args[i], "-") {
			return nil, usagef("%s: missing %s", fs.Name(), name)
		}
		id, err := strconv.ParseInt(args[i], 10, 64)
		if err != nil || id <= 0 {
			return nil, usagef("%s: invalid %s %q", fs.Name(), name, args[i])
		}
		ids[i] = id
	}
	if err := fs.Parse(args[len(names):]); err != nil {
		if err == flag.ErrHelp {
			return nil, err
		}
		return nil, usagef("%s: %v", fs.Name(), err)
	}
	if fs.NArg() > 0 {
		return nil, usagef("%s: unexpected argument %q", fs.Name(), fs.Arg(0))
	}
	return ids, nil
}

// visited reports which flags were given on the command line.
func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

func parseBool(name, value string) (*bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, usagef("invalid -%s %q, want true or false", name, value)
	}
	return &b, nil
}
