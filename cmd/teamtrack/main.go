package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/teamtrack/internal/config"
	"github.com/jrsteele09/teamtrack/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "Recovered from panic: %v\n%s", r, debug.Stack())
			code = exitError
		}
	}()

	if err := config.Load(); err != nil {
		fmt.Fprintf(stderr, "Error loading .env: %v\n", err)
		return exitError
	}
	c := config.New()
	logger := logging.New(c.GetLogLevel(), c.GetEnv(), stderr)
	logging.SetGlobal(logger)

	if len(args) == 0 {
		displayAppname(stdout, c.GetAppName())
		printUsage(stdout)
		return exitUsage
	}
	if isHelp(args[0]) {
		displayAppname(stdout, c.GetAppName())
		printUsage(stdout)
		return exitOK
	}

	cmd, rest, err := resolve(args)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n\n", err)
		printUsage(stderr)
		return exitUsage
	}
	if cmd.name == "version" {
		displayAppname(stdout, c.GetAppName())
		fmt.Fprintf(stdout, "teamtrack %s\n", version)
		return exitOK
	}

	a, err := newApp(c, logger, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer a.logMetrics()

	return a.report(a.execute(ctx, cmd, rest))
}

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}
