package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/jrsteele09/teamtrack/apierror"
	"github.com/jrsteele09/teamtrack/auth"
)

const (
	exitOK        = 0
	exitError     = 1
	exitUsage     = 2
	exitLogin     = 3 // Not logged in, or the session could not be refreshed
	exitForbidden = 4
)

type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func exitCode(err error) int {
	var uerr *usageError
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.As(err, &uerr):
		return exitUsage
	case errors.Is(err, auth.ErrLoginRequired),
		errors.Is(err, apierror.ErrNoRefreshToken),
		errors.Is(err, apierror.ErrRefreshFailed):
		return exitLogin
	case errors.Is(err, auth.ErrAdminRequired):
		return exitForbidden
	}

	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind() {
		case apierror.KindAuth:
			return exitLogin
		case apierror.KindForbidden:
			return exitForbidden
		}
	}
	return exitError
}

// printError writes err with any field errors listed beneath it.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		return
	}
	fields := apiErr.FieldErrors()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, msg := range fields[name] {
			fmt.Fprintf(w, "  %s: %s\n", name, msg)
		}
	}
}
