// Package format renders API values for terminal output.
package format

import (
	"fmt"
	"time"
)

// Placeholder is printed for missing or unparseable values.
const Placeholder = "—"

const (
	dateLayout     = "Jan 2, 2006"
	dateTimeLayout = "Jan 2, 2006 15:04"
)

// Date formats a calendar date such as "Mar 9, 2026".
func Date(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.Format(dateLayout)
}

// DateTime formats a timestamp in loc, such as "Mar 9, 2026 14:05".
func DateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return Placeholder
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(dateTimeLayout)
}

// ParseDate accepts RFC 3339 timestamps and bare YYYY-MM-DD dates.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateString formats s, or returns the placeholder when s cannot be parsed.
func DateString(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return Placeholder
	}
	return Date(t)
}

// ProgressPct formats a percentage with one decimal, such as "66.7%".
func ProgressPct(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return fmt.Sprintf("%.1f%%", *v)
}

// Optional returns s, or the placeholder when s is empty.
func Optional(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
