package format_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/teamtrack/internal/format"
	"github.com/jrsteele09/teamtrack/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	require.Equal(t, "Mar 9, 2026", format.Date(time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)))
	require.Equal(t, format.Placeholder, format.Date(time.Time{}))
}

func TestDateTime(t *testing.T) {
	ts := time.Date(2026, 3, 9, 14, 5, 0, 0, time.UTC)
	require.Equal(t, "Mar 9, 2026 14:05", format.DateTime(ts, time.UTC))
	require.Equal(t, "Mar 9, 2026 15:05", format.DateTime(ts, time.FixedZone("CET", 3600)))
	require.Equal(t, format.Placeholder, format.DateTime(time.Time{}, nil))
}

func TestDateString(t *testing.T) {
	require.Equal(t, "Mar 9, 2026", format.DateString("2026-03-09"))
	require.Equal(t, "Mar 9, 2026", format.DateString("2026-03-09T10:00:00Z"))
	require.Equal(t, format.Placeholder, format.DateString(""))
	require.Equal(t, format.Placeholder, format.DateString("yesterday"))
}

func TestProgressPct(t *testing.T) {
	require.Equal(t, "66.7%", format.ProgressPct(utils.Ptr(66.66)))
	require.Equal(t, "0.0%", format.ProgressPct(utils.Ptr(0.0)))
	require.Equal(t, format.Placeholder, format.ProgressPct(nil))
}

func TestOptional(t *testing.T) {
	require.Equal(t, "x", format.Optional("x"))
	require.Equal(t, format.Placeholder, format.Optional(""))
}
