package printer

import (
	"time"
)

// FormatTimestamp returns a formatted timestamp string in UTC.
// Format: "2006-01-02 15:04:05 UTC".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// FormatDuration returns the duration of a run rounded to milliseconds, "-" while it's not finished.
func FormatDuration(start time.Time, end *time.Time) string {
	if end == nil {
		return "-"
	}

	d := end.Sub(start)
	if d < 0 {
		d = 0
	}

	return d.Round(time.Millisecond).String()
}
