package printer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slok/tasklib/internal/printer"
)

func TestFormatTimestamp(t *testing.T) {
	tests := map[string]struct {
		time     time.Time
		expected string
	}{
		"standard timestamp": {
			time:     time.Date(2026, 1, 30, 10, 15, 30, 0, time.UTC),
			expected: "2026-01-30 10:15:30 UTC",
		},
		"timestamp with different timezone gets converted to UTC": {
			time:     time.Date(2026, 1, 30, 10, 15, 30, 0, time.FixedZone("EST", -5*3600)),
			expected: "2026-01-30 15:15:30 UTC",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			result := printer.FormatTimestamp(test.time)
			assert.Equal(test.expected, result)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	start := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		t := start.Add(d)
		return &t
	}

	tests := map[string]struct {
		end      *time.Time
		expected string
	}{
		"unfinished run": {
			end:      nil,
			expected: "-",
		},
		"sub second run": {
			end:      at(250*time.Millisecond + 400*time.Microsecond),
			expected: "250ms",
		},
		"long run": {
			end:      at(2*time.Minute + 3*time.Second),
			expected: "2m3s",
		},
		"clock skew": {
			end:      at(-time.Second),
			expected: "0s",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			result := printer.FormatDuration(start, test.end)
			assert.Equal(test.expected, result)
		})
	}
}
