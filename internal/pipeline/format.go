package pipeline

import (
	"fmt"
	"time"
)

// timestampLayout renders e.g. "January 02, 2006 at 03:04 PM MST".
const timestampLayout = "January 02, 2006 at 03:04 PM MST"

// FormatDuration renders seconds as a compact human-readable duration.
func FormatDuration(seconds int) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	}
}

// FormatTimestamp renders a call start time in the configured zone for
// human readability. A zero time becomes "Unknown time"; a nil location
// falls back to UTC.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "Unknown time"
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timestampLayout)
}

func durationOrUnknown(seconds int) string {
	if seconds <= 0 {
		return "Unknown duration"
	}
	return FormatDuration(seconds)
}

func partyOrUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
