package utils

import (
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes renders a size with binary units, e.g. "1.5 MiB".
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatLastSeen renders a presence line: "Online" for members of the
// current online set, otherwise "Last seen <relative time>".
func FormatLastSeen(lastActive time.Time, online bool, now time.Time) string {
	switch {
	case online:
		return "Online"
	case lastActive.IsZero():
		return "Offline"
	case lastActive.After(now):
		return "Last seen just now"
	}
	return "Last seen " + humanize.RelTime(lastActive, now, "ago", "from now")
}

// FormatMessageTime renders a message timestamp: clock time for today,
// date and time otherwise.
func FormatMessageTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(now.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return t.Format("15:04")
	}
	if y1 == y2 {
		return t.Format("Jan 2 15:04")
	}
	return t.Format("Jan 2 2006 15:04")
}
