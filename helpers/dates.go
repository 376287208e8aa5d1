package helpers

import (
	"fmt"
	"strings"
	"time"
)

// Urgency classifies a due date relative to now.
type Urgency string

const (
	UrgencyNormal  Urgency = "normal"
	UrgencyDueSoon Urgency = "due_soon"
	UrgencyOverdue Urgency = "overdue"
)

// FormatDate renders t with layout, or "Invalid date" for the zero time.
func FormatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return "Invalid date"
	}
	if layout == "" {
		layout = DateDisplay
	}
	return t.Format(layout)
}

// ParseDate accepts plain dates (2006-01-02) as well as RFC3339 timestamps,
// with or without a zone offset.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range []string{DateISO, time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// DaysUntilDue counts whole calendar days from now's date to due's date.
// Negative values mean the due date has passed.
func DaysUntilDue(due, now time.Time) int {
	d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Sub(n).Hours() / 24)
}

// UrgencyLevel returns overdue for past dates, due_soon for 0..3 days left
// and normal otherwise. A zero due date is normal.
func UrgencyLevel(due, now time.Time) Urgency {
	if due.IsZero() {
		return UrgencyNormal
	}
	days := DaysUntilDue(due, now)
	switch {
	case days < 0:
		return UrgencyOverdue
	case days <= DueSoonDays:
		return UrgencyDueSoon
	default:
		return UrgencyNormal
	}
}

func UrgencyColor(u Urgency) string {
	switch u {
	case UrgencyOverdue:
		return "#ef4444"
	case UrgencyDueSoon:
		return "#f59e0b"
	default:
		return "#10b981"
	}
}

func UrgencyLabel(u Urgency) string {
	switch u {
	case UrgencyOverdue:
		return "🚨 Overdue"
	case UrgencyDueSoon:
		return "⚠️ Due Soon"
	default:
		return "✅ Normal"
	}
}

// DueText describes the distance to a due date in words.
func DueText(due, now time.Time) string {
	days := DaysUntilDue(due, now)
	switch {
	case days < 0:
		return fmt.Sprintf("%d days overdue", -days)
	case days == 0:
		return "Due today"
	case days == 1:
		return "Due tomorrow"
	default:
		return fmt.Sprintf("%d days left", days)
	}
}

// FormatChatTimestamp renders ts relative to now for chat bubbles.
func FormatChatTimestamp(ts, now time.Time) string {
	mins := int(now.Sub(ts).Minutes())
	switch {
	case mins < 1:
		return "Just now"
	case mins < 60:
		return fmt.Sprintf("%dm ago", mins)
	case mins < 24*60:
		return fmt.Sprintf("%dh ago", mins/60)
	default:
		return ts.Format("Jan 02")
	}
}
