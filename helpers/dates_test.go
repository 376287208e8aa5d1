package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func day(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestUrgencyLevel(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		due  string
		want Urgency
	}{
		{"2024-03-01", UrgencyOverdue},
		{"2024-03-09", UrgencyOverdue},
		{"2024-03-10", UrgencyDueSoon},
		// calendar days: a timestamp earlier today is still due today
		{"2024-03-10T09:00:00Z", UrgencyDueSoon},
		{"2024-03-13", UrgencyDueSoon},
		{"2024-03-14", UrgencyNormal},
		{"2024-04-10T09:00:00Z", UrgencyNormal},
	}
	for _, tt := range tests {
		t.Run(tt.due, func(t *testing.T) {
			assert.Equal(t, tt.want, UrgencyLevel(day(tt.due), now))
		})
	}
	assert.Equal(t, UrgencyNormal, UrgencyLevel(time.Time{}, now))
}

func TestUrgencyLevelProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		now := time.Date(2025, 1, 1, rapid.IntRange(0, 23).Draw(t, "hour"), 0, 0, 0, time.UTC)
		days := rapid.IntRange(-500, 500).Draw(t, "days")
		due := now.AddDate(0, 0, days)

		if got := DaysUntilDue(due, now); got != days {
			t.Fatalf("DaysUntilDue = %d, want %d", got, days)
		}
		got := UrgencyLevel(due, now)
		switch {
		case days < 0 && got != UrgencyOverdue:
			t.Fatalf("days %d: got %s", days, got)
		case days >= 0 && days <= 3 && got != UrgencyDueSoon:
			t.Fatalf("days %d: got %s", days, got)
		case days > 3 && got != UrgencyNormal:
			t.Fatalf("days %d: got %s", days, got)
		}
	})
}

func TestUrgencyLabelAndColor(t *testing.T) {
	assert.Equal(t, "🚨 Overdue", UrgencyLabel(UrgencyOverdue))
	assert.Equal(t, "⚠️ Due Soon", UrgencyLabel(UrgencyDueSoon))
	assert.Equal(t, "✅ Normal", UrgencyLabel(UrgencyNormal))
	assert.Equal(t, "#ef4444", UrgencyColor(UrgencyOverdue))
	assert.Equal(t, "#10b981", UrgencyColor("something"))
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-01-15", "2024-01-15T10:30:00Z", "2024-01-15T10:30:00.123456", "2024-01-15T10:30:00+05:30"} {
		got, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, 15, got.Day(), s)
	}
	_, err := ParseDate("yesterday")
	assert.Error(t, err)
	_, err = ParseDate("  ")
	assert.Error(t, err)
}

func TestFormatDate(t *testing.T) {
	d := day("2024-01-05")
	assert.Equal(t, "January 05, 2024", FormatDate(d, ""))
	assert.Equal(t, "2024-01-05", FormatDate(d, DateISO))
	assert.Equal(t, "Invalid date", FormatDate(time.Time{}, DateISO))
}

func TestDueText(t *testing.T) {
	now := day("2024-03-10")
	assert.Equal(t, "2 days overdue", DueText(day("2024-03-08"), now))
	assert.Equal(t, "Due today", DueText(now, now))
	assert.Equal(t, "Due tomorrow", DueText(day("2024-03-11"), now))
	assert.Equal(t, "5 days left", DueText(day("2024-03-15"), now))
}

func TestFormatChatTimestamp(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Just now", FormatChatTimestamp(now.Add(-30*time.Second), now))
	assert.Equal(t, "5m ago", FormatChatTimestamp(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", FormatChatTimestamp(now.Add(-3*time.Hour), now))
	assert.Equal(t, "Jun 18", FormatChatTimestamp(now.Add(-48*time.Hour), now))
}
