package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// TimeRange is a half-open [Start, End) period. A zero TimeRange covers all time.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the range is unbounded.
func (tr TimeRange) IsZero() bool {
	return tr.Start.IsZero() && tr.End.IsZero()
}

// Contains reports whether t falls inside the range.
func (tr TimeRange) Contains(t time.Time) bool {
	if !tr.Start.IsZero() && t.Before(tr.Start) {
		return false
	}
	if !tr.End.IsZero() && !t.Before(tr.End) {
		return false
	}
	return true
}

// WeekRangeFrom returns the Monday-to-Monday week containing ref, shifted by
// offset weeks.
func WeekRangeFrom(ref time.Time, offset int) TimeRange {
	weekday := int(ref.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday is 7 (ISO 8601)
	}
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	start := day.AddDate(0, 0, -weekday+1+offset*7)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 7)}
}

// MonthRangeFrom returns the calendar month containing ref, shifted by offset
// months.
func MonthRangeFrom(ref time.Time, offset int) TimeRange {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location()).AddDate(0, offset, 0)
	return TimeRange{Start: start, End: start.AddDate(0, 1, 0)}
}

// ParsePeriod parses the period names accepted by the stats endpoint:
// "all", "week", "last-week", "month", "last-month", or "<n>d" for the last n days.
func ParsePeriod(period string, now time.Time) (TimeRange, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	switch p {
	case "", "all":
		return TimeRange{}, nil
	case "week":
		return WeekRangeFrom(now, 0), nil
	case "last-week":
		return WeekRangeFrom(now, -1), nil
	case "month":
		return MonthRangeFrom(now, 0), nil
	case "last-month":
		return MonthRangeFrom(now, -1), nil
	}

	var days int
	if _, err := fmt.Sscanf(p, "%dd", &days); err == nil && days > 0 && fmt.Sprintf("%dd", days) == p {
		return TimeRange{Start: now.AddDate(0, 0, -days), End: now.Add(time.Nanosecond)}, nil
	}
	return TimeRange{}, fmt.Errorf("unknown period %q", period)
}

// FormatPeriod returns a human-readable description of the range.
func (tr TimeRange) FormatPeriod() string {
	if tr.IsZero() {
		return "all time"
	}
	start := tr.Start.Format("2006-01-02")
	end := tr.End.Add(-time.Nanosecond).Format("2006-01-02") // End is exclusive
	return fmt.Sprintf("%s to %s", start, end)
}

// EntriesAddedIn keeps the entries created inside tr.
func EntriesAddedIn(entries []models.CollectionEntry, tr TimeRange) []models.CollectionEntry {
	if tr.IsZero() {
		return entries
	}
	out := make([]models.CollectionEntry, 0, len(entries))
	for _, e := range entries {
		if tr.Contains(e.CreatedAt) {
			out = append(out, e)
		}
	}
	return out
}
