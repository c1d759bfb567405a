// Package reports computes date windows, search results and expense
// aggregates over tasks and expenses, and serves them over HTTP.
//
// Every function takes "now" explicitly. Calendar boundaries are computed in
// now's location, so callers decide the time zone.
package reports

import (
	"strings"
	"time"

	"github.com/ayush/daybook/internal/models"
)

// Filter names a calendar window relative to now.
type Filter string

const (
	FilterDay   Filter = "day"
	FilterWeek  Filter = "week"
	FilterMonth Filter = "month"
	FilterAll   Filter = "all"
)

// ParseFilter parses a filter query value. Empty input yields def.
func ParseFilter(s string, def Filter) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return def, nil
	case FilterDay, FilterWeek, FilterMonth, FilterAll:
		return f, nil
	default:
		return "", models.Invalid("filter", "Invalid filter %q: must be one of day, week, month, all", s)
	}
}

// Window is an inclusive time range. An unbounded window contains every instant.
type Window struct {
	Start   time.Time
	End     time.Time
	Bounded bool
}

// Contains reports whether t lies inside w, both ends included.
func (w Window) Contains(t time.Time) bool {
	if !w.Bounded {
		return true
	}
	return !t.Before(w.Start) && !t.After(w.End)
}

// WindowFor returns the calendar window of f around now. Weeks start on Monday.
func WindowFor(f Filter, now time.Time) Window {
	switch f {
	case FilterDay:
		start := startOfDay(now)
		return Window{Start: start, End: endOf(start, 0, 0, 1), Bounded: true}
	case FilterWeek:
		start := startOfWeek(now)
		return Window{Start: start, End: endOf(start, 0, 0, 7), Bounded: true}
	case FilterMonth:
		y, m, _ := now.Date()
		start := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
		return Window{Start: start, End: endOf(start, 0, 1, 0), Bounded: true}
	default:
		return Window{}
	}
}

// Dated is anything with a calendar date.
type Dated interface {
	DateOf() time.Time
}

// FilterByDate keeps the records inside f's window, in input order.
func FilterByDate[T Dated](records []T, f Filter, now time.Time) []T {
	w := WindowFor(f, now)
	out := make([]T, 0, len(records))
	for _, r := range records {
		if w.Contains(r.DateOf()) {
			out = append(out, r)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// weekdayIndex is 0 for Monday through 6 for Sunday.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func startOfWeek(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, -weekdayIndex(t))
}

// endOf is the last instant before start shifted by the given calendar offset.
func endOf(start time.Time, years, months, days int) time.Time {
	return start.AddDate(years, months, days).Add(-time.Nanosecond)
}
