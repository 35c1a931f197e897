// Package calendar provides the event model, the spreadsheet event source,
// and the pure filtering/classification functions the dispatch pipeline runs
// on every pass.
package calendar

import (
	"strings"
	"time"
)

// Layouts accepted for event date and timestamp fields.
const (
	isoDateLayout   = "2006-01-02"
	civilDateLayout = "02/01/2006"
	naiveISOLayout  = "2006-01-02T15:04:05"
	clockLayout     = "15:04"
)

// Event is one calendar occurrence as fetched from the spreadsheet export.
// Date and timestamp fields are kept raw; resolution is lazy and defensive
// so one malformed event never aborts a pass.
type Event struct {
	UID           string
	Summary       string
	StartDateTime string // ISO-8601 timestamp, or an already-formatted HH:MM
	StartDate     string // YYYY-MM-DD or DD/MM/YYYY
	EndDateTime   string
	EndDate       string
	HTMLLink      string
}

// DayTime is what could be resolved from an event's start or end fields.
// Date is normalized to local midnight; a zero Date means no date resolved.
// Clock is "HH:MM", empty when no time resolved.
type DayTime struct {
	Date  time.Time
	Clock string
}

// HasDate reports whether a calendar date was resolved.
func (d DayTime) HasDate() bool { return !d.Date.IsZero() }

// ResolveStart returns the event's start instant. Prefers the timestamped
// start; a naive timestamp is anchored in loc. Falls back to the all-day
// date at local midnight. ok is false when neither field parses.
func ResolveStart(ev Event, loc *time.Location) (time.Time, bool) {
	if s := strings.TrimSpace(ev.StartDateTime); s != "" && strings.Contains(s, "T") {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.In(loc), true
		}
		if t, err := time.ParseInLocation(naiveISOLayout, s, loc); err == nil {
			return t, true
		}
	}
	if d := strings.TrimSpace(ev.StartDate); d != "" {
		if t, err := time.ParseInLocation(isoDateLayout, d, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StartDayTime resolves the start fields for display: the calendar date and
// the wall-clock time, each independently optional.
func (ev Event) StartDayTime(loc *time.Location) DayTime {
	return resolveDayTime(ev.StartDateTime, ev.StartDate, loc)
}

// EndDayTime resolves the end fields for display.
func (ev Event) EndDayTime(loc *time.Location) DayTime {
	return resolveDayTime(ev.EndDateTime, ev.EndDate, loc)
}

// resolveDayTime accepts an ISO timestamp or a bare HH:MM in the dateTime
// field, and an ISO or DD/MM/YYYY date in the date field. The explicit date
// field wins for date resolution, matching the upstream export where an
// all-day row carries only the date column.
func resolveDayTime(dateTime, date string, loc *time.Location) DayTime {
	var out DayTime

	if s := strings.TrimSpace(dateTime); s != "" {
		if strings.Contains(s, "T") {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				t = t.In(loc)
				out.Clock = t.Format(clockLayout)
				out.Date = midnight(t, loc)
			} else if t, err := time.ParseInLocation(naiveISOLayout, s, loc); err == nil {
				out.Clock = t.Format(clockLayout)
				out.Date = midnight(t, loc)
			}
		} else if _, err := time.Parse(clockLayout, s); err == nil {
			out.Clock = s
		}
	}

	if d := strings.TrimSpace(date); d != "" {
		if t, err := time.ParseInLocation(isoDateLayout, d, loc); err == nil {
			out.Date = t
		} else if t, err := time.ParseInLocation(civilDateLayout, d, loc); err == nil {
			out.Date = t
		}
	}

	return out
}

// InWindow reports whether the event's resolved start lies in the 24-hour
// window beginning at dayStart. An unresolved start is never in any window.
func InWindow(ev Event, dayStart time.Time, loc *time.Location) bool {
	start, ok := ResolveStart(ev, loc)
	if !ok {
		return false
	}
	return !start.Before(dayStart) && start.Before(dayStart.Add(24*time.Hour))
}

// SplitTodayTomorrow buckets events into the local civil day containing now
// and the following one.
func SplitTodayTomorrow(events []Event, now time.Time, loc *time.Location) (today, tomorrow []Event) {
	todayStart := midnight(now.In(loc), loc)
	tomorrowStart := todayStart.Add(24 * time.Hour)
	for _, ev := range events {
		if InWindow(ev, todayStart, loc) {
			today = append(today, ev)
		}
		if InWindow(ev, tomorrowStart, loc) {
			tomorrow = append(tomorrow, ev)
		}
	}
	return today, tomorrow
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
