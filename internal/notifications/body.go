package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/fermicalendar/notifier/internal/calendar"
)

// compactDate is the short day format used in bodies (no year).
const compactDate = "02/01"

// EventBody renders a human-readable notification line for one event from
// whichever start/end fields resolved.
//
// Priority: same-day (or end unknown) → day label plus times; different
// start/end days → compact date(-time) range; only an end known → day label
// on the end; nothing resolvable → bare summary.
func EventBody(ev calendar.Event, now time.Time, loc *time.Location) string {
	start := ev.StartDayTime(loc)
	end := ev.EndDayTime(loc)
	summary := strings.TrimSpace(ev.Summary)

	today := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 0, 0, 0, 0, loc)
	tomorrow := today.AddDate(0, 0, 1)

	switch {
	case start.HasDate() && (!end.HasDate() || end.Date.Equal(start.Date)):
		when := dayLabel(start.Date, today, tomorrow)
		switch {
		case start.Clock != "" && end.Clock != "":
			return fmt.Sprintf("%s %s - %s: %s", when, start.Clock, end.Clock, summary)
		case start.Clock != "":
			return fmt.Sprintf("%s %s: %s", when, start.Clock, summary)
		default:
			return fmt.Sprintf("%s: %s", when, summary)
		}

	case start.HasDate() && end.HasDate():
		return fmt.Sprintf("%s - %s: %s", dateTimeLabel(start), dateTimeLabel(end), summary)

	case end.HasDate():
		when := dayLabel(end.Date, today, tomorrow)
		if end.Clock != "" {
			return fmt.Sprintf("%s %s: %s", when, end.Clock, summary)
		}
		return fmt.Sprintf("%s: %s", when, summary)

	case start.Clock != "":
		return fmt.Sprintf("%s: %s", start.Clock, summary)

	default:
		return summary
	}
}

// dayLabel names a date relative to today: Oggi, Domani, or DD/MM.
func dayLabel(date, today, tomorrow time.Time) string {
	switch {
	case date.Equal(today):
		return "Oggi"
	case date.Equal(tomorrow):
		return "Domani"
	default:
		return date.Format(compactDate)
	}
}

// dateTimeLabel renders one endpoint of a multi-day range.
func dateTimeLabel(dt calendar.DayTime) string {
	if dt.Clock != "" {
		return dt.Date.Format(compactDate) + " " + dt.Clock
	}
	return dt.Date.Format(compactDate)
}

// DailyPayload builds the single daily-summary payload. More than one event
// renders an aggregate count; exactly one renders the detailed body.
func DailyPayload(events []calendar.Event, now time.Time, loc *time.Location) (title, body, url string) {
	count := len(events)
	noun := "eventi"
	if count == 1 {
		noun = "evento"
	}
	title = fmt.Sprintf("Daily Notification (%d %s)", count, noun)

	if count == 1 {
		return title, EventBody(events[0], now, loc), eventURL(events[0])
	}
	return title, fmt.Sprintf("Sono previsti %d eventi.", count), dashboardURL
}

// LastMinutePayload builds the payload for one last-minute event.
func LastMinutePayload(ev calendar.Event, now time.Time, loc *time.Location) (title, body, url string) {
	return lastMinuteTitle, EventBody(ev, now, loc), eventURL(ev)
}

func eventURL(ev calendar.Event) string {
	if ev.HTMLLink != "" {
		return ev.HTMLLink
	}
	return dashboardURL + "?id=" + ev.UID
}
