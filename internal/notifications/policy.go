package notifications

import (
	"time"

	"github.com/fermicalendar/notifier/internal/calendar"
)

const day = 24 * time.Hour

// Decide applies the notification policy for one subscriber evaluation.
// Pure function of (now, preferences, bucketed events); performs no I/O.
//
// Scheduled mode (SendWithNotifications): inside the daily window
// [notification_time, notification_time+grace] the decision is Daily;
// outside it, Last-Minute. All window comparisons use time of day only,
// consistent with once-per-day semantics. The outside-window branch does
// not distinguish before the window from after it when
// NotificationDayBefore is set; that asymmetry is inherited from the
// deployed behavior and kept as a single explicit branch.
//
// Immediate mode: any today/tomorrow event yields a Last-Minute decision.
func Decide(now time.Time, sub Subscriber, today, tomorrow []calendar.Event) Decision {
	if !sub.SendWithNotifications {
		if len(today)+len(tomorrow) > 0 {
			return Decision{Kind: DecisionLastMinute, Events: concat(today, tomorrow)}
		}
		return Decision{Kind: DecisionNone}
	}

	nowClock := clockOf(now)
	deadlineClock := (sub.NotificationTime + graceWindow) % day

	if sub.NotificationTime <= nowClock && nowClock <= deadlineClock {
		// Daily window. With day-before enabled the summary goes out even
		// when empty, so an event inserted during the grace window is still
		// covered by this cycle.
		if sub.NotificationDayBefore {
			return Decision{Kind: DecisionDaily, Events: concat(today, tomorrow)}
		}
		if len(today) > 0 {
			return Decision{Kind: DecisionDaily, Events: today}
		}
		return Decision{Kind: DecisionNone}
	}

	// Outside the daily window.
	if sub.NotificationDayBefore {
		if nowClock > deadlineClock {
			return Decision{Kind: DecisionLastMinute, Events: concat(today, tomorrow)}
		}
		if len(today) > 0 {
			return Decision{Kind: DecisionLastMinute, Events: today}
		}
		return Decision{Kind: DecisionNone}
	}
	if len(today) > 0 && nowClock > deadlineClock {
		return Decision{Kind: DecisionLastMinute, Events: today}
	}
	return Decision{Kind: DecisionNone}
}

// clockOf returns the time of day as an offset from midnight.
func clockOf(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}

func concat(a, b []calendar.Event) []calendar.Event {
	out := make([]calendar.Event, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
