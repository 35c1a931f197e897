package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fermicalendar/notifier/internal/calendar"
)

func TestEventBody(t *testing.T) {
	loc := romeLoc(t)
	now := time.Date(2024, 3, 10, 7, 30, 0, 0, loc)

	tests := []struct {
		name  string
		event calendar.Event
		want  string
	}{
		{
			name:  "all-day today",
			event: calendar.Event{Summary: "Exam", StartDate: "2024-03-10", EndDate: "2024-03-10"},
			want:  "Oggi: Exam",
		},
		{
			name:  "all-day tomorrow",
			event: calendar.Event{Summary: "Exam", StartDate: "2024-03-11"},
			want:  "Domani: Exam",
		},
		{
			name:  "all-day later date",
			event: calendar.Event{Summary: "Exam", StartDate: "2024-03-20"},
			want:  "20/03: Exam",
		},
		{
			name: "same day with start and end times",
			event: calendar.Event{
				Summary:       "Exam",
				StartDateTime: "2024-03-10T09:00:00+01:00",
				EndDateTime:   "2024-03-10T11:00:00+01:00",
			},
			want: "Oggi 09:00 - 11:00: Exam",
		},
		{
			name: "start time only",
			event: calendar.Event{
				Summary:       "Exam",
				StartDateTime: "2024-03-10T09:00:00+01:00",
			},
			want: "Oggi 09:00: Exam",
		},
		{
			name:  "multi-day range",
			event: calendar.Event{Summary: "Exam", StartDate: "2024-03-10", EndDate: "2024-03-12"},
			want:  "10/03 - 12/03: Exam",
		},
		{
			name: "multi-day range with times",
			event: calendar.Event{
				Summary:       "Gita",
				StartDateTime: "2024-03-10T08:00:00+01:00",
				EndDateTime:   "2024-03-12T18:00:00+01:00",
			},
			want: "10/03 08:00 - 12/03 18:00: Gita",
		},
		{
			name:  "only end known",
			event: calendar.Event{Summary: "Rientro", EndDate: "2024-03-11"},
			want:  "Domani: Rientro",
		},
		{
			name:  "bare clock without date",
			event: calendar.Event{Summary: "Exam", StartDateTime: "14:30"},
			want:  "14:30: Exam",
		},
		{
			name:  "nothing resolvable falls back to summary",
			event: calendar.Event{Summary: "Exam"},
			want:  "Exam",
		},
		{
			name:  "summary trimmed",
			event: calendar.Event{Summary: "  Exam  ", StartDate: "2024-03-10"},
			want:  "Oggi: Exam",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EventBody(tt.event, now, loc))
		})
	}
}

func TestDailyPayload(t *testing.T) {
	loc := romeLoc(t)
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, loc)

	t.Run("multiple events aggregate", func(t *testing.T) {
		events := []calendar.Event{{UID: "a"}, {UID: "b"}, {UID: "c"}}
		title, body, url := DailyPayload(events, now, loc)
		assert.Equal(t, "Daily Notification (3 eventi)", title)
		assert.Equal(t, "Sono previsti 3 eventi.", body)
		assert.Equal(t, "/dashboard", url)
	})

	t.Run("single event is detailed", func(t *testing.T) {
		events := []calendar.Event{{UID: "a", Summary: "Exam", StartDate: "2024-03-10", HTMLLink: "https://cal/a"}}
		title, body, url := DailyPayload(events, now, loc)
		assert.Equal(t, "Daily Notification (1 evento)", title)
		assert.Equal(t, "Oggi: Exam", body)
		assert.Equal(t, "https://cal/a", url)
	})

	t.Run("single event without link points at dashboard", func(t *testing.T) {
		events := []calendar.Event{{UID: "a", Summary: "Exam"}}
		_, _, url := DailyPayload(events, now, loc)
		assert.Equal(t, "/dashboard?id=a", url)
	})

	t.Run("empty summary uses zero count", func(t *testing.T) {
		title, body, _ := DailyPayload(nil, now, loc)
		assert.Equal(t, "Daily Notification (0 eventi)", title)
		assert.Equal(t, "Sono previsti 0 eventi.", body)
	})
}

func TestLastMinutePayload(t *testing.T) {
	loc := romeLoc(t)
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, loc)

	ev := calendar.Event{UID: "a", Summary: "Exam", StartDate: "2024-03-11"}
	title, body, url := LastMinutePayload(ev, now, loc)
	assert.Equal(t, "Nuova variazione dell'orario!", title)
	assert.Equal(t, "Domani: Exam", body)
	assert.Equal(t, "/dashboard?id=a", url)
}
