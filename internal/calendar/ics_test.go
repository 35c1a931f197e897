package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const icsFixture = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//fermicalendar//notifier//IT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:ev-timed\r\n" +
	"SUMMARY:Lab opens\r\n" +
	"DTSTART:20240310T080000Z\r\n" +
	"DTEND:20240310T100000Z\r\n" +
	"URL:https://cal/ev-timed\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:ev-allday\r\n" +
	"SUMMARY:Assemblea\r\n" +
	"DTSTART;VALUE=DATE:20240311\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"SUMMARY:No uid\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestICSSourceFetch(t *testing.T) {
	loc := romeLoc(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(icsFixture))
	}))
	defer srv.Close()

	src := NewICSSource(srv.URL, loc, 5*time.Second, nil)
	events, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2, "the UID-less VEVENT is skipped")

	timed := events[0]
	assert.Equal(t, "ev-timed", timed.UID)
	assert.Equal(t, "Lab opens", timed.Summary)
	assert.Equal(t, "https://cal/ev-timed", timed.HTMLLink)
	assert.Empty(t, timed.StartDate)

	// 08:00 UTC is 09:00 in Rome that day.
	start, ok := ResolveStart(timed, loc)
	require.True(t, ok)
	assert.True(t, start.Equal(time.Date(2024, 3, 10, 9, 0, 0, 0, loc)))

	allDay := events[1]
	assert.Equal(t, "ev-allday", allDay.UID)
	assert.Equal(t, "2024-03-11", allDay.StartDate)
	assert.Empty(t, allDay.StartDateTime)
}

func TestICSSourceFetchErrors(t *testing.T) {
	loc := romeLoc(t)

	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		src := NewICSSource(srv.URL, loc, 5*time.Second, nil)
		_, err := src.Fetch(context.Background())
		assert.Error(t, err)
	})

	t.Run("unparseable body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("not ics\n", 3)))
		}))
		defer srv.Close()

		src := NewICSSource(srv.URL, loc, 5*time.Second, nil)
		_, err := src.Fetch(context.Background())
		assert.Error(t, err)
	})
}
