package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"golang.org/x/time/rate"
)

// ICSSource fetches events from an iCalendar feed. Interchangeable with
// SheetSource for deployments whose calendar publishes ICS instead of a
// spreadsheet export.
type ICSSource struct {
	httpClient *http.Client
	url        string
	loc        *time.Location
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewICSSource creates an event source for the given ICS feed URL.
func NewICSSource(url string, loc *time.Location, timeout time.Duration, logger *slog.Logger) *ICSSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &ICSSource{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		loc:        loc,
		limiter:    rate.NewLimiter(rate.Every(fetchMinInterval), 1),
		logger:     logger,
	}
}

// Fetch downloads and parses the feed. A VEVENT that fails to parse is
// skipped; only transport or calendar-level failures return an error.
func (s *ICSSource) Fetch(ctx context.Context) ([]Event, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ICS feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch ICS feed: unexpected status %d", resp.StatusCode)
	}

	cal, err := ical.ParseCalendar(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse ICS feed: %w", err)
	}

	var events []Event
	for _, ve := range cal.Events() {
		ev, ok := s.fromVEvent(ve)
		if !ok {
			continue
		}
		events = append(events, ev)
	}

	s.logger.Debug("Fetched ICS events", "count", len(events))
	return events, nil
}

// fromVEvent maps one VEVENT onto the flat event shape the pipeline
// consumes. All-day components carry only the date fields, timed ones only
// the timestamp fields.
func (s *ICSSource) fromVEvent(ve *ical.VEvent) (Event, bool) {
	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		s.logger.Debug("Skipping VEVENT without UID")
		return Event{}, false
	}

	var ev Event
	ev.UID = uidProp.Value
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentProperty("URL")); p != nil {
		ev.HTMLLink = p.Value
	}

	allDay := false
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		allDay = !timedDtStart(p)
	}

	if start, err := ve.GetStartAt(); err == nil {
		if allDay {
			ev.StartDate = start.In(s.loc).Format(isoDateLayout)
		} else {
			ev.StartDateTime = start.In(s.loc).Format(time.RFC3339)
		}
	}
	if end, err := ve.GetEndAt(); err == nil {
		if allDay {
			ev.EndDate = end.In(s.loc).Format(isoDateLayout)
		} else {
			ev.EndDateTime = end.In(s.loc).Format(time.RFC3339)
		}
	}

	return ev, true
}

// timedDtStart reports whether DTSTART carries a time component.
func timedDtStart(p *ical.IANAProperty) bool {
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && vs[0] == "DATE" {
			return false
		}
	}
	return strings.Contains(p.Value, "T")
}
