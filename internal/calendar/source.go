package calendar

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// The export script republishes the sheet at most every few minutes, so
// there is no point hitting it harder than this.
const fetchMinInterval = 10 * time.Second

// Column names in the spreadsheet CSV export.
const (
	colUID           = "uid"
	colSummary       = "summary"
	colStartDateTime = "start.dateTime"
	colStartDate     = "start.date"
	colEndDateTime   = "end.dateTime"
	colEndDate       = "end.date"
	colHTMLLink      = "htmlLink"
)

// SheetSource fetches events from a published-spreadsheet CSV export.
type SheetSource struct {
	httpClient *http.Client
	url        string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewSheetSource creates an event source for the given CSV export URL.
func NewSheetSource(url string, timeout time.Duration, logger *slog.Logger) *SheetSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &SheetSource{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		limiter:    rate.NewLimiter(rate.Every(fetchMinInterval), 1),
		logger:     logger,
	}
}

// Fetch downloads and parses the event list. Rows with missing or malformed
// fields are kept with whatever could be read; only transport-level failures
// return an error.
func (s *SheetSource) Fetch(ctx context.Context) ([]Event, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch events: unexpected status %d", resp.StatusCode)
	}

	events, err := parseCSV(resp.Body, s.logger)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Fetched events", "count", len(events))
	return events, nil
}

// parseCSV reads a header-mapped CSV stream into events. Ragged rows are
// tolerated; a row without a header match simply yields empty fields.
func parseCSV(r io.Reader, logger *slog.Logger) ([]Event, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows may be ragged

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var events []Event
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Debug("Skipping malformed CSV row", "error", err)
			continue
		}
		events = append(events, Event{
			UID:           field(row, colUID),
			Summary:       field(row, colSummary),
			StartDateTime: field(row, colStartDateTime),
			StartDate:     field(row, colStartDate),
			EndDateTime:   field(row, colEndDateTime),
			EndDate:       field(row, colEndDate),
			HTMLLink:      field(row, colHTMLLink),
		})
	}
	return events, nil
}
