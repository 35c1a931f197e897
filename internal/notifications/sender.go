package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Sends are paced so a pass with many last-minute events cannot hammer the
// push backend.
const notifyBurst = 5

// PushSender delivers notifications via the backend's push notify endpoint.
type PushSender struct {
	httpClient *http.Client
	notifyURL  string
	apiKey     string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewPushSender creates a delivery client for the given backend base URL.
// apiKey may be empty when the backend does not require auth.
func NewPushSender(backendURL, apiKey string, timeout time.Duration, logger *slog.Logger) *PushSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &PushSender{
		httpClient: &http.Client{Timeout: timeout},
		notifyURL:  backendURL + "/user/push/notify",
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(10), notifyBurst),
		logger:     logger,
	}
}

// notifyPayload is the backend's push request body.
type notifyPayload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	URL      string `json:"url"`
	Endpoint string `json:"endpoint"`
}

// Notify posts one notification. HTTP 200 confirms delivery; 404 and 410
// mean the endpoint is gone for good; anything else is retryable.
func (s *PushSender) Notify(ctx context.Context, endpoint, title, body, url string) (SendResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return SendTransient, fmt.Errorf("rate limit wait: %w", err)
	}

	raw, err := json.Marshal(notifyPayload{Title: title, Body: body, URL: url, Endpoint: endpoint})
	if err != nil {
		return SendTransient, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.notifyURL, bytes.NewReader(raw))
	if err != nil {
		return SendTransient, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return SendTransient, fmt.Errorf("notify POST: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		s.logger.Debug("Notify POST succeeded", "title", title)
		return SendOK, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return SendRejected, fmt.Errorf("endpoint rejected: status %d", resp.StatusCode)
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return SendTransient, fmt.Errorf("notify POST failed: status %d: %s", resp.StatusCode, snippet)
	}
}
