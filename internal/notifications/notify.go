// Package notifications decides, per subscriber device, whether and what to
// push for the current calendar state, and never delivers the same event to
// the same device twice.
//
// Pipeline: fetch events → per subscriber: keyword filter → drop already
// sent → bucket into today/tomorrow → policy decision → format → deliver →
// record sent on confirmed delivery.
package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/fermicalendar/notifier/internal/calendar"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// graceWindow is how long after the configured notification time the
	// daily summary may still go out.
	graceWindow = 15 * time.Minute

	lastMinuteTitle = "Nuova variazione dell'orario!"
	dashboardURL    = "/dashboard"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Subscriber is one push-capable destination: a subscriber/device pair.
// The dedup ledger is keyed by (ID, DeviceID), not ID alone.
type Subscriber struct {
	ID                    int
	DeviceID              string
	Endpoint              string
	SendWithNotifications bool // scheduled policy when true, immediate when false
	Keywords              []string
	NotificationDayBefore bool
	NotificationTime      time.Duration // civil time of day, offset from local midnight
	Email                 string        // display and logging only
}

// DecisionKind classifies the policy outcome for one subscriber evaluation.
type DecisionKind int

const (
	DecisionNone DecisionKind = iota
	DecisionDaily
	DecisionLastMinute
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionDaily:
		return "daily"
	case DecisionLastMinute:
		return "last-minute"
	default:
		return "none"
	}
}

// Decision is the policy output the orchestrator turns into deliveries.
type Decision struct {
	Kind   DecisionKind
	Events []calendar.Event
}

// SendResult classifies a delivery attempt.
type SendResult int

const (
	// SendTransient — retryable failure; the next pass retries the event.
	// The zero value, so an error-path result never counts as delivered.
	SendTransient SendResult = iota
	// SendRejected — the destination is permanently invalid; stop further
	// sends to this endpoint for the rest of the pass.
	SendRejected
	// SendOK — the backend confirmed delivery; sent state may be recorded.
	SendOK
)

// --------------------------------------------------------------------------
// Collaborator contracts
// --------------------------------------------------------------------------

// EventSource produces the event list for one pass.
type EventSource interface {
	Fetch(ctx context.Context) ([]calendar.Event, error)
}

// SubscriberStore is the subscriber and dedup-ledger persistence contract.
type SubscriberStore interface {
	ListPushSubscribers(ctx context.Context) ([]Subscriber, error)
	ListSentUIDs(ctx context.Context, subID int, deviceID string) (map[string]struct{}, error)
	RecordSent(ctx context.Context, subID int, deviceID, uid string) error
}

// Delivery is the outbound push backend contract.
type Delivery interface {
	Notify(ctx context.Context, endpoint, title, body, url string) (SendResult, error)
}

// AuditSink records pass milestones and failures for operators. Implemented
// by DBAudit against the shared pool; NopAudit for dry runs and tests.
type AuditSink interface {
	Record(ctx context.Context, kind, message string)
}

// --------------------------------------------------------------------------
// Run result
// --------------------------------------------------------------------------

// RunResult tracks counts and errors from one dispatch pass.
type RunResult struct {
	EventsFetched int
	Subscribers   int
	Notified      int
	Errors        []string
	SetupFailed   bool
	Duration      time.Duration
}

// AddErrorf records a formatted error message.
func (r *RunResult) AddErrorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the pass.
func (r *RunResult) Summary() string {
	return fmt.Sprintf("events=%d subscribers=%d notified=%d errors=%d",
		r.EventsFetched, r.Subscribers, r.Notified, len(r.Errors))
}
