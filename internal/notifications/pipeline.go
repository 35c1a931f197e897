package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fermicalendar/notifier/internal/calendar"
)

// Deps carries the collaborators for one dispatch pass.
type Deps struct {
	Source   EventSource
	Store    SubscriberStore
	Delivery Delivery
	Audit    AuditSink
	Location *time.Location
	DryRun   bool // decide and format, but skip delivery and ledger writes
	Logger   *slog.Logger
}

// Run executes one full dispatch pass at the reference instant now.
//
// A fetch failure degrades to a zero-event pass. A subscriber-store failure
// before the loop aborts the pass; the external scheduler retries next
// cycle. Inside the loop every failure is isolated to its subscriber.
func Run(ctx context.Context, deps *Deps, now time.Time) RunResult {
	start := time.Now()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	audit := deps.Audit
	if audit == nil {
		audit = NopAudit{}
	}
	now = now.In(deps.Location)

	var result RunResult

	events, err := deps.Source.Fetch(ctx)
	if err != nil {
		// Zero events means every subscriber evaluation is a no-op, which
		// is the required degrade for an unreachable source.
		logger.Error("Event fetch failed, continuing with empty pass", "error", err)
		audit.Record(ctx, AuditError, fmt.Sprintf("event fetch failed: %v", err))
		result.AddErrorf("fetch events: %v", err)
		events = nil
	}
	result.EventsFetched = len(events)

	subs, err := deps.Store.ListPushSubscribers(ctx)
	if err != nil {
		logger.Error("Listing subscribers failed, aborting pass", "error", err)
		audit.Record(ctx, AuditError, fmt.Sprintf("list subscribers failed: %v", err))
		result.AddErrorf("list subscribers: %v", err)
		result.SetupFailed = true
		result.Duration = time.Since(start)
		return result
	}
	result.Subscribers = len(subs)

	for _, sub := range subs {
		if ctx.Err() != nil {
			result.AddErrorf("pass interrupted: %v", ctx.Err())
			break
		}
		processSubscriber(ctx, deps, logger, audit, sub, events, now, &result)
	}

	result.Duration = time.Since(start)
	logger.Info("Dispatch pass complete", "summary", result.Summary(),
		"duration", result.Duration.Round(time.Millisecond))
	audit.Record(ctx, AuditSuccess, "dispatch pass complete: "+result.Summary())
	return result
}

func processSubscriber(
	ctx context.Context,
	deps *Deps,
	logger *slog.Logger,
	audit AuditSink,
	sub Subscriber,
	events []calendar.Event,
	now time.Time,
	result *RunResult,
) {
	logger.Debug("Evaluating subscriber",
		"id", sub.ID, "device", sub.DeviceID, "keywords", sub.Keywords)

	sent, err := deps.Store.ListSentUIDs(ctx, sub.ID, sub.DeviceID)
	if err != nil {
		logger.Error("Sent-ledger read failed, skipping subscriber",
			"id", sub.ID, "device", sub.DeviceID, "error", err)
		result.AddErrorf("subscriber %d/%s: sent uids: %v", sub.ID, sub.DeviceID, err)
		return
	}

	fresh := calendar.RemoveSent(calendar.FilterByKeyword(events, sub.Keywords), sent)
	today, tomorrow := calendar.SplitTodayTomorrow(fresh, now, deps.Location)
	logger.Debug("Subscriber events classified",
		"id", sub.ID, "new", len(fresh), "today", len(today), "tomorrow", len(tomorrow))

	decision := Decide(now, sub, today, tomorrow)
	switch decision.Kind {
	case DecisionDaily:
		deliverDaily(ctx, deps, logger, audit, sub, decision.Events, now, result)
	case DecisionLastMinute:
		deliverLastMinute(ctx, deps, logger, audit, sub, decision.Events, now, result)
	default:
		logger.Debug("Nothing to send", "id", sub.ID, "device", sub.DeviceID)
	}
}

// deliverDaily sends the single daily-summary payload and records every
// included uid once delivery is confirmed.
func deliverDaily(
	ctx context.Context,
	deps *Deps,
	logger *slog.Logger,
	audit AuditSink,
	sub Subscriber,
	events []calendar.Event,
	now time.Time,
	result *RunResult,
) {
	title, body, url := DailyPayload(events, now, deps.Location)

	if deps.DryRun {
		logger.Info("Dry run: daily notification",
			"id", sub.ID, "device", sub.DeviceID, "title", title, "body", body)
		result.Notified++
		return
	}

	res, err := deps.Delivery.Notify(ctx, sub.Endpoint, title, body, url)
	switch res {
	case SendOK:
		for _, ev := range events {
			if ev.UID == "" {
				continue
			}
			if err := deps.Store.RecordSent(ctx, sub.ID, sub.DeviceID, ev.UID); err != nil {
				logger.Error("Sent-ledger write failed",
					"id", sub.ID, "device", sub.DeviceID, "uid", ev.UID, "error", err)
				result.AddErrorf("subscriber %d/%s: record sent %s: %v", sub.ID, sub.DeviceID, ev.UID, err)
			}
		}
		result.Notified++
		logger.Info("Sent daily notification", "email", sub.Email, "events", len(events))
		audit.Record(ctx, AuditInfo,
			fmt.Sprintf("[>] Sent Daily Notification (%d) to %s", len(events), sub.Email))
	case SendRejected:
		logger.Warn("Endpoint permanently rejected",
			"id", sub.ID, "device", sub.DeviceID, "error", err)
		audit.Record(ctx, AuditError,
			fmt.Sprintf("daily notification rejected for %s: %v", sub.Email, err))
	default:
		logger.Error("Daily notification failed", "email", sub.Email, "error", err)
		audit.Record(ctx, AuditError,
			fmt.Sprintf("[X] Error sending notification to %s: %v", sub.Email, err))
		result.AddErrorf("subscriber %d/%s: daily notify: %v", sub.ID, sub.DeviceID, err)
	}
}

// deliverLastMinute sends one payload per event. A permanent rejection halts
// the remaining sends for this subscriber only; a transient failure moves on
// to the next event and leaves the event unrecorded so the next pass retries.
func deliverLastMinute(
	ctx context.Context,
	deps *Deps,
	logger *slog.Logger,
	audit AuditSink,
	sub Subscriber,
	events []calendar.Event,
	now time.Time,
	result *RunResult,
) {
	delivered := 0
	for _, ev := range events {
		title, body, url := LastMinutePayload(ev, now, deps.Location)

		if deps.DryRun {
			logger.Info("Dry run: last-minute notification",
				"id", sub.ID, "device", sub.DeviceID, "uid", ev.UID, "body", body)
			delivered++
			continue
		}

		res, err := deps.Delivery.Notify(ctx, sub.Endpoint, title, body, url)
		switch res {
		case SendOK:
			if ev.UID != "" {
				if err := deps.Store.RecordSent(ctx, sub.ID, sub.DeviceID, ev.UID); err != nil {
					logger.Error("Sent-ledger write failed",
						"id", sub.ID, "device", sub.DeviceID, "uid", ev.UID, "error", err)
					result.AddErrorf("subscriber %d/%s: record sent %s: %v", sub.ID, sub.DeviceID, ev.UID, err)
				}
			}
			delivered++
		case SendRejected:
			logger.Warn("Endpoint permanently rejected, halting subscriber sends",
				"id", sub.ID, "device", sub.DeviceID, "error", err)
			audit.Record(ctx, AuditError,
				fmt.Sprintf("last-minute notification rejected for %s: %v", sub.Email, err))
			if delivered > 0 {
				result.Notified++
			}
			return
		default:
			logger.Error("Last-minute notification failed",
				"email", sub.Email, "uid", ev.UID, "error", err)
			audit.Record(ctx, AuditError,
				fmt.Sprintf("[X] Error sending push notification to %s: %v", sub.Email, err))
			result.AddErrorf("subscriber %d/%s: last-minute notify %s: %v", sub.ID, sub.DeviceID, ev.UID, err)
		}
	}

	if delivered > 0 {
		result.Notified++
		logger.Info("Sent last-minute notifications", "email", sub.Email, "events", delivered)
		audit.Record(ctx, AuditInfo,
			fmt.Sprintf("[>] Sent Last Minute Notification (%d) to %s", delivered, sub.Email))
	}
}
