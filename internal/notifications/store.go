package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the pgx-backed SubscriberStore. All queries run through prepared
// statements registered on the shared pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store on the shared connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ListPushSubscribers returns every push-enabled subscriber device, joined
// with the subscriber's notification preferences.
func (s *Store) ListPushSubscribers(ctx context.Context) ([]Subscriber, error) {
	rows, err := s.pool.Query(ctx, "push_subscribers")
	if err != nil {
		return nil, fmt.Errorf("list push subscribers: %w", err)
	}
	defer rows.Close()

	var subs []Subscriber
	for rows.Next() {
		var (
			sub       Subscriber
			notifTime pgtype.Time
		)
		if err := rows.Scan(
			&sub.ID, &sub.DeviceID, &sub.Endpoint, &sub.SendWithNotifications,
			&sub.Keywords, &sub.NotificationDayBefore, &notifTime, &sub.Email,
		); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		if notifTime.Valid {
			sub.NotificationTime = time.Duration(notifTime.Microseconds) * time.Microsecond
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ListSentUIDs returns the dedup ledger for one subscriber device.
func (s *Store) ListSentUIDs(ctx context.Context, subID int, deviceID string) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, "sent_push_uids", subID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("list sent uids: %w", err)
	}
	defer rows.Close()

	sent := make(map[string]struct{})
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan sent uid: %w", err)
		}
		sent[uid] = struct{}{}
	}
	return sent, rows.Err()
}

// RecordSent appends one (subscriber, device, event) triple to the dedup
// ledger. Called only after the backend confirmed delivery.
func (s *Store) RecordSent(ctx context.Context, subID int, deviceID, uid string) error {
	if _, err := s.pool.Exec(ctx, "insert_push_sent", subID, uid, deviceID); err != nil {
		return fmt.Errorf("record sent: %w", err)
	}
	return nil
}
