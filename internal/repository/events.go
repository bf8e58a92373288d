package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// InsertSubscriptionEventParams are the parameters for InsertSubscriptionEvent.
type InsertSubscriptionEventParams struct {
	UserID     uuid.UUID
	EventType  string
	Tier       string
	TierExpiry sql.NullTime
}

// InsertSubscriptionEvent appends one audit log entry for a tier transition.
func (q *Queries) InsertSubscriptionEvent(ctx context.Context, arg InsertSubscriptionEventParams) error {
	const query = `
		INSERT INTO subscription_events (user_id, event_type, tier, tier_expiry)
		VALUES ($1, $2, $3, $4)`
	_, err := q.db.ExecContext(ctx, query, arg.UserID, arg.EventType, arg.Tier, arg.TierExpiry)
	return err
}

// ListSubscriptionEventsByUser returns a user's audit trail, newest first.
func (q *Queries) ListSubscriptionEventsByUser(ctx context.Context, userID uuid.UUID) ([]SubscriptionEvent, error) {
	const query = `
		SELECT id, user_id, event_type, tier, tier_expiry, created_at
		FROM subscription_events WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := q.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptionEvents(rows)
}

// ListRecentSubscriptionEvents returns the most recent audit entries across
// all users (admin dashboard).
func (q *Queries) ListRecentSubscriptionEvents(ctx context.Context, limit int32) ([]SubscriptionEvent, error) {
	const query = `
		SELECT id, user_id, event_type, tier, tier_expiry, created_at
		FROM subscription_events
		ORDER BY created_at DESC
		LIMIT $1`
	rows, err := q.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptionEvents(rows)
}

func scanSubscriptionEvents(rows *sql.Rows) ([]SubscriptionEvent, error) {
	var out []SubscriptionEvent
	for rows.Next() {
		var e SubscriptionEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.EventType, &e.Tier, &e.TierExpiry, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
