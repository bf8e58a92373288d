package repository

import (
	"context"

	"github.com/google/uuid"
)

// InsertNotificationParams are the parameters for InsertNotification.
type InsertNotificationParams struct {
	UserID   uuid.UUID
	Message  string
	Severity string
}

// InsertNotification appends a user-visible notification.
func (q *Queries) InsertNotification(ctx context.Context, arg InsertNotificationParams) error {
	const query = `
		INSERT INTO notifications (user_id, message, severity)
		VALUES ($1, $2, $3)`
	_, err := q.db.ExecContext(ctx, query, arg.UserID, arg.Message, arg.Severity)
	return err
}

// ListNotificationsByUserParams are the parameters for ListNotificationsByUser.
type ListNotificationsByUserParams struct {
	UserID uuid.UUID
	Limit  int32
}

// ListNotificationsByUser returns a user's notifications, newest first.
func (q *Queries) ListNotificationsByUser(ctx context.Context, arg ListNotificationsByUserParams) ([]Notification, error) {
	const query = `
		SELECT id, user_id, message, severity, read_at, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := q.db.QueryContext(ctx, query, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Severity, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationReadParams are the parameters for MarkNotificationRead.
type MarkNotificationReadParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

// MarkNotificationRead stamps a notification as read. Scoped by user so a
// client can only mark its own notifications.
func (q *Queries) MarkNotificationRead(ctx context.Context, arg MarkNotificationReadParams) error {
	const query = `
		UPDATE notifications SET read_at = now()
		WHERE id = $1 AND user_id = $2 AND read_at IS NULL`
	_, err := q.db.ExecContext(ctx, query, arg.ID, arg.UserID)
	return err
}
