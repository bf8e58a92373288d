package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// IncrementUsageCounterParams are the parameters for IncrementUsageCounter.
type IncrementUsageCounterParams struct {
	UserID    uuid.UUID
	Kind      string
	PeriodKey string
}

// IncrementUsageCounter bumps the counter for the given period and returns
// the new value. The upsert is atomic, so concurrent increments from two
// sessions of the same account both land.
func (q *Queries) IncrementUsageCounter(ctx context.Context, arg IncrementUsageCounterParams) (int64, error) {
	const query = `
		INSERT INTO usage_counters (user_id, kind, period_key, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, kind, period_key)
		DO UPDATE SET count = usage_counters.count + 1, updated_at = now()
		RETURNING count`
	var count int64
	err := q.db.QueryRowContext(ctx, query, arg.UserID, arg.Kind, arg.PeriodKey).Scan(&count)
	return count, err
}

// GetUsageCounterParams are the parameters for GetUsageCounter.
type GetUsageCounterParams struct {
	UserID    uuid.UUID
	Kind      string
	PeriodKey string
}

// GetUsageCounter returns the counter value for a period. A missing row
// reads as zero.
func (q *Queries) GetUsageCounter(ctx context.Context, arg GetUsageCounterParams) (int64, error) {
	const query = `
		SELECT count FROM usage_counters
		WHERE user_id = $1 AND kind = $2 AND period_key = $3`
	var count int64
	err := q.db.QueryRowContext(ctx, query, arg.UserID, arg.Kind, arg.PeriodKey).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

// ListUsageCountersByUser returns a user's counters, newest period first,
// for historical display.
func (q *Queries) ListUsageCountersByUser(ctx context.Context, userID uuid.UUID) ([]UsageCounter, error) {
	const query = `
		SELECT user_id, kind, period_key, count, updated_at
		FROM usage_counters
		WHERE user_id = $1
		ORDER BY period_key DESC, kind ASC`
	rows, err := q.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageCounter
	for rows.Next() {
		var c UsageCounter
		if err := rows.Scan(&c.UserID, &c.Kind, &c.PeriodKey, &c.Count, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
