package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const userColumns = `id, email, password_hash, name, tier, tier_expiry,
	streak_count, last_active_date, stripe_customer_id, subscription_id,
	created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Tier, &u.TierExpiry,
		&u.StreakCount, &u.LastActiveDate, &u.StripeCustomerID, &u.SubscriptionID,
		&u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// CreateUserParams are the parameters for CreateUser.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Name         sql.NullString
}

// CreateUser inserts a new user on the free tier.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	const query = `
		INSERT INTO users (email, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns
	return scanUser(q.db.QueryRowContext(ctx, query, arg.Email, arg.PasswordHash, arg.Name))
}

// GetUserByID fetches a user by primary key.
func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(q.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail fetches a user by email (stored lowercased).
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(q.db.QueryRowContext(ctx, query, email))
}

// GetUserByStripeCustomerID fetches a user by their Stripe customer ID.
func (q *Queries) GetUserByStripeCustomerID(ctx context.Context, customerID string) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`
	return scanUser(q.db.QueryRowContext(ctx, query, customerID))
}

// UpdateUserStripeCustomerParams are the parameters for UpdateUserStripeCustomer.
type UpdateUserStripeCustomerParams struct {
	ID               uuid.UUID
	StripeCustomerID sql.NullString
}

// UpdateUserStripeCustomer saves the Stripe customer ID for a user.
func (q *Queries) UpdateUserStripeCustomer(ctx context.Context, arg UpdateUserStripeCustomerParams) error {
	const query = `
		UPDATE users SET stripe_customer_id = $2, updated_at = now()
		WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, arg.ID, arg.StripeCustomerID)
	return err
}

// UpdateUserSubscriptionParams are the parameters for UpdateUserSubscription.
// Tier and TierExpiry always change together; there is no statement that
// writes one without the other.
type UpdateUserSubscriptionParams struct {
	ID             uuid.UUID
	Tier           string
	TierExpiry     sql.NullTime
	SubscriptionID sql.NullString
}

// UpdateUserSubscription writes the user's tier, expiry, and subscription ID
// in a single statement.
func (q *Queries) UpdateUserSubscription(ctx context.Context, arg UpdateUserSubscriptionParams) error {
	const query = `
		UPDATE users
		SET tier = $2, tier_expiry = $3, subscription_id = $4, updated_at = now()
		WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, arg.ID, arg.Tier, arg.TierExpiry, arg.SubscriptionID)
	return err
}

// UpdateUserStreakParams are the parameters for UpdateUserStreak.
type UpdateUserStreakParams struct {
	ID             uuid.UUID
	StreakCount    int64
	LastActiveDate sql.NullTime
}

// UpdateUserStreak persists the streak pair. The pair is the sole
// cross-session source of truth for streak state.
func (q *Queries) UpdateUserStreak(ctx context.Context, arg UpdateUserStreakParams) error {
	const query = `
		UPDATE users
		SET streak_count = $2, last_active_date = $3, updated_at = now()
		WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, arg.ID, arg.StreakCount, arg.LastActiveDate)
	return err
}

// UpdateUserPasswordParams are the parameters for UpdateUserPassword.
type UpdateUserPasswordParams struct {
	ID           uuid.UUID
	PasswordHash string
}

// UpdateUserPassword replaces the user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	const query = `
		UPDATE users SET password_hash = $2, updated_at = now()
		WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, arg.ID, arg.PasswordHash)
	return err
}

// LeaderboardRow is one entry of the streak leaderboard.
type LeaderboardRow struct {
	UserID      uuid.UUID
	Name        sql.NullString
	Email       string
	StreakCount int64
}

// ListTopStreaks returns the highest current streaks, longest first.
func (q *Queries) ListTopStreaks(ctx context.Context, limit int32) ([]LeaderboardRow, error) {
	const query = `
		SELECT id, name, email, streak_count
		FROM users
		WHERE streak_count > 0
		ORDER BY streak_count DESC, updated_at ASC
		LIMIT $1`
	rows, err := q.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardRow
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.UserID, &r.Name, &r.Email, &r.StreakCount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TierCountRow is one row of the per-tier user count (admin overview).
type TierCountRow struct {
	Tier  string
	Count int64
}

// CountUsersByTier returns the number of users on each tier.
func (q *Queries) CountUsersByTier(ctx context.Context) ([]TierCountRow, error) {
	const query = `
		SELECT tier, count(*)
		FROM users
		GROUP BY tier
		ORDER BY tier`
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TierCountRow
	for rows.Next() {
		var r TierCountRow
		if err := rows.Scan(&r.Tier, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListExpiredPaidUsers returns users on a paid tier whose expiry has passed.
// Used by the periodic expiry sweep job.
func (q *Queries) ListExpiredPaidUsers(ctx context.Context, limit int32) ([]User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE tier <> 'free' AND tier_expiry IS NOT NULL AND tier_expiry < now()
		LIMIT $1`
	rows, err := q.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
