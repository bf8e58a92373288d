package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// ApplySubscriptionChangeParams are the parameters for ApplySubscriptionChange.
type ApplySubscriptionChangeParams struct {
	UserID         uuid.UUID
	EventType      string
	Tier           string
	TierExpiry     sql.NullTime
	SubscriptionID sql.NullString
}

// ApplySubscriptionChange writes the user's new (tier, expiry) pair and the
// matching audit event in one transaction. Either both commit or neither
// does, so a user is never left mid-transition with the audit log
// disagreeing with their state.
func (s *Store) ApplySubscriptionChange(ctx context.Context, arg ApplySubscriptionChangeParams) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.Queries.WithTx(tx)

	if err := qtx.UpdateUserSubscription(ctx, UpdateUserSubscriptionParams{
		ID:             arg.UserID,
		Tier:           arg.Tier,
		TierExpiry:     arg.TierExpiry,
		SubscriptionID: arg.SubscriptionID,
	}); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	if err := qtx.InsertSubscriptionEvent(ctx, InsertSubscriptionEventParams{
		UserID:     arg.UserID,
		EventType:  arg.EventType,
		Tier:       arg.Tier,
		TierExpiry: arg.TierExpiry,
	}); err != nil {
		return fmt.Errorf("insert subscription event: %w", err)
	}

	return tx.Commit()
}
