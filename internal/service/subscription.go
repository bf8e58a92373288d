// Package service contains the business logic layer.
//
// Services orchestrate interactions between the repository, external APIs,
// and domain logic. They are responsible for:
// - Input validation
// - Business rule enforcement
// - Transaction coordination
// - Error translation (database errors -> domain errors)
//
// This file implements the subscription lifecycle: the tier transitions
// free -> {weekly, monthly} -> free, with an audit trail.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/metrics"
	"github.com/mindgrove-app/mindgrove/internal/notify"
	"github.com/mindgrove-app/mindgrove/internal/repository"
)

// =============================================================================
// Interface Definitions
// =============================================================================

// SubscriptionService manages tier transitions. Every transition commits the
// (tier, expiry) pair and its audit event atomically.
type SubscriptionService interface {
	// Upgrade moves a user onto a paid tier with the given expiry.
	// Logged as an "upgrade" audit event.
	Upgrade(ctx context.Context, userID uuid.UUID, tier domain.Tier, expiry time.Time, subscriptionID string) error

	// Renew extends a user's paid tier to a new expiry.
	// Same transition as Upgrade but logged as "renewed".
	Renew(ctx context.Context, userID uuid.UUID, tier domain.Tier, newExpiry time.Time, subscriptionID string) error

	// DowngradeExpired moves a user back to the free tier and clears the
	// expiry. Idempotent: a user already on free is a no-op with no
	// duplicate audit entry. Invoked lazily by the entitlement evaluator,
	// by the periodic expiry sweep, and on subscription cancellation.
	DowngradeExpired(ctx context.Context, userID uuid.UUID) error
}

// SubscriptionStore is the persistence surface the lifecycle needs.
// *repository.Store satisfies it; tests substitute a fake.
type SubscriptionStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	ApplySubscriptionChange(ctx context.Context, arg repository.ApplySubscriptionChangeParams) error
}

// =============================================================================
// Implementation
// =============================================================================

type subscriptionService struct {
	store  SubscriptionStore
	sink   notify.Sink
	logger *slog.Logger
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(store SubscriptionStore, sink notify.Sink, logger *slog.Logger) SubscriptionService {
	return &subscriptionService{
		store:  store,
		sink:   sink,
		logger: logger,
	}
}

// Upgrade moves a user onto a paid tier.
func (s *subscriptionService) Upgrade(ctx context.Context, userID uuid.UUID, tier domain.Tier, expiry time.Time, subscriptionID string) error {
	return s.applyPaidTier(ctx, userID, tier, expiry, subscriptionID, domain.SubscriptionEventUpgrade)
}

// Renew extends a paid tier to a new expiry.
func (s *subscriptionService) Renew(ctx context.Context, userID uuid.UUID, tier domain.Tier, newExpiry time.Time, subscriptionID string) error {
	return s.applyPaidTier(ctx, userID, tier, newExpiry, subscriptionID, domain.SubscriptionEventRenewed)
}

func (s *subscriptionService) applyPaidTier(ctx context.Context, userID uuid.UUID, tier domain.Tier, expiry time.Time, subscriptionID string, event domain.SubscriptionEventType) error {
	op := "subscription." + string(event)

	if tier != domain.TierWeekly && tier != domain.TierMonthly {
		return domain.Invalid(op, fmt.Sprintf("tier %q is not a paid tier", tier))
	}

	err := s.store.ApplySubscriptionChange(ctx, repository.ApplySubscriptionChangeParams{
		UserID:         userID,
		EventType:      string(event),
		Tier:           string(tier),
		TierExpiry:     sql.NullTime{Time: expiry, Valid: true},
		SubscriptionID: domain.ToNullString(subscriptionID),
	})
	if err != nil {
		return domain.Internal(err, op, "failed to apply subscription change")
	}

	metrics.SubscriptionTransitions.WithLabelValues(string(event)).Inc()
	s.logger.Info("subscription transition",
		"user_id", userID,
		"event", event,
		"tier", tier,
		"expiry", expiry,
	)

	def := domain.GetTierDefinition(tier)
	s.sink.Notify(ctx, userID,
		fmt.Sprintf("Your %s plan is active until %s.", def.Name, expiry.Format("Jan 2, 2006")),
		domain.SeveritySuccess,
	)

	return nil
}

// DowngradeExpired moves a user back to the free tier.
func (s *subscriptionService) DowngradeExpired(ctx context.Context, userID uuid.UUID) error {
	const op = "subscription.downgrade"

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "user", userID.String())
		}
		return domain.Internal(err, op, "failed to load user")
	}

	// Already free: nothing to transition, no duplicate audit entry.
	if domain.Tier(user.Tier) == domain.TierFree {
		return nil
	}

	err = s.store.ApplySubscriptionChange(ctx, repository.ApplySubscriptionChangeParams{
		UserID:         userID,
		EventType:      string(domain.SubscriptionEventDowngrade),
		Tier:           string(domain.TierFree),
		TierExpiry:     sql.NullTime{Valid: false},
		SubscriptionID: sql.NullString{Valid: false},
	})
	if err != nil {
		return domain.Internal(err, op, "failed to apply downgrade")
	}

	metrics.SubscriptionTransitions.WithLabelValues(string(domain.SubscriptionEventDowngrade)).Inc()
	s.logger.Info("subscription expired, downgraded to free",
		"user_id", userID,
		"previous_tier", user.Tier,
	)

	s.sink.Notify(ctx, userID,
		"Your subscription has expired. You are now on the Free plan.",
		domain.SeverityWarning,
	)

	return nil
}
