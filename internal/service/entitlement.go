// Package service contains the business logic layer.
//
// This file implements the entitlement evaluator: the yes/no decision of
// whether a user may use a feature or perform a quota-limited action right
// now. Tier-level gating always fails closed; usage reads for soft quota
// checks fail open so a transient counter error never blocks legitimate use.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/metrics"
	"github.com/mindgrove-app/mindgrove/internal/repository"
)

// =============================================================================
// Interface Definitions
// =============================================================================

// EntitlementService decides what a user may do.
//
// All checks treat a nil user as "no access" and never return an error for
// the boolean surface; read failures are resolved by the fail-open/
// fail-closed rules documented per method.
type EntitlementService interface {
	// CanAccessFeature reports whether the user's effective tier meets the
	// feature's minimum tier. Fails closed: nil user, unknown feature, and
	// unknown tier all deny. A set, past expiry makes the effective tier
	// free and triggers the lazy downgrade transition as a side effect.
	CanAccessFeature(ctx context.Context, user *domain.User, feature domain.Feature) bool

	// CanUploadMoreDocuments compares this month's document counter against
	// the tier quota. Counter read failures assume zero usage (fail open).
	CanUploadMoreDocuments(ctx context.Context, user *domain.User) bool

	// HasRemainingAIQueries compares today's AI query counter against the
	// tier quota. Counter read failures assume zero usage (fail open).
	HasRemainingAIQueries(ctx context.Context, user *domain.User) bool

	// Usage returns the user's current usage against their tier limits for
	// display. Document usage is reconciled from the documents table, the
	// audit source of truth, rather than the cached counter.
	Usage(ctx context.Context, user *domain.User) (*domain.QuotaUsage, error)
}

// EntitlementStore is the persistence surface the evaluator reads.
// *repository.Store satisfies it; tests substitute a fake.
type EntitlementStore interface {
	GetUsageCounter(ctx context.Context, arg repository.GetUsageCounterParams) (int64, error)
	CountDocumentsByUserSince(ctx context.Context, arg repository.CountDocumentsByUserSinceParams) (int64, error)
}

// =============================================================================
// Implementation
// =============================================================================

type entitlementService struct {
	store         EntitlementStore
	subscriptions SubscriptionService
	logger        *slog.Logger
	now           func() time.Time
}

// NewEntitlementService creates a new EntitlementService. The subscription
// service handles the lazy-expiry downgrade side effect.
func NewEntitlementService(store EntitlementStore, subscriptions SubscriptionService, logger *slog.Logger) EntitlementService {
	return &entitlementService{
		store:         store,
		subscriptions: subscriptions,
		logger:        logger,
		now:           time.Now,
	}
}

// effectiveTier resolves the user's tier after lazy expiry. The downgrade
// transition itself is owned by the subscription service so its idempotence
// and audit contract stay testable in isolation from this read path; a
// failed downgrade write never blocks the read (the effective tier is
// already free either way).
func (s *entitlementService) effectiveTier(ctx context.Context, user *domain.User) domain.Tier {
	now := s.now()
	if user.TierExpired(now) {
		if err := s.subscriptions.DowngradeExpired(ctx, user.ID); err != nil {
			s.logger.Error("lazy expiry downgrade failed",
				"user_id", user.ID,
				"error", err,
			)
		}
	}
	return user.EffectiveTier(now)
}

// CanAccessFeature reports whether a feature is available at the user's tier.
func (s *entitlementService) CanAccessFeature(ctx context.Context, user *domain.User, feature domain.Feature) bool {
	if user == nil {
		return false
	}

	required, ok := domain.MinimumTierFor(feature)
	if !ok {
		// Unknown feature: deny rather than guess.
		s.logger.Warn("entitlement check for unknown feature", "feature", feature)
		return false
	}

	allowed := s.effectiveTier(ctx, user).AtLeast(required)
	if !allowed {
		metrics.EntitlementDenials.WithLabelValues(string(feature), "tier").Inc()
	}
	return allowed
}

// CanUploadMoreDocuments checks the monthly document quota.
func (s *entitlementService) CanUploadMoreDocuments(ctx context.Context, user *domain.User) bool {
	return s.hasQuotaRemaining(ctx, user, domain.CounterDocuments)
}

// HasRemainingAIQueries checks the daily AI query quota.
func (s *entitlementService) HasRemainingAIQueries(ctx context.Context, user *domain.User) bool {
	return s.hasQuotaRemaining(ctx, user, domain.CounterAIQueries)
}

func (s *entitlementService) hasQuotaRemaining(ctx context.Context, user *domain.User, kind domain.CounterKind) bool {
	if user == nil {
		return false
	}

	def := domain.GetTierDefinition(s.effectiveTier(ctx, user))
	quota := kind.Quota(def)

	used, err := s.store.GetUsageCounter(ctx, repository.GetUsageCounterParams{
		UserID:    user.ID,
		Kind:      string(kind),
		PeriodKey: kind.PeriodKey(s.now()),
	})
	if err != nil {
		// Fail open for the soft quota check only; the tier itself was
		// already resolved fail-closed above.
		s.logger.Warn("usage counter read failed, assuming zero usage",
			"user_id", user.ID,
			"kind", kind,
			"error", err,
		)
		used = 0
	}

	if used >= quota {
		metrics.EntitlementDenials.WithLabelValues(string(kind), "quota").Inc()
		return false
	}
	return true
}

// Usage returns current usage against tier limits.
func (s *entitlementService) Usage(ctx context.Context, user *domain.User) (*domain.QuotaUsage, error) {
	const op = "entitlement.usage"

	if user == nil {
		return nil, domain.Unauthorized(op, "authentication required")
	}

	now := s.now()
	def := domain.GetTierDefinition(s.effectiveTier(ctx, user))

	// The documents table is the audit source of truth for the monthly
	// document count; the cached counter can lag behind a failed write.
	documentsUsed, err := s.store.CountDocumentsByUserSince(ctx, repository.CountDocumentsByUserSinceParams{
		UserID:       user.ID,
		CreatedAfter: domain.MonthStart(now),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count documents")
	}

	aiQueriesUsed, err := s.store.GetUsageCounter(ctx, repository.GetUsageCounterParams{
		UserID:    user.ID,
		Kind:      string(domain.CounterAIQueries),
		PeriodKey: domain.CounterAIQueries.PeriodKey(now),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read AI query counter")
	}

	return &domain.QuotaUsage{
		DocumentsUsed:  documentsUsed,
		DocumentsLimit: def.MaxDocumentsPerMonth,
		AIQueriesUsed:  aiQueriesUsed,
		AIQueriesLimit: def.MaxAIQueriesPerDay,
	}, nil
}
