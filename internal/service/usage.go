// Package service contains the business logic layer.
//
// This file implements the usage counter service. Counters are period
// scoped (daily for AI queries, monthly for documents) and append-only:
// there is no decrement, a past period is never incremented, and a period
// rollover simply starts a fresh counter.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/repository"
)

// =============================================================================
// Interface Definitions
// =============================================================================

// UsageService maintains per-user, per-period usage counters.
type UsageService interface {
	// Increment bumps the counter for the current period and returns the
	// new value. The underlying upsert is atomic, so concurrent increments
	// from two sessions both land.
	Increment(ctx context.Context, userID uuid.UUID, kind domain.CounterKind) (int64, error)

	// Get returns the counter for the current period. Missing counters
	// read as zero.
	Get(ctx context.Context, userID uuid.UUID, kind domain.CounterKind) (int64, error)

	// History returns all of a user's counters, newest period first, for
	// historical display. Old periods are retained, never summed forward.
	History(ctx context.Context, userID uuid.UUID) ([]repository.UsageCounter, error)
}

// UsageStore is the persistence surface for counters.
// *repository.Store satisfies it; tests substitute a fake.
type UsageStore interface {
	IncrementUsageCounter(ctx context.Context, arg repository.IncrementUsageCounterParams) (int64, error)
	GetUsageCounter(ctx context.Context, arg repository.GetUsageCounterParams) (int64, error)
	ListUsageCountersByUser(ctx context.Context, userID uuid.UUID) ([]repository.UsageCounter, error)
}

// =============================================================================
// Implementation
// =============================================================================

type usageService struct {
	store  UsageStore
	logger *slog.Logger
	now    func() time.Time
}

// NewUsageService creates a new UsageService.
func NewUsageService(store UsageStore, logger *slog.Logger) UsageService {
	return &usageService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Increment bumps the current period's counter.
func (s *usageService) Increment(ctx context.Context, userID uuid.UUID, kind domain.CounterKind) (int64, error) {
	const op = "usage.increment"

	count, err := s.store.IncrementUsageCounter(ctx, repository.IncrementUsageCounterParams{
		UserID:    userID,
		Kind:      string(kind),
		PeriodKey: kind.PeriodKey(s.now()),
	})
	if err != nil {
		return 0, domain.Internal(err, op, "failed to increment usage counter")
	}
	return count, nil
}

// Get reads the current period's counter.
func (s *usageService) Get(ctx context.Context, userID uuid.UUID, kind domain.CounterKind) (int64, error) {
	const op = "usage.get"

	count, err := s.store.GetUsageCounter(ctx, repository.GetUsageCounterParams{
		UserID:    userID,
		Kind:      string(kind),
		PeriodKey: kind.PeriodKey(s.now()),
	})
	if err != nil {
		return 0, domain.Internal(err, op, "failed to read usage counter")
	}
	return count, nil
}

// History returns all counters for a user.
func (s *usageService) History(ctx context.Context, userID uuid.UUID) ([]repository.UsageCounter, error) {
	const op = "usage.history"

	counters, err := s.store.ListUsageCountersByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list usage counters")
	}
	return counters, nil
}
