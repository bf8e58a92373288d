package jobs

import (
	"context"
	"log/slog"

	"github.com/mindgrove-app/mindgrove/internal/repository"
	"github.com/mindgrove-app/mindgrove/internal/service"
	"github.com/mindgrove-app/mindgrove/internal/worker"
)

// expirySweepBatchSize caps one sweep; anything beyond it waits for the next run.
const expirySweepBatchSize = 500

// ExpirySweepHandler downgrades paid users whose tier expiry has passed.
// Expiry is also applied lazily at evaluation time; the sweep catches users
// who never come back, so their audit trail and notifications still happen.
type ExpirySweepHandler struct {
	queries       *repository.Queries
	subscriptions service.SubscriptionService
	logger        *slog.Logger
}

// NewExpirySweepHandler creates a new handler for expiry sweep jobs.
func NewExpirySweepHandler(
	queries *repository.Queries,
	subscriptions service.SubscriptionService,
	logger *slog.Logger,
) *ExpirySweepHandler {
	return &ExpirySweepHandler{
		queries:       queries,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// Type returns the job type identifier.
func (h *ExpirySweepHandler) Type() string {
	return worker.JobTypeExpirySweep
}

// Handle runs one sweep over expired paid users.
func (h *ExpirySweepHandler) Handle(ctx context.Context, _ []byte) error {
	users, err := h.queries.ListExpiredPaidUsers(ctx, expirySweepBatchSize)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}

	h.logger.Info("expiry sweep found expired subscriptions", "count", len(users))

	// One bad row must not block the rest of the sweep; the downgrade is
	// idempotent, so the next sweep retries anything that failed here.
	var failed int
	for _, user := range users {
		if err := h.subscriptions.DowngradeExpired(ctx, user.ID); err != nil {
			h.logger.Error("sweep downgrade failed", "user_id", user.ID, "error", err)
			failed++
		}
	}

	if failed > 0 {
		h.logger.Warn("expiry sweep completed with failures",
			"total", len(users), "failed", failed)
	}
	return nil
}
