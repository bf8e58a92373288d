// Package notify delivers user-visible notifications (tier changes, badge
// unlocks, processing results).
//
// Delivery is fire-and-forget: a failed insert is logged and never
// propagated, so a notification failure can never roll back the state
// transition that produced it.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/repository"
)

// Sink accepts notifications for later display to the user.
type Sink interface {
	Notify(ctx context.Context, userID uuid.UUID, message string, severity domain.NotificationSeverity)
}

// =============================================================================
// Database-backed sink
// =============================================================================

type dbSink struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewDBSink creates a Sink that persists notifications for the client to
// fetch.
func NewDBSink(queries *repository.Queries, logger *slog.Logger) Sink {
	return &dbSink{queries: queries, logger: logger}
}

func (s *dbSink) Notify(ctx context.Context, userID uuid.UUID, message string, severity domain.NotificationSeverity) {
	err := s.queries.InsertNotification(ctx, repository.InsertNotificationParams{
		UserID:   userID,
		Message:  message,
		Severity: string(severity),
	})
	if err != nil {
		s.logger.Error("failed to persist notification",
			"user_id", userID,
			"severity", severity,
			"error", err,
		)
	}
}

// =============================================================================
// No-op sink
// =============================================================================

type nopSink struct{}

// NewNopSink returns a Sink that discards everything. Used in tests and in
// tools that run service code without a notification surface.
func NewNopSink() Sink {
	return nopSink{}
}

func (nopSink) Notify(context.Context, uuid.UUID, string, domain.NotificationSeverity) {}
