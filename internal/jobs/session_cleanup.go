package jobs

import (
	"context"
	"log/slog"

	"github.com/mindgrove-app/mindgrove/internal/service"
	"github.com/mindgrove-app/mindgrove/internal/worker"
)

// SessionCleanupHandler deletes expired sessions.
type SessionCleanupHandler struct {
	users  service.UserService
	logger *slog.Logger
}

// NewSessionCleanupHandler creates a new handler for session cleanup jobs.
func NewSessionCleanupHandler(users service.UserService, logger *slog.Logger) *SessionCleanupHandler {
	return &SessionCleanupHandler{users: users, logger: logger}
}

// Type returns the job type identifier.
func (h *SessionCleanupHandler) Type() string {
	return worker.JobTypeSessionCleanup
}

// Handle runs one cleanup pass.
func (h *SessionCleanupHandler) Handle(ctx context.Context, _ []byte) error {
	return h.users.DeleteExpiredSessions(ctx)
}
