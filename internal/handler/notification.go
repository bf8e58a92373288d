// Package handler contains the HTTP handlers for the MindGrove API.
//
// This file implements the notification endpoints.
//
// Routes (all require auth):
//   - GET  /api/notifications           -> List
//   - POST /api/notifications/{id}/read -> MarkRead
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mindgrove-app/mindgrove/internal/auth"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/repository"
)

// notificationListLimit caps one page of notifications.
const notificationListLimit = 50

// NotificationHandler handles the notification feed.
type NotificationHandler struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(queries *repository.Queries, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		queries: queries,
		logger:  logger,
	}
}

type notificationResponse struct {
	ID        string     `json:"id"`
	Message   string     `json:"message"`
	Severity  string     `json:"severity"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// List returns the user's notifications, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	rows, err := h.queries.ListNotificationsByUser(r.Context(), repository.ListNotificationsByUserParams{
		UserID: user.ID,
		Limit:  notificationListLimit,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "notification.list", "failed to list notifications"))
		return
	}

	out := make([]notificationResponse, 0, len(rows))
	for _, n := range rows {
		out = append(out, notificationResponse{
			ID:        n.ID.String(),
			Message:   n.Message,
			Severity:  n.Severity,
			ReadAt:    domain.NullTimeValue(n.ReadAt),
			CreatedAt: n.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string][]notificationResponse{"notifications": out})
}

// MarkRead stamps one of the user's notifications as read. Idempotent.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	const op = "notification.mark_read"

	user := auth.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid notification ID."))
		return
	}

	if err := h.queries.MarkNotificationRead(r.Context(), repository.MarkNotificationReadParams{
		ID:     id,
		UserID: user.ID,
	}); err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to mark notification read"))
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
