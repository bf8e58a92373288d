// Package handler contains the HTTP handlers for the MindGrove API.
//
// This file implements the admin endpoints. All routes sit behind the
// admin email allowlist middleware.
//
// Routes:
//   - GET /api/admin/overview            -> Overview
//   - GET /api/admin/subscription-events -> SubscriptionEvents
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/repository"
)

// adminEventLimit caps the recent subscription audit listing.
const adminEventLimit = 100

// AdminHandler handles admin-only endpoints.
type AdminHandler struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(queries *repository.Queries, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		queries: queries,
		logger:  logger,
	}
}

// =============================================================================
// GET /api/admin/overview
// =============================================================================

type adminOverviewResponse struct {
	UsersByTier    map[string]int64 `json:"users_by_tier"`
	TotalDocuments int64            `json:"total_documents"`
}

// Overview returns platform-wide usage aggregates.
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	const op = "admin.overview"

	tierCounts, err := h.queries.CountUsersByTier(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to count users"))
		return
	}

	documents, err := h.queries.CountDocuments(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to count documents"))
		return
	}

	byTier := make(map[string]int64, len(tierCounts))
	for _, row := range tierCounts {
		byTier[row.Tier] = row.Count
	}

	respondJSON(w, http.StatusOK, adminOverviewResponse{
		UsersByTier:    byTier,
		TotalDocuments: documents,
	})
}

// =============================================================================
// GET /api/admin/subscription-events
// =============================================================================

type subscriptionEventResponse struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	EventType  string     `json:"event_type"`
	Tier       string     `json:"tier"`
	TierExpiry *time.Time `json:"tier_expiry,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// SubscriptionEvents returns the most recent tier-transition audit entries
// across all users.
func (h *AdminHandler) SubscriptionEvents(w http.ResponseWriter, r *http.Request) {
	const op = "admin.subscription_events"

	rows, err := h.queries.ListRecentSubscriptionEvents(r.Context(), adminEventLimit)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to list subscription events"))
		return
	}

	out := make([]subscriptionEventResponse, 0, len(rows))
	for _, e := range rows {
		out = append(out, subscriptionEventResponse{
			ID:         e.ID.String(),
			UserID:     e.UserID.String(),
			EventType:  e.EventType,
			Tier:       e.Tier,
			TierExpiry: domain.NullTimeValue(e.TierExpiry),
			CreatedAt:  e.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string][]subscriptionEventResponse{"events": out})
}
