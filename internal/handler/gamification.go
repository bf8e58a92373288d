// Package handler contains the HTTP handlers for the MindGrove API.
//
// This file implements the gamification endpoints.
//
// Routes:
//   - GET /api/streak      -> Streak      (requires auth)
//   - GET /api/badges      -> Badges      (requires auth)
//   - GET /api/leaderboard -> Leaderboard (public)
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mindgrove-app/mindgrove/internal/auth"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/service"
)

// leaderboardLimit caps the public leaderboard size.
const leaderboardLimit = 10

// GamificationHandler handles streak, badge, and leaderboard endpoints.
type GamificationHandler struct {
	streaks service.StreakService
	logger  *slog.Logger
}

// NewGamificationHandler creates a new GamificationHandler.
func NewGamificationHandler(streaks service.StreakService, logger *slog.Logger) *GamificationHandler {
	return &GamificationHandler{
		streaks: streaks,
		logger:  logger,
	}
}

// =============================================================================
// GET /api/streak
// =============================================================================

type streakResponse struct {
	StreakCount    int64      `json:"streak_count"`
	LastActiveDate *time.Time `json:"last_active_date,omitempty"`
	ActiveToday    bool       `json:"active_today"`
}

// Streak returns the user's current streak state.
func (h *GamificationHandler) Streak(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	resp := streakResponse{
		StreakCount:    user.StreakCount,
		LastActiveDate: user.LastActiveDate,
	}
	if user.LastActiveDate != nil {
		resp.ActiveToday = domain.DayStart(*user.LastActiveDate).Equal(domain.DayStart(time.Now()))
	}
	respondJSON(w, http.StatusOK, resp)
}

// =============================================================================
// GET /api/badges
// =============================================================================

type badgeResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Metric    string `json:"metric"`
	Threshold int64  `json:"threshold"`
	Unlocked  bool   `json:"unlocked"`
	Progress  int    `json:"progress"`
}

// Badges returns the user's derived badge statuses with progress.
func (h *GamificationHandler) Badges(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	statuses, err := h.streaks.Badges(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]badgeResponse, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, badgeResponse{
			ID:        s.Badge.ID,
			Name:      s.Badge.Name,
			Metric:    string(s.Badge.Metric),
			Threshold: s.Badge.Threshold,
			Unlocked:  s.Unlocked,
			Progress:  s.Progress,
		})
	}
	respondJSON(w, http.StatusOK, map[string][]badgeResponse{"badges": out})
}

// =============================================================================
// GET /api/leaderboard
// =============================================================================

// Leaderboard returns the top current streaks. Public; entries expose
// display names only.
func (h *GamificationHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.streaks.Leaderboard(r.Context(), leaderboardLimit)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]service.LeaderboardEntry{"leaderboard": entries})
}
