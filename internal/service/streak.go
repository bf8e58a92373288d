// Package service contains the business logic layer.
//
// This file implements the streak tracker and badge queries. The persisted
// (lastActiveDate, streakCount) pair is the sole source of truth across
// sessions; the transition runs at most once per calendar day.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/metrics"
	"github.com/mindgrove-app/mindgrove/internal/notify"
	"github.com/mindgrove-app/mindgrove/internal/repository"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// Interface Definitions
// =============================================================================

// StreakResult is the outcome of recording a day's activity.
type StreakResult struct {
	StreakCount    int64
	LastActiveDate time.Time
	// Updated is false when today's activity was already counted.
	Updated bool
}

// LeaderboardEntry is one row of the public streak leaderboard.
type LeaderboardEntry struct {
	DisplayName string `json:"display_name"`
	StreakCount int64  `json:"streak_count"`
}

// StreakService tracks consecutive-day activity and derives badges.
type StreakService interface {
	// RecordActivity applies the daily streak transition for a user:
	// unchanged if already active today, incremented if last active
	// yesterday, reset to 1 otherwise. Returns the persisted state; a
	// persistence failure returns an error so callers never trust an
	// unpersisted increment beyond the current session.
	RecordActivity(ctx context.Context, userID uuid.UUID) (*StreakResult, error)

	// Badges derives the user's badge statuses from the persisted streak
	// and total document count.
	Badges(ctx context.Context, userID uuid.UUID) ([]domain.BadgeStatus, error)

	// Leaderboard returns the top current streaks.
	Leaderboard(ctx context.Context, limit int32) ([]LeaderboardEntry, error)
}

// StreakStore is the persistence surface the tracker needs.
// *repository.Store satisfies it; tests substitute a fake.
type StreakStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	UpdateUserStreak(ctx context.Context, arg repository.UpdateUserStreakParams) error
	CountDocumentsByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ListTopStreaks(ctx context.Context, limit int32) ([]repository.LeaderboardRow, error)
}

// =============================================================================
// Implementation
// =============================================================================

type streakService struct {
	store  StreakStore
	sink   notify.Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewStreakService creates a new StreakService.
func NewStreakService(store StreakStore, sink notify.Sink, logger *slog.Logger) StreakService {
	return &streakService{
		store:  store,
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// nextStreak computes the daily transition. Pure so the three cases stay
// trivially testable: same day -> unchanged, consecutive day -> increment,
// gap or first activity -> reset to 1.
func nextStreak(current int64, lastActive *time.Time, today time.Time) (count int64, updated bool) {
	if lastActive != nil {
		last := domain.DayStart(*lastActive)
		switch {
		case last.Equal(today):
			return current, false
		case last.Equal(today.AddDate(0, 0, -1)):
			return current + 1, true
		}
	}
	return 1, true
}

// RecordActivity applies the daily streak transition.
func (s *streakService) RecordActivity(ctx context.Context, userID uuid.UUID) (*StreakResult, error) {
	const op = "streak.record_activity"

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", userID.String())
		}
		return nil, domain.Internal(err, op, "failed to load user")
	}

	today := domain.DayStart(s.now())
	lastActive := domain.NullTimeValue(user.LastActiveDate)

	count, updated := nextStreak(user.StreakCount, lastActive, today)
	if !updated {
		return &StreakResult{StreakCount: count, LastActiveDate: today, Updated: false}, nil
	}

	err = s.store.UpdateUserStreak(ctx, repository.UpdateUserStreakParams{
		ID:             userID,
		StreakCount:    count,
		LastActiveDate: sql.NullTime{Time: today, Valid: true},
	})
	if err != nil {
		// The caller may still display the incremented value optimistically
		// for this session; the next session recomputes from persisted truth.
		return nil, domain.Internal(err, op, "failed to persist streak")
	}

	metrics.StreakUpdates.Inc()
	s.logger.Debug("streak updated",
		"user_id", userID,
		"streak", count,
		"previous", user.StreakCount,
	)

	s.notifyUnlocks(ctx, userID, domain.BadgeMetricStreak, user.StreakCount, count)

	return &StreakResult{StreakCount: count, LastActiveDate: today, Updated: true}, nil
}

// notifyUnlocks fires edge-triggered badge unlock notifications. Crossing
// detection (before < threshold <= after) rather than equality, so a metric
// that skips past a threshold still fires exactly once.
func (s *streakService) notifyUnlocks(ctx context.Context, userID uuid.UUID, metric domain.BadgeMetric, before, after int64) {
	for _, badge := range domain.NewlyUnlockedBadges(metric, before, after) {
		metrics.BadgesUnlocked.WithLabelValues(badge.ID).Inc()
		s.sink.Notify(ctx, userID,
			fmt.Sprintf("Badge unlocked: %s!", badge.Name),
			domain.SeveritySuccess,
		)
	}
}

// Badges derives the user's badge statuses.
func (s *streakService) Badges(ctx context.Context, userID uuid.UUID) ([]domain.BadgeStatus, error) {
	const op = "streak.badges"

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", userID.String())
		}
		return nil, domain.Internal(err, op, "failed to load user")
	}

	documents, err := s.store.CountDocumentsByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count documents")
	}

	return domain.DeriveBadges(user.StreakCount, documents), nil
}

// Leaderboard returns the top current streaks.
func (s *streakService) Leaderboard(ctx context.Context, limit int32) ([]LeaderboardEntry, error) {
	const op = "streak.leaderboard"

	rows, err := s.store.ListTopStreaks(ctx, limit)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list streaks")
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, LeaderboardEntry{
			DisplayName: leaderboardName(domain.NullStringValue(row.Name), row.Email),
			StreakCount: row.StreakCount,
		})
	}
	return entries, nil
}

// leaderboardName picks a display name without exposing full email
// addresses on a public surface: the profile name when set, otherwise the
// title-cased local part of the email.
func leaderboardName(name, email string) string {
	if name != "" {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	return cases.Title(language.English).String(local)
}
