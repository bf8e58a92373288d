package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStreak(t *testing.T) {
	today := time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	lastWeek := today.AddDate(0, 0, -7)

	tests := []struct {
		name        string
		current     int64
		lastActive  *time.Time
		wantCount   int64
		wantUpdated bool
	}{
		{name: "first ever activity", current: 0, lastActive: nil, wantCount: 1, wantUpdated: true},
		{name: "same day is a no-op", current: 4, lastActive: &today, wantCount: 4, wantUpdated: false},
		{name: "consecutive day increments", current: 4, lastActive: &yesterday, wantCount: 5, wantUpdated: true},
		{name: "gap resets to one", current: 9, lastActive: &lastWeek, wantCount: 1, wantUpdated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, updated := nextStreak(tt.current, tt.lastActive, today)
			assert.Equal(t, tt.wantCount, count)
			assert.Equal(t, tt.wantUpdated, updated)
		})
	}
}

func TestRecordActivity(t *testing.T) {
	userID := uuid.New()
	now := time.Date(2025, 7, 3, 15, 30, 0, 0, time.UTC)
	today := time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	newService := func(store *fakeStreakStore, sink *recordSink) *streakService {
		svc := NewStreakService(store, sink, testLogger()).(*streakService)
		svc.now = func() time.Time { return now }
		return svc
	}

	t.Run("round trip persists and survives reload", func(t *testing.T) {
		store := &fakeStreakStore{
			user: repository.User{
				ID:             userID,
				StreakCount:    2,
				LastActiveDate: sql.NullTime{Time: yesterday, Valid: true},
			},
		}
		svc := newService(store, &recordSink{})

		result, err := svc.RecordActivity(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.StreakCount)
		assert.True(t, result.Updated)

		// A second session the same day reads the persisted state back.
		again, err := svc.RecordActivity(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), again.StreakCount)
		assert.False(t, again.Updated)
		assert.Len(t, store.updates, 1, "same-day repeat must not write")
	})

	t.Run("badge unlock fires on threshold crossing", func(t *testing.T) {
		store := &fakeStreakStore{
			user: repository.User{
				ID:             userID,
				StreakCount:    2,
				LastActiveDate: sql.NullTime{Time: yesterday, Valid: true},
			},
		}
		sink := &recordSink{}
		svc := newService(store, sink)

		_, err := svc.RecordActivity(context.Background(), userID)
		require.NoError(t, err)

		messages := sink.Messages()
		require.Len(t, messages, 1)
		assert.Contains(t, messages[0], "Consistency Champion")
	})

	t.Run("no unlock when already past threshold", func(t *testing.T) {
		store := &fakeStreakStore{
			user: repository.User{
				ID:             userID,
				StreakCount:    4,
				LastActiveDate: sql.NullTime{Time: yesterday, Valid: true},
			},
		}
		sink := &recordSink{}
		svc := newService(store, sink)

		_, err := svc.RecordActivity(context.Background(), userID)
		require.NoError(t, err)
		assert.Empty(t, sink.Messages())
	})

	t.Run("persistence failure surfaces an error", func(t *testing.T) {
		store := &fakeStreakStore{
			user:      repository.User{ID: userID},
			updateErr: errors.New("connection reset"),
		}
		svc := newService(store, &recordSink{})

		_, err := svc.RecordActivity(context.Background(), userID)
		assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	})
}

func TestBadges(t *testing.T) {
	userID := uuid.New()
	store := &fakeStreakStore{
		user:      repository.User{ID: userID, StreakCount: 7},
		documents: 12,
	}
	svc := NewStreakService(store, &recordSink{}, testLogger())

	statuses, err := svc.Badges(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, statuses, 4)
	for _, status := range statuses {
		assert.True(t, status.Unlocked, "badge %s should be unlocked", status.Badge.ID)
		assert.Equal(t, 100, status.Progress)
	}
}

func TestLeaderboard(t *testing.T) {
	store := &fakeStreakStore{
		top: []repository.LeaderboardRow{
			{Email: "ada@example.com", Name: sql.NullString{String: "Ada", Valid: true}, StreakCount: 30},
			{Email: "grace.hopper@example.com", StreakCount: 12},
		},
	}
	svc := NewStreakService(store, &recordSink{}, testLogger())

	entries, err := svc.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Ada", entries[0].DisplayName)
	// No profile name: title-cased email local part, never the full address.
	assert.Equal(t, "Grace.Hopper", entries[1].DisplayName)
	assert.NotContains(t, entries[1].DisplayName, "@")
}
