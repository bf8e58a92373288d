package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/notify"
	"github.com/mindgrove-app/mindgrove/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionUpgrade(t *testing.T) {
	userID := uuid.New()
	expiry := time.Date(2025, 7, 8, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		tier      domain.Tier
		wantCode  string
		wantEvent string
	}{
		{name: "weekly", tier: domain.TierWeekly, wantEvent: "upgrade"},
		{name: "monthly", tier: domain.TierMonthly, wantEvent: "upgrade"},
		{name: "free is not a paid tier", tier: domain.TierFree, wantCode: domain.EINVALID},
		{name: "unknown tier", tier: domain.Tier("platinum"), wantCode: domain.EINVALID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeSubscriptionStore{
				user: repository.User{ID: userID, Tier: string(domain.TierFree)},
			}
			sink := &recordSink{}
			svc := NewSubscriptionService(store, sink, testLogger())

			err := svc.Upgrade(context.Background(), userID, tt.tier, expiry, "sub_123")

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
				assert.Empty(t, store.applied, "no transition should be recorded")
				return
			}

			require.NoError(t, err)
			require.Len(t, store.applied, 1)
			applied := store.applied[0]
			assert.Equal(t, tt.wantEvent, applied.EventType)
			assert.Equal(t, string(tt.tier), applied.Tier)
			assert.Equal(t, sql.NullTime{Time: expiry, Valid: true}, applied.TierExpiry)
			assert.Equal(t, "sub_123", applied.SubscriptionID.String)
			assert.NotEmpty(t, sink.Messages(), "activation should notify the user")
		})
	}
}

func TestSubscriptionRenewExtendsExpiry(t *testing.T) {
	userID := uuid.New()
	oldExpiry := time.Date(2025, 7, 8, 0, 0, 0, 0, time.UTC)
	newExpiry := oldExpiry.AddDate(0, 0, 7)

	store := &fakeSubscriptionStore{
		user: repository.User{
			ID:         userID,
			Tier:       string(domain.TierWeekly),
			TierExpiry: sql.NullTime{Time: oldExpiry, Valid: true},
		},
	}
	svc := NewSubscriptionService(store, notify.NewNopSink(), testLogger())

	err := svc.Renew(context.Background(), userID, domain.TierWeekly, newExpiry, "sub_123")
	require.NoError(t, err)

	require.Len(t, store.applied, 1)
	assert.Equal(t, "renewed", store.applied[0].EventType)
	assert.Equal(t, newExpiry, store.applied[0].TierExpiry.Time)
}

func TestDowngradeExpired(t *testing.T) {
	userID := uuid.New()
	pastExpiry := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("paid user is downgraded with audit event", func(t *testing.T) {
		store := &fakeSubscriptionStore{
			user: repository.User{
				ID:         userID,
				Tier:       string(domain.TierMonthly),
				TierExpiry: sql.NullTime{Time: pastExpiry, Valid: true},
			},
		}
		sink := &recordSink{}
		svc := NewSubscriptionService(store, sink, testLogger())

		err := svc.DowngradeExpired(context.Background(), userID)
		require.NoError(t, err)

		require.Len(t, store.applied, 1)
		applied := store.applied[0]
		assert.Equal(t, "downgrade", applied.EventType)
		assert.Equal(t, string(domain.TierFree), applied.Tier)
		assert.False(t, applied.TierExpiry.Valid, "expiry must be cleared")
		assert.False(t, applied.SubscriptionID.Valid, "subscription id must be cleared")
		assert.NotEmpty(t, sink.Messages())
	})

	t.Run("idempotent on free user", func(t *testing.T) {
		store := &fakeSubscriptionStore{
			user: repository.User{ID: userID, Tier: string(domain.TierFree)},
		}
		sink := &recordSink{}
		svc := NewSubscriptionService(store, sink, testLogger())

		// Two concurrent-ish triggers: sweep and lazy evaluator.
		require.NoError(t, svc.DowngradeExpired(context.Background(), userID))
		require.NoError(t, svc.DowngradeExpired(context.Background(), userID))

		assert.Empty(t, store.applied, "free user downgrade must not write an audit event")
		assert.Empty(t, sink.Messages())
	})

	t.Run("unknown user", func(t *testing.T) {
		store := &fakeSubscriptionStore{}
		svc := NewSubscriptionService(store, notify.NewNopSink(), testLogger())

		err := svc.DowngradeExpired(context.Background(), uuid.New())
		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	})
}
