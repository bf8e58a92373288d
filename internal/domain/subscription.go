package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionEventType classifies an audit log entry for a tier transition.
type SubscriptionEventType string

const (
	SubscriptionEventUpgrade   SubscriptionEventType = "upgrade"
	SubscriptionEventRenewed   SubscriptionEventType = "renewed"
	SubscriptionEventDowngrade SubscriptionEventType = "downgrade"
)

// SubscriptionEvent is one audit log entry recording a tier transition.
// Events are inserted in the same transaction as the tier change itself,
// so the audit log never disagrees with user state.
type SubscriptionEvent struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	EventType  SubscriptionEventType
	Tier       Tier
	TierExpiry *time.Time
	CreatedAt  time.Time
}

// QuotaUsage summarizes a user's current usage against their tier limits,
// for display on the account page.
type QuotaUsage struct {
	DocumentsUsed  int64
	DocumentsLimit int64
	AIQueriesUsed  int64
	AIQueriesLimit int64
}

// DocumentsUnlimited reports whether the documents quota is the unlimited
// sentinel.
func (q QuotaUsage) DocumentsUnlimited() bool {
	return q.DocumentsLimit >= QuotaUnlimited
}

// AIQueriesUnlimited reports whether the AI query quota is the unlimited
// sentinel.
func (q QuotaUsage) AIQueriesUnlimited() bool {
	return q.AIQueriesLimit >= QuotaUnlimited
}
