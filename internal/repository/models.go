package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User mirrors the users table.
type User struct {
	ID               uuid.UUID
	Email            string
	PasswordHash     string
	Name             sql.NullString
	Tier             string
	TierExpiry       sql.NullTime
	StreakCount      int64
	LastActiveDate   sql.NullTime
	StripeCustomerID sql.NullString
	SubscriptionID   sql.NullString
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Session mirrors the sessions table.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// UsageCounter mirrors the usage_counters table. Rows are keyed by
// (user_id, kind, period_key) and only ever incremented.
type UsageCounter struct {
	UserID    uuid.UUID
	Kind      string
	PeriodKey string
	Count     int64
	UpdatedAt time.Time
}

// Document mirrors the documents table.
type Document struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	StorageKey  string
	ContentType string
	SizeBytes   int64
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StudyMaterial mirrors the study_materials table.
type StudyMaterial struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	UserID     uuid.UUID
	Kind       string
	Content    []byte
	CreatedAt  time.Time
}

// SubscriptionEvent mirrors the subscription_events audit table.
type SubscriptionEvent struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	EventType  string
	Tier       string
	TierExpiry sql.NullTime
	CreatedAt  time.Time
}

// Notification mirrors the notifications table.
type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Message   string
	Severity  string
	ReadAt    sql.NullTime
	CreatedAt time.Time
}

// Job mirrors the jobs table used by the background worker.
type Job struct {
	ID           uuid.UUID
	JobType      string
	Payload      []byte
	Status       string
	Priority     int32
	Attempts     int32
	MaxAttempts  int32
	ErrorMessage sql.NullString
	ScheduledAt  time.Time
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
	CreatedAt    time.Time
}
