// Package domain contains core business types and interfaces.
//
// This file defines the User domain type and related auth types. These are
// separate from the repository models so business logic works with proper Go
// types instead of sql.Null* wrappers, and so call sites never reach through
// fallback chains to find a field.
package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User represents a registered MindGrove student account.
//
// The persisted (Tier, TierExpiry) pair is owned by the subscription
// lifecycle and the (StreakCount, LastActiveDate) pair by the streak
// tracker; both are the sole cross-session source of truth for their state.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string // Never expose this in API responses
	Name         string

	Tier Tier
	// TierExpiry is nil for the non-expiring free tier.
	TierExpiry *time.Time

	StreakCount int64
	// LastActiveDate is the calendar day (UTC midnight) of the user's most
	// recent recorded activity; nil for a user who has never been active.
	LastActiveDate *time.Time

	StripeCustomerID string
	SubscriptionID   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveTier returns the user's tier after applying lazy expiry: a set,
// past expiry means the user is effectively free even if the downgrade
// transition has not been persisted yet.
func (u *User) EffectiveTier(now time.Time) Tier {
	if u == nil {
		return TierFree
	}
	if u.TierExpiry != nil && u.TierExpiry.Before(now) {
		return TierFree
	}
	if !u.Tier.Valid() {
		return TierFree
	}
	return u.Tier
}

// TierExpired reports whether the user's subscription has an expiry in the
// past. Always false for the free tier (no expiry is ever set).
func (u *User) TierExpired(now time.Time) bool {
	return u != nil && u.TierExpiry != nil && u.TierExpiry.Before(now)
}

// DisplayName returns the user's name or email if name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Session represents an authenticated session.
//
// Sessions are stored with a hashed token; the raw token is only given to
// the client once, at login.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string // SHA-256 hash of the session token
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// RegisterParams contains the validated parameters for user registration.
type RegisterParams struct {
	Email    string
	Password string // Raw password, hashed by the service
	Name     string
}

// LoginResult contains the result of a successful login.
type LoginResult struct {
	User  *User
	Token string // Raw session token (not hashed), returned once
}

// =============================================================================
// Conversion helpers from repository types
// =============================================================================

// NullStringValue safely extracts a string from sql.NullString.
func NullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// NullTimeValue safely extracts a time pointer from sql.NullTime.
func NullTimeValue(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// ToNullString converts a string to sql.NullString.
func ToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// ToNullTime converts a time pointer to sql.NullTime.
func ToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
