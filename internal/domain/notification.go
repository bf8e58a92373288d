package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationSeverity controls how a notification is presented.
type NotificationSeverity string

const (
	SeverityInfo    NotificationSeverity = "info"
	SeveritySuccess NotificationSeverity = "success"
	SeverityWarning NotificationSeverity = "warning"
)

// Notification is a user-visible message (tier changes, badge unlocks,
// processing results). Delivery is fire-and-forget: a failed insert is
// logged and never rolls back the transition that produced it.
type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Message   string
	Severity  NotificationSeverity
	ReadAt    *time.Time
	CreatedAt time.Time
}
