package models

import (
	"time"

	"gorm.io/datatypes"
)

// User is identified by WhatsApp phone number. Created on first contact,
// never hard-deleted. Metadata carries the blocked flag and the reminder
// schedule (nextDate, frequency, lastReminderSent).
type User struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	Phone      string            `gorm:"type:varchar(32);uniqueIndex;not null" json:"phone"`
	Name       string            `gorm:"type:varchar(255)" json:"name"`
	Metadata   datatypes.JSONMap `json:"metadata"`
	LastSeenAt *time.Time        `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null" json:"updated_at"`
}

// Metadata keys.
const (
	MetaBlocked          = "blocked"
	MetaBlockedAt        = "blockedAt"
	MetaNextDate         = "nextDate"
	MetaFrequency        = "frequency"
	MetaLastReminderSent = "lastReminderSent"
)
