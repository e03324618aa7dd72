package models

import (
	"time"

	"gorm.io/datatypes"
)

// Chat message directions.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// ChatMessage is one turn of a user's conversation. Rows are append-only;
// ordering by CreatedAt is the only correctness requirement. RawPayload
// keeps the provider event or the buttons/template metadata shown.
type ChatMessage struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	User       User           `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Direction  string         `gorm:"type:varchar(10);not null" json:"direction"`
	Message    string         `gorm:"type:text;not null" json:"message"`
	RawPayload datatypes.JSON `json:"raw_payload,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
}
