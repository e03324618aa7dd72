package models

import "time"

// Sale statuses. At most one "cart" sale may exist per user at a time.
const (
	SaleStatusCart      = "cart"
	SaleStatusConfirmed = "confirmed"
	SaleStatusCancelled = "cancelled"
)

// Sale is a user's order. While Status is "cart" it is the mutable open
// cart; confirmation and cancellation are terminal. TotalCents is a cache:
// the source of truth is the sum of the items' SubtotalCents, and the cache
// is rederived in full on every mutation.
type Sale struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	User       User       `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Status     string     `gorm:"type:varchar(20);not null;default:'cart';index" json:"status"`
	TotalCents int64      `gorm:"not null;default:0" json:"total_cents"`
	TicketPath string     `gorm:"type:varchar(255)" json:"ticket_path,omitempty"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updated_at"`
	SaleItems  []SaleItem `gorm:"foreignKey:SaleID" json:"sale_items,omitempty"`
}
