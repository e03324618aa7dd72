package models

import "time"

// SaleItem is one (product, flavor-or-none) line of a sale. Its merge
// identity is (ProductID, FlavorID): adding to an existing key sums both
// Quantity and SubtotalCents; distinct flavors of the same product stay
// separate rows. SubtotalCents is the total for the whole quantity, not a
// unit price.
type SaleItem struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SaleID        uint      `gorm:"not null;index" json:"sale_id"`
	Sale          Sale      `gorm:"foreignKey:SaleID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ProductID     uint      `gorm:"not null" json:"product_id"`
	Product       Product   `gorm:"foreignKey:ProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"product"`
	FlavorID      *uint     `gorm:"index" json:"flavor_id,omitempty"`
	Flavor        *Flavor   `gorm:"foreignKey:FlavorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"flavor,omitempty"`
	Quantity      int       `gorm:"not null" json:"quantity"`
	SubtotalCents int64     `gorm:"not null" json:"subtotal_cents"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}
