package models

import "time"

// Product is read-only catalog data. Products are sold in whole packages of
// PackageSize pieces at PackagePriceCents; flavor mixes inside a package are
// priced from the per-piece price (PackagePriceCents / PackageSize).
type Product struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"type:varchar(255);not null" json:"name"`
	PackageSize       int       `gorm:"not null" json:"package_size"`
	PackagePriceCents int64     `gorm:"not null" json:"package_price_cents"`
	Flavors           []Flavor  `gorm:"many2many:product_flavors" json:"flavors"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null" json:"updated_at"`
}
