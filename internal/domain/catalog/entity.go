// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a gift card brand offering one or more denominations
type Product struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	ImageURL    string         `gorm:"size:500" json:"image_url"`
	Brand       string         `gorm:"size:255;index" json:"brand"`
	IsActive    bool           `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Variants []Variant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"variants,omitempty"`
}

// Variant is a sellable denomination of a product
type Variant struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Value     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"value"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Currency  string          `gorm:"size:3;not null" json:"currency"`
	IsActive  bool            `gorm:"not null" json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName overrides
func (Product) TableName() string { return "products" }
func (Variant) TableName() string { return "variants" }

// IsLive reports whether the variant can be put in a cart or an order.
func (v *Variant) IsLive() bool {
	return v.IsActive && v.Product != nil && v.Product.IsActive
}

// ProductName returns the owning product's name, if loaded.
func (v *Variant) ProductName() string {
	if v.Product == nil {
		return ""
	}
	return v.Product.Name
}
