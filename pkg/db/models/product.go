package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a breakfast offered on the menu. Only available products are listed.
type Product struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Slug         string               `gorm:"column:slug;not null;uniqueIndex:ux_products_slug"`
	Name         string               `gorm:"column:name;not null"`
	Description  string               `gorm:"column:description;not null;default:''"`
	PriceCents   int64                `gorm:"column:price_cents;not null"`
	ImageURL     string               `gorm:"column:image_url;not null;default:''"`
	Available    bool                 `gorm:"column:available;not null"`
	SortOrder    int                  `gorm:"column:sort_order;not null;default:0"`
	Additions    []ProductAddition    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Subtractions []ProductSubtraction `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProductAddition is a priced extra that raises the unit price of a line item.
type ProductAddition struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:idx_product_additions_product"`
	Name       string    `gorm:"column:name;not null"`
	PriceCents int64     `gorm:"column:price_cents;not null;default:0"`
	SortOrder  int       `gorm:"column:sort_order;not null;default:0"`
}

func (a *ProductAddition) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// ProductSubtraction is an ingredient the shopper may leave out. It never affects price.
type ProductSubtraction struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:idx_product_subtractions_product"`
	Name      string    `gorm:"column:name;not null"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0"`
}

func (s *ProductSubtraction) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
