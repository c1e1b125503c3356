package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sunrise-backend/pkg/enums"
)

// Order is written once per confirmed payment; PaymentReference is unique.
type Order struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Status           enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'paid'"`
	PurchaserEmail   string                `gorm:"column:purchaser_email;not null"`
	PurchaserPhone   string                `gorm:"column:purchaser_phone;not null"`
	RecipientPhone   *string               `gorm:"column:recipient_phone"`
	DeliveryDate     time.Time             `gorm:"column:delivery_date;type:date;not null"`
	DeliveryTime     string                `gorm:"column:delivery_time;not null"`
	DeliveryAddress  string                `gorm:"column:delivery_address;not null"`
	CustomNote       *string               `gorm:"column:custom_note"`
	SubtotalCents    int64                 `gorm:"column:subtotal_cents;not null"`
	TaxCents         int64                 `gorm:"column:tax_cents;not null"`
	DeliveryFeeCents int64                 `gorm:"column:delivery_fee_cents;not null"`
	TipCents         int64                 `gorm:"column:tip_cents;not null"`
	TotalCents       int64                 `gorm:"column:total_cents;not null"`
	Currency         enums.Currency        `gorm:"column:currency;type:text;not null;default:'usd'"`
	PaymentProvider  enums.PaymentProvider `gorm:"column:payment_provider;type:text;not null"`
	PaymentReference string                `gorm:"column:payment_reference;not null;uniqueIndex:ux_orders_payment_reference"`
	Items            []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots a cart line item at purchase time.
type OrderItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index:idx_order_items_order"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name           string          `gorm:"column:name;not null"`
	UnitPriceCents int64           `gorm:"column:unit_price_cents;not null"`
	Additions      json.RawMessage `gorm:"column:additions;type:jsonb;not null"`
	Subtractions   json.RawMessage `gorm:"column:subtractions;type:jsonb;not null"`
	Note           string          `gorm:"column:note;not null;default:''"`
	Quantity       int             `gorm:"column:quantity;not null"`
	LineTotalCents int64           `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
