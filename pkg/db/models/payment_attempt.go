package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sunrise-backend/pkg/enums"
)

// PaymentAttempt records one payment intent together with the cart and
// delivery details it was priced from, so confirmation never re-reads the cart.
type PaymentAttempt struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	SessionID     string                     `gorm:"column:session_id;not null;index:idx_payment_attempts_session"`
	Provider      enums.PaymentProvider      `gorm:"column:provider;type:text;not null"`
	Reference     string                     `gorm:"column:reference;not null;uniqueIndex:ux_payment_attempts_reference"`
	Status        enums.PaymentAttemptStatus `gorm:"column:status;type:text;not null;default:'pending';index:idx_payment_attempts_status_expires,priority:1"`
	AmountCents   int64                      `gorm:"column:amount_cents;not null"`
	Currency      enums.Currency             `gorm:"column:currency;type:text;not null"`
	Breakdown     json.RawMessage            `gorm:"column:breakdown;type:jsonb;not null"`
	CartSnapshot  json.RawMessage            `gorm:"column:cart_snapshot;type:jsonb;not null"`
	Details       json.RawMessage            `gorm:"column:delivery_details;type:jsonb;not null"`
	OrderID       *uuid.UUID                 `gorm:"column:order_id;type:uuid"`
	FailureReason *string                    `gorm:"column:failure_reason"`
	ExpiresAt     time.Time                  `gorm:"column:expires_at;not null;index:idx_payment_attempts_status_expires,priority:2"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PaymentAttempt) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
