package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sunrise-backend/pkg/enums"
)

// OrderCreatedEvent is emitted in the transaction that writes a paid order.
// It carries enough to send the confirmation email and to load reporting rows
// without reading the database.
type OrderCreatedEvent struct {
	OrderID          uuid.UUID             `json:"orderId"`
	PaymentProvider  enums.PaymentProvider `json:"paymentProvider"`
	PaymentReference string                `json:"paymentReference"`
	PurchaserEmail   string                `json:"purchaserEmail"`
	PurchaserPhone   string                `json:"purchaserPhone"`
	RecipientPhone   string                `json:"recipientPhone,omitempty"`
	DeliveryDate     string                `json:"deliveryDate"`
	DeliveryTime     string                `json:"deliveryTime"`
	DeliveryAddress  string                `json:"deliveryAddress"`
	CustomNote       string                `json:"customNote,omitempty"`
	Currency         enums.Currency        `json:"currency"`
	SubtotalCents    int64                 `json:"subtotalCents"`
	TaxCents         int64                 `json:"taxCents"`
	DeliveryFeeCents int64                 `json:"deliveryFeeCents"`
	TipCents         int64                 `json:"tipCents"`
	TotalCents       int64                 `json:"totalCents"`
	Items            []OrderCreatedItem    `json:"items"`
	CreatedAt        time.Time             `json:"createdAt"`
}

type OrderCreatedItem struct {
	ProductID      uuid.UUID `json:"productId"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	LineTotalCents int64     `json:"lineTotalCents"`
	Additions      []string  `json:"additions,omitempty"`
	Subtractions   []string  `json:"subtractions,omitempty"`
	Note           string    `json:"note,omitempty"`
}

// PaymentAttemptFailedEvent reports a declined or failed payment.
type PaymentAttemptFailedEvent struct {
	AttemptID   uuid.UUID             `json:"attemptId"`
	Provider    enums.PaymentProvider `json:"provider"`
	Reference   string                `json:"reference"`
	AmountCents int64                 `json:"amountCents"`
	Reason      string                `json:"reason"`
	FailedAt    time.Time             `json:"failedAt"`
}

// PaymentAttemptExpiredEvent reports a pending attempt swept by the expiry job.
type PaymentAttemptExpiredEvent struct {
	AttemptID   uuid.UUID             `json:"attemptId"`
	Provider    enums.PaymentProvider `json:"provider"`
	Reference   string                `json:"reference"`
	AmountCents int64                 `json:"amountCents"`
	ExpiredAt   time.Time             `json:"expiredAt"`
}
