package checkout

import (
	"time"

	"github.com/angelmondragon/sunrise-backend/internal/orders"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	"github.com/angelmondragon/sunrise-backend/pkg/pricing"
)

// BeginResult is what the storefront needs to collect payment. ClientSecret
// is empty for processors that charge a card token on confirm.
type BeginResult struct {
	Provider         enums.PaymentProvider `json:"provider"`
	PaymentReference string                `json:"paymentReference"`
	ClientSecret     string                `json:"clientSecret,omitempty"`
	Breakdown        pricing.Breakdown     `json:"breakdown"`
	Currency         enums.Currency        `json:"currency"`
	ExpiresAt        time.Time             `json:"expiresAt"`
}

type ConfirmInput struct {
	PaymentReference string `json:"paymentReference" validate:"required"`
	SourceID         string `json:"sourceId,omitempty"`
}

// ConfirmResult carries the order; Replayed is set when the payment was
// already confirmed by an earlier call or webhook.
type ConfirmResult struct {
	Order    orders.OrderDTO `json:"order"`
	Replayed bool            `json:"replayed"`
}
