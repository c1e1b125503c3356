// Package payments adapts card processors to the checkout flow. Amounts are
// always integer cents computed by the pricing calculator.
package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/sunrise-backend/pkg/enums"
)

// IntentRequest asks the processor to prepare a charge for exactly AmountCents.
type IntentRequest struct {
	AmountCents    int64
	Currency       enums.Currency
	ReceiptEmail   string
	IdempotencyKey string
	Metadata       map[string]string
}

// Intent is what the storefront needs to collect card details.
type Intent struct {
	Provider     enums.PaymentProvider
	Reference    string
	ClientSecret string
}

// ConfirmRequest settles a prepared intent. SourceID is the tokenized card for
// processors that charge on confirm.
type ConfirmRequest struct {
	Reference   string
	SourceID    string
	AmountCents int64
	Currency    enums.Currency
	BuyerEmail  string
}

// Confirmation reports a captured payment.
type Confirmation struct {
	Reference          string
	ProcessorPaymentID string
	AmountCents        int64
}

// Gateway is one payment processor.
type Gateway interface {
	Provider() enums.PaymentProvider
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	ConfirmPayment(ctx context.Context, req ConfirmRequest) (*Confirmation, error)
	CancelIntent(ctx context.Context, reference string) error
}

func (r IntentRequest) validate() error {
	if r.AmountCents <= 0 {
		return fmt.Errorf("payment amount must be positive, got %d", r.AmountCents)
	}
	if !r.Currency.IsValid() {
		return fmt.Errorf("unsupported currency %q", r.Currency)
	}
	return nil
}

func (r ConfirmRequest) validate() error {
	if strings.TrimSpace(r.Reference) == "" {
		return fmt.Errorf("payment reference is required")
	}
	if r.AmountCents <= 0 {
		return fmt.Errorf("payment amount must be positive, got %d", r.AmountCents)
	}
	return nil
}
