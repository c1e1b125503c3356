package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

// PaymentIntentClient exposes the Stripe PaymentIntent calls checkout needs.
// *pkg/stripe.Client satisfies it.
type PaymentIntentClient interface {
	New(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	Cancel(ctx context.Context, id string) (*stripe.PaymentIntent, error)
}

// StripeGateway uses PaymentIntents: the storefront confirms the card with the
// client secret and the backend verifies the intent succeeded.
type StripeGateway struct {
	client PaymentIntentClient
	logg   *logger.Logger
}

func NewStripeGateway(client PaymentIntentClient, logg *logger.Logger) (*StripeGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe payment intent client required")
	}
	return &StripeGateway{client: client, logg: logg}, nil
}

func (g *StripeGateway) Provider() enums.PaymentProvider {
	return enums.PaymentProviderStripe
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if err := req.validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invalid payment intent request")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(string(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	intent, err := g.client.New(ctx, params)
	if err != nil {
		return nil, mapStripeError(err, "create payment intent")
	}
	return &Intent{
		Provider:     enums.PaymentProviderStripe,
		Reference:    intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// ConfirmPayment succeeds only when the intent has succeeded for the recorded amount.
func (g *StripeGateway) ConfirmPayment(ctx context.Context, req ConfirmRequest) (*Confirmation, error) {
	if err := req.validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment confirmation")
	}

	intent, err := g.client.Get(ctx, req.Reference)
	if err != nil {
		return nil, mapStripeError(err, "retrieve payment intent")
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
	case stripe.PaymentIntentStatusRequiresPaymentMethod, stripe.PaymentIntentStatusCanceled:
		details := map[string]any{"status": string(intent.Status)}
		if intent.LastPaymentError != nil {
			details["declineCode"] = string(intent.LastPaymentError.DeclineCode)
			details["reason"] = intent.LastPaymentError.Msg
		}
		return nil, pkgerrors.New(pkgerrors.CodePaymentDeclined, "payment was not completed").WithDetails(details)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not complete yet").
			WithDetails(map[string]any{"status": string(intent.Status)})
	}

	if intent.Amount != req.AmountCents {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment amount does not match the priced cart").
			WithDetails(map[string]any{"charged": intent.Amount, "expected": req.AmountCents})
	}

	return &Confirmation{
		Reference:          intent.ID,
		ProcessorPaymentID: intent.ID,
		AmountCents:        intent.Amount,
	}, nil
}

// CancelIntent releases an unpaid intent. Intents that already settled are left alone.
func (g *StripeGateway) CancelIntent(ctx context.Context, reference string) error {
	if _, err := g.client.Cancel(ctx, reference); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodePaymentIntentUnexpectedState {
			if g.logg != nil {
				g.logg.Warn(g.logg.WithPaymentReference(ctx, reference), "payment intent could not be canceled in its current state")
			}
			return nil
		}
		return mapStripeError(err, "cancel payment intent")
	}
	return nil
}

func mapStripeError(err error, op string) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("stripe %s failed", op))
	}
	switch {
	case stripeErr.Type == stripe.ErrorTypeCard:
		return pkgerrors.Wrap(pkgerrors.CodePaymentDeclined, err, fmt.Sprintf("stripe %s declined", op)).
			WithDetails(map[string]any{"declineCode": string(stripeErr.DeclineCode), "reason": stripeErr.Msg})
	case stripeErr.HTTPStatusCode == http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "payment not found")
	case stripeErr.Type == stripe.ErrorTypeIdempotency:
		return pkgerrors.Wrap(pkgerrors.CodeIdempotency, err, fmt.Sprintf("stripe %s idempotency conflict", op))
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("stripe %s failed", op))
	}
}
