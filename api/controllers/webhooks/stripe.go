package webhooks

import (
	"context"
	"net/http"

	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

const stripeSignatureHeader = "Stripe-Signature"

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type stripeClient interface {
	SigningSecret() string
}

// StripeWebhook verifies and dispatches Stripe payment intent events.
func StripeWebhook(svc StripeWebhookService, client stripeClient, guard eventGuard, logg *logger.Logger) http.HandlerFunc {
	switch {
	case svc == nil:
		return unavailable("webhook service")
	case client == nil:
		return unavailable("stripe client")
	}

	rc := receiver[*stripe.Event]{
		provider: "stripe",
		guard:    guard,
		logg:     logg,
		handle:   svc.HandleEvent,
		verify: func(r *http.Request, payload []byte) (*stripe.Event, string, error) {
			header := r.Header.Get(stripeSignatureHeader)
			if header == "" {
				return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing")
			}
			event, err := webhook.ConstructEvent(payload, header, client.SigningSecret())
			if err != nil {
				return nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "verify signature")
			}
			return &event, event.ID, nil
		},
	}
	return rc.ServeHTTP
}
