package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/sunrise-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

type checkoutSettler interface {
	Confirm(ctx context.Context, input checkout.ConfirmInput) (*checkout.ConfirmResult, error)
	FailByReference(ctx context.Context, reference, reason string) error
}

type ServiceParams struct {
	Checkout checkoutSettler
	Logger   *logger.Logger
}

// Service settles payment attempts from Stripe payment intent events.
type Service struct {
	checkout checkoutSettler
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service required")
	}
	return &Service{
		checkout: params.Checkout,
		logg:     params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		_, err = s.checkout.Confirm(ctx, checkout.ConfirmInput{PaymentReference: intent.ID})
		return s.settle(ctx, intent.ID, err)
	case stripe.EventTypePaymentIntentPaymentFailed, stripe.EventTypePaymentIntentCanceled:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.settle(ctx, intent.ID, s.checkout.FailByReference(ctx, intent.ID, failureReason(event.Type, intent)))
	default:
		return nil
	}
}

// settle swallows outcomes that retrying the delivery cannot change.
func (s *Service) settle(ctx context.Context, reference string, err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) ||
		pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) ||
		pkgerrors.IsCode(err, pkgerrors.CodePaymentDeclined) {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "stripe event ignored for "+reference)
		}
		return nil
	}
	return err
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &intent, nil
}

func failureReason(eventType stripe.EventType, intent *stripe.PaymentIntent) string {
	if eventType == stripe.EventTypePaymentIntentCanceled {
		if intent.CancellationReason != "" {
			return "canceled: " + string(intent.CancellationReason)
		}
		return "canceled"
	}
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		return intent.LastPaymentError.Msg
	}
	return "payment failed"
}
