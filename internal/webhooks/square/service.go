package squarewebhook

import (
	"context"
	"strings"

	sq "github.com/square/square-go-sdk"

	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

const (
	eventPaymentUpdated = "payment.updated"

	paymentStatusFailed   = "FAILED"
	paymentStatusCanceled = "CANCELED"
)

type attemptFailer interface {
	FailByReference(ctx context.Context, reference, reason string) error
}

type ServiceParams struct {
	Checkout attemptFailer
	Logger   *logger.Logger
}

type Service struct {
	checkout attemptFailer
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

type SquareWebhookEvent struct {
	EventID string            `json:"event_id"`
	Type    string            `json:"type"`
	Data    SquareWebhookData `json:"data"`
}

type SquareWebhookData struct {
	Type   string              `json:"type"`
	ID     string              `json:"id"`
	Object SquareWebhookObject `json:"object"`
}

type SquareWebhookObject struct {
	Payment *sq.Payment `json:"payment"`
}

// HandleEvent fails pending attempts whose Square payment ended FAILED or CANCELED.
// Completed payments are settled synchronously by checkout confirm.
func (s *Service) HandleEvent(ctx context.Context, event *SquareWebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}
	if strings.ToLower(event.Type) != eventPaymentUpdated {
		return nil
	}

	payment := event.Data.Object.Payment
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment payload missing")
	}
	status := strings.ToUpper(deref(payment.GetStatus()))
	if status != paymentStatusFailed && status != paymentStatusCanceled {
		return nil
	}
	reference := deref(payment.GetReferenceID())
	if reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference_id missing")
	}

	err := s.checkout.FailByReference(ctx, reference, "square payment "+strings.ToLower(status))
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) || pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithPaymentReference(ctx, reference), "square payment event ignored")
		}
		return nil
	}
	return err
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
