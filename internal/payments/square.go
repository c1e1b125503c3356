package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
	pkgsquare "github.com/angelmondragon/sunrise-backend/pkg/square"
)

const squarePaymentCompleted = "COMPLETED"

// SquarePaymentsClient is the slice of the Square wrapper the gateway calls.
type SquarePaymentsClient interface {
	CreatePayment(ctx context.Context, params pkgsquare.PaymentCreateParams) (*sq.Payment, error)
}

// SquareGateway charges at confirm time. The intent is a local reference that
// doubles as the Square idempotency key, so a resubmitted confirm never charges twice.
type SquareGateway struct {
	client SquarePaymentsClient
	logg   *logger.Logger
	newRef func() string
}

func NewSquareGateway(client SquarePaymentsClient, logg *logger.Logger) (*SquareGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("square payments client required")
	}
	return &SquareGateway{
		client: client,
		logg:   logg,
		newRef: func() string { return "sq_" + uuid.NewString() },
	}, nil
}

func (g *SquareGateway) Provider() enums.PaymentProvider {
	return enums.PaymentProviderSquare
}

func (g *SquareGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if err := req.validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invalid payment intent request")
	}
	return &Intent{Provider: enums.PaymentProviderSquare, Reference: g.newRef()}, nil
}

func (g *SquareGateway) ConfirmPayment(ctx context.Context, req ConfirmRequest) (*Confirmation, error) {
	if err := req.validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment confirmation")
	}
	if req.SourceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card source is required")
	}

	payment, err := g.client.CreatePayment(ctx, pkgsquare.PaymentCreateParams{
		AmountCents:    req.AmountCents,
		Currency:       string(req.Currency),
		SourceID:       req.SourceID,
		IdempotencyKey: req.Reference,
		ReferenceID:    req.Reference,
		BuyerEmail:     req.BuyerEmail,
	})
	if err != nil {
		return nil, err
	}

	status := ""
	if payment.GetStatus() != nil {
		status = *payment.GetStatus()
	}
	if status != squarePaymentCompleted {
		return nil, pkgerrors.New(pkgerrors.CodePaymentDeclined, "payment was not completed").
			WithDetails(map[string]any{"status": status})
	}

	var charged int64
	if money := payment.GetAmountMoney(); money != nil && money.Amount != nil {
		charged = *money.Amount
	}
	paymentID := ""
	if payment.GetID() != nil {
		paymentID = *payment.GetID()
	}
	return &Confirmation{Reference: req.Reference, ProcessorPaymentID: paymentID, AmountCents: charged}, nil
}

// CancelIntent is a no-op: nothing is authorized before confirm.
func (g *SquareGateway) CancelIntent(ctx context.Context, reference string) error {
	return nil
}
