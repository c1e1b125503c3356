package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/sunrise-backend/internal/eventing/worker"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
	"github.com/angelmondragon/sunrise-backend/pkg/mail"
	"github.com/angelmondragon/sunrise-backend/pkg/outbox/payloads"
)

// ConsumerName scopes the idempotency keys of the confirmation email consumer.
const ConsumerName = "order-notifications"

// OrderConfirmationHandler emails the purchaser when an order_created event arrives.
type OrderConfirmationHandler struct {
	sender mail.Sender
	logg   *logger.Logger
}

// NewOrderConfirmationHandler wires the mail sender.
func NewOrderConfirmationHandler(sender mail.Sender, logg *logger.Logger) (*OrderConfirmationHandler, error) {
	if sender == nil {
		return nil, errors.New("mail sender required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &OrderConfirmationHandler{sender: sender, logg: logg}, nil
}

// Handle implements worker.Handler.
func (h *OrderConfirmationHandler) Handle(ctx context.Context, envelope worker.Envelope) error {
	if envelope.EventType != enums.EventOrderCreated {
		return worker.ErrUnsupportedEventType
	}

	var payload payloads.OrderCreatedEvent
	if err := envelope.Decode(&payload); err != nil {
		return err
	}
	ctx = h.logg.WithOrderID(ctx, payload.OrderID.String())

	if strings.TrimSpace(payload.PurchaserEmail) == "" {
		h.logg.Warn(ctx, "order has no purchaser email")
		return nil
	}

	msg, err := renderConfirmation(payload)
	if err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	h.logg.Info(ctx, "order confirmation sent")
	return nil
}
