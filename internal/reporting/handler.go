package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/angelmondragon/sunrise-backend/internal/eventing/worker"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
	"github.com/angelmondragon/sunrise-backend/pkg/outbox/payloads"
)

// ConsumerName scopes the idempotency keys of the reporting consumer.
const ConsumerName = "order-reporting"

// OrderFactRow is one paid order in the order_facts table.
type OrderFactRow struct {
	EventID          string             `bigquery:"event_id"`
	OrderID          string             `bigquery:"order_id"`
	OccurredAt       time.Time          `bigquery:"occurred_at"`
	DeliveryDate     string             `bigquery:"delivery_date"`
	DeliveryTime     string             `bigquery:"delivery_time"`
	PaymentProvider  string             `bigquery:"payment_provider"`
	PaymentReference string             `bigquery:"payment_reference"`
	Currency         string             `bigquery:"currency"`
	ItemCount        int64              `bigquery:"item_count"`
	SubtotalCents    int64              `bigquery:"subtotal_cents"`
	TaxCents         int64              `bigquery:"tax_cents"`
	DeliveryFeeCents int64              `bigquery:"delivery_fee_cents"`
	TipCents         int64              `bigquery:"tip_cents"`
	TotalCents       int64              `bigquery:"total_cents"`
	Items            cbigquery.NullJSON `bigquery:"items"`
}

type factInserter interface {
	Insert(ctx context.Context, row *OrderFactRow) error
}

// OrderFactsHandler turns order_created events into order fact rows.
type OrderFactsHandler struct {
	writer factInserter
	logg   *logger.Logger
}

// NewOrderFactsHandler wires the fact writer.
func NewOrderFactsHandler(writer factInserter, logg *logger.Logger) (*OrderFactsHandler, error) {
	if writer == nil {
		return nil, errors.New("fact writer required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &OrderFactsHandler{writer: writer, logg: logg}, nil
}

// Handle implements worker.Handler.
func (h *OrderFactsHandler) Handle(ctx context.Context, envelope worker.Envelope) error {
	if envelope.EventType != enums.EventOrderCreated {
		return worker.ErrUnsupportedEventType
	}

	var event payloads.OrderCreatedEvent
	if err := envelope.Decode(&event); err != nil {
		return err
	}
	ctx = h.logg.WithOrderID(ctx, event.OrderID.String())

	row, err := buildOrderFactRow(envelope, event)
	if err != nil {
		return fmt.Errorf("build order fact row: %w", err)
	}
	if err := h.writer.Insert(ctx, row); err != nil {
		return err
	}
	h.logg.Info(ctx, "order fact recorded")
	return nil
}

func buildOrderFactRow(envelope worker.Envelope, event payloads.OrderCreatedEvent) (*OrderFactRow, error) {
	items, err := encodeJSON(event.Items)
	if err != nil {
		return nil, err
	}

	var count int64
	for _, item := range event.Items {
		count += int64(item.Quantity)
	}

	occurredAt := envelope.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = event.CreatedAt.UTC()
	}

	return &OrderFactRow{
		EventID:          envelope.EventID,
		OrderID:          event.OrderID.String(),
		OccurredAt:       occurredAt,
		DeliveryDate:     event.DeliveryDate,
		DeliveryTime:     event.DeliveryTime,
		PaymentProvider:  string(event.PaymentProvider),
		PaymentReference: event.PaymentReference,
		Currency:         string(event.Currency),
		ItemCount:        count,
		SubtotalCents:    event.SubtotalCents,
		TaxCents:         event.TaxCents,
		DeliveryFeeCents: event.DeliveryFeeCents,
		TipCents:         event.TipCents,
		TotalCents:       event.TotalCents,
		Items:            items,
	}, nil
}
