package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/angelmondragon/sunrise-backend/pkg/db/models"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	"github.com/angelmondragon/sunrise-backend/pkg/outbox"
	"github.com/angelmondragon/sunrise-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	orderID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.OrderCreatedEvent{
		OrderID:          orderID,
		PaymentReference: "pi_123",
		TotalCents:       6643,
		Items:            []payloads.OrderCreatedItem{{Name: "Continental Breakfast", Quantity: 2}},
	})

	event := models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "orders-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.OrderID != orderID || payload.TotalCents != 6643 || len(payload.Items) != 1 {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
}

func TestEventRegistryResolvesPaymentAttemptEvents(t *testing.T) {
	reg := newTestEventRegistry(t)

	for _, eventType := range []enums.OutboxEventType{enums.EventPaymentAttemptFailed, enums.EventPaymentAttemptExpired} {
		event := models.OutboxEvent{
			EventType:     eventType,
			AggregateType: enums.AggregatePaymentAttempt,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{"reference":"pi_1","amountCents":100}`)),
		}
		if _, err := reg.Resolve(event); err != nil {
			t.Fatalf("resolve %s: %v", eventType, err)
		}
	}
}

func TestEventRegistryRejectsBadRows(t *testing.T) {
	reg := newTestEventRegistry(t)

	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     enums.OutboxEventType("order_exploded"),
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregatePaymentAttempt,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte("null")),
		},
		"broken envelope": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"data":`),
		},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			var nonRetry NonRetryableError
			if !errors.As(err, &nonRetry) {
				t.Fatalf("expected non-retryable error, got %v", err)
			}
		})
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{}); err == nil {
		t.Fatal("expected missing topic to fail")
	}
	reg := newTestEventRegistry(t)
	if topics := reg.Topics(); len(topics) != 1 || topics[0] != "orders-topic" {
		t.Fatalf("unexpected topics %v", topics)
	}
}

func TestResolveFallsBackToRowID(t *testing.T) {
	reg := newTestEventRegistry(t)
	rowID := uuid.New()
	env, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, Data: json.RawMessage(`{"orderId":"` + uuid.NewString() + `"}`)})
	require.NoError(t, err)

	resolved, err := reg.Resolve(models.OutboxEvent{
		ID:            rowID,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       env,
	})
	require.NoError(t, err)
	require.Equal(t, rowID.String(), resolved.Envelope.EventID)
}

func TestNonRetryableErrorUnwraps(t *testing.T) {
	base := errors.New("boom")
	err := NewNonRetryableError(base)
	require.ErrorIs(t, err, base)
	require.Equal(t, "non-retryable error", NonRetryableError{}.Error())
}

func TestTopicsAreDistinctAndSorted(t *testing.T) {
	reg := newEventRegistry(
		describe[payloads.OrderCreatedEvent](enums.EventOrderCreated, enums.AggregateOrder, "z-orders"),
		describe[payloads.PaymentAttemptFailedEvent](enums.EventPaymentAttemptFailed, enums.AggregatePaymentAttempt, "a-payments"),
		describe[payloads.PaymentAttemptExpiredEvent](enums.EventPaymentAttemptExpired, enums.AggregatePaymentAttempt, "a-payments"),
	)
	require.Equal(t, []string{"a-payments", "z-orders"}, reg.Topics())
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders-topic"})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}
