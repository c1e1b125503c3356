package stripewebhook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stripe/stripe-go/v84"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sunrise-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
)

type stubCheckout struct {
	confirmed  []string
	failed     map[string]string
	confirmErr error
	failErr    error
}

func (s *stubCheckout) Confirm(ctx context.Context, input checkout.ConfirmInput) (*checkout.ConfirmResult, error) {
	s.confirmed = append(s.confirmed, input.PaymentReference)
	if s.confirmErr != nil {
		return nil, s.confirmErr
	}
	return &checkout.ConfirmResult{}, nil
}

func (s *stubCheckout) FailByReference(ctx context.Context, reference, reason string) error {
	if s.failed == nil {
		s.failed = map[string]string{}
	}
	s.failed[reference] = reason
	return s.failErr
}

func intentEvent(t *testing.T, eventType stripe.EventType, intent map[string]any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(intent)
	require.NoError(t, err)
	return &stripe.Event{ID: "evt_1", Type: eventType, Data: &stripe.EventData{Raw: raw}}
}

func newService(t *testing.T, stub *stubCheckout) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Checkout: stub})
	require.NoError(t, err)
	return svc
}

func TestSucceededIntentConfirmsCheckout(t *testing.T) {
	stub := &stubCheckout{}
	svc := newService(t, stub)

	err := svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]any{
		"id": "pi_123", "object": "payment_intent", "status": "succeeded",
	}))
	require.NoError(t, err)
	require.Equal(t, []string{"pi_123"}, stub.confirmed)
}

func TestFailedIntentRecordsReason(t *testing.T) {
	stub := &stubCheckout{}
	svc := newService(t, stub)

	err := svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypePaymentIntentPaymentFailed, map[string]any{
		"id": "pi_9", "object": "payment_intent",
		"last_payment_error": map[string]any{"message": "Your card was declined."},
	}))
	require.NoError(t, err)
	require.Equal(t, "Your card was declined.", stub.failed["pi_9"])
}

func TestCanceledIntentRecordsCancellation(t *testing.T) {
	stub := &stubCheckout{}
	svc := newService(t, stub)

	err := svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypePaymentIntentCanceled, map[string]any{
		"id": "pi_7", "object": "payment_intent", "cancellation_reason": "abandoned",
	}))
	require.NoError(t, err)
	require.Equal(t, "canceled: abandoned", stub.failed["pi_7"])
}

func TestSettledOutcomesAreNotRetried(t *testing.T) {
	for _, code := range []pkgerrors.Code{pkgerrors.CodeNotFound, pkgerrors.CodeStateConflict, pkgerrors.CodePaymentDeclined} {
		stub := &stubCheckout{confirmErr: pkgerrors.New(code, "nope")}
		svc := newService(t, stub)
		err := svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]any{"id": "pi_1"}))
		require.NoError(t, err, "code %s", code)
	}
}

func TestDependencyErrorsBubbleForRetry(t *testing.T) {
	stub := &stubCheckout{confirmErr: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	svc := newService(t, stub)
	err := svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]any{"id": "pi_1"}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestUnhandledAndMalformedEvents(t *testing.T) {
	stub := &stubCheckout{}
	svc := newService(t, stub)

	require.NoError(t, svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypeChargeRefunded, map[string]any{"id": "ch_1"})))
	require.Empty(t, stub.confirmed)

	err := svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]any{"status": "succeeded"}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = svc.HandleEvent(context.Background(), nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
