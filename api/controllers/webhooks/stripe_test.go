package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

const stripeTestSecret = "whsec_test"

type stripeDelivery struct {
	payload []byte
	header  string
}

func (d stripeDelivery) send(h http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(d.payload))
	if d.header != "" {
		req.Header.Set("Stripe-Signature", d.header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// signedIntentEvent builds a payment_intent.succeeded event signed with secret at ts.
func signedIntentEvent(t *testing.T, secret string, ts time.Time) stripeDelivery {
	t.Helper()
	intent, err := json.Marshal(map[string]any{
		"id":     "pi_" + uuid.NewString(),
		"object": "payment_intent",
		"status": "succeeded",
		"amount": 6660,
	})
	require.NoError(t, err)

	payload, err := json.Marshal(&stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Object:     "event",
		Type:       stripe.EventTypePaymentIntentSucceeded,
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: intent},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: ts,
	})
	return stripeDelivery{payload: signed.Payload, header: signed.Header}
}

func TestStripeWebhookProcessesOnce(t *testing.T) {
	svc := &fakeStripeWebhookService{}
	handler := StripeWebhook(svc, &fakeSigningClient{secret: stripeTestSecret}, newGuard(t, "stripe-webhook"), nil)
	delivery := signedIntentEvent(t, stripeTestSecret, time.Now())

	for i := range 3 {
		rec := delivery.send(handler)
		require.Equal(t, http.StatusOK, rec.Code, "delivery %d: %s", i, rec.Body.String())
	}
	require.Equal(t, 1, svc.calls)
	require.Equal(t, stripe.EventTypePaymentIntentSucceeded, svc.lastType)
}

func TestStripeWebhookReleasesEventWhenHandlingFails(t *testing.T) {
	svc := &fakeStripeWebhookService{err: errors.New("db down")}
	handler := StripeWebhook(svc, &fakeSigningClient{secret: stripeTestSecret}, newGuard(t, "stripe-webhook"), nil)
	delivery := signedIntentEvent(t, stripeTestSecret, time.Now())

	require.Equal(t, http.StatusInternalServerError, delivery.send(handler).Code)
	require.Equal(t, http.StatusInternalServerError, delivery.send(handler).Code)
	require.Equal(t, 2, svc.calls)

	svc.err = nil
	require.Equal(t, http.StatusOK, delivery.send(handler).Code)
	require.Equal(t, 3, svc.calls)
}

func TestStripeWebhookRejectsUnverifiedDeliveries(t *testing.T) {
	good := signedIntentEvent(t, stripeTestSecret, time.Now())

	cases := map[string]struct {
		delivery stripeDelivery
		want     int
	}{
		"missing header": {stripeDelivery{payload: good.payload}, http.StatusBadRequest},
		"garbage header": {stripeDelivery{payload: good.payload, header: "t=1,v1=invalid"}, http.StatusUnauthorized},
		"wrong secret":   {signedIntentEvent(t, "whsec_other", time.Now()), http.StatusUnauthorized},
		"stale":          {signedIntentEvent(t, stripeTestSecret, time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		"tampered body":  {stripeDelivery{payload: append(bytes.Clone(good.payload), ' '), header: good.header}, http.StatusUnauthorized},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &fakeStripeWebhookService{}
			handler := StripeWebhook(svc, &fakeSigningClient{secret: stripeTestSecret}, newGuard(t, "stripe-webhook"), nil)

			require.Equal(t, tc.want, tc.delivery.send(handler).Code)
			require.Zero(t, svc.calls)
		})
	}
}

func TestStripeWebhookUnavailableWithoutDependencies(t *testing.T) {
	delivery := signedIntentEvent(t, stripeTestSecret, time.Now())
	client := &fakeSigningClient{secret: stripeTestSecret}

	require.Equal(t, http.StatusInternalServerError, delivery.send(StripeWebhook(nil, client, newGuard(t, "s"), nil)).Code)
	require.Equal(t, http.StatusInternalServerError, delivery.send(StripeWebhook(&fakeStripeWebhookService{}, client, nil, nil)).Code)
}

type fakeStripeWebhookService struct {
	calls    int
	lastType stripe.EventType
	err      error
}

func (f *fakeStripeWebhookService) HandleEvent(_ context.Context, event *stripe.Event) error {
	f.calls++
	f.lastType = event.Type
	return f.err
}
