package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	squarewebhook "github.com/angelmondragon/sunrise-backend/internal/webhooks/square"
)

const squareTestURL = "https://api.sunrise.test/api/v1/webhooks/square"

func TestSquareWebhook_SuccessAndIdempotent(t *testing.T) {
	payload := buildSquareEvent()
	header := buildSquareSignature(payload, squareTestURL, "secret")
	service := &fakeSquareWebhookService{}
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret", url: squareTestURL}, newGuard(t, "square-webhook"), nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", bytes.NewReader(payload))
		req.Header.Set(squareSignatureHeader, header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d (%s)", i, rec.Code, rec.Body.String())
		}
	}
	if service.calls != 1 {
		t.Fatalf("duplicate should not be processed, got %d calls", service.calls)
	}
	if service.lastReference != "sq_ref_1" {
		t.Fatalf("expected decoded payment reference, got %q", service.lastReference)
	}
}

func TestSquareWebhook_InvalidSignature(t *testing.T) {
	payload := buildSquareEvent()
	service := &fakeSquareWebhookService{}
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret", url: squareTestURL}, newGuard(t, "square-webhook"), nil)

	for _, header := range []string{"invalid", buildSquareSignature(payload, "https://other.test/hook", "secret")} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", bytes.NewReader(payload))
		req.Header.Set(squareSignatureHeader, header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for invalid signature, got %d", rec.Code)
		}
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func buildSquareEvent() []byte {
	return []byte(`{"event_id":"` + uuid.NewString() + `","type":"payment.updated","data":{"type":"payment","id":"pay-1",` +
		`"object":{"payment":{"id":"pay-1","status":"FAILED","reference_id":"sq_ref_1"}}}}`)
}

func buildSquareSignature(payload []byte, url, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(url))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type fakeSquareWebhookService struct {
	calls         int
	lastReference string
}

func (f *fakeSquareWebhookService) HandleEvent(ctx context.Context, event *squarewebhook.SquareWebhookEvent) error {
	f.calls++
	if p := event.Data.Object.Payment; p != nil && p.ReferenceID != nil {
		f.lastReference = *p.ReferenceID
	}
	return nil
}

func TestSquareWebhook_Unavailable(t *testing.T) {
	payload := buildSquareEvent()
	cases := map[string]http.HandlerFunc{
		"service": SquareWebhook(nil, &fakeSigningClient{secret: "secret"}, newGuard(t, "square-webhook"), nil),
		"guard":   SquareWebhook(&fakeSquareWebhookService{}, &fakeSigningClient{secret: "secret"}, nil, nil),
	}
	for name, handler := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", name, rec.Code)
		}
	}
}
