package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	squarewebhook "github.com/angelmondragon/sunrise-backend/internal/webhooks/square"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

const squareSignatureHeader = "X-Square-Hmacsha256-Signature"

type SquareWebhookService interface {
	HandleEvent(ctx context.Context, event *squarewebhook.SquareWebhookEvent) error
}

type squareClient interface {
	SigningSecret() string
	NotificationURL() string
}

// SquareWebhook verifies and dispatches Square payment events.
func SquareWebhook(svc SquareWebhookService, client squareClient, guard eventGuard, logg *logger.Logger) http.HandlerFunc {
	switch {
	case svc == nil:
		return unavailable("webhook service")
	case client == nil:
		return unavailable("square client")
	}

	rc := receiver[*squarewebhook.SquareWebhookEvent]{
		provider: "square",
		guard:    guard,
		logg:     logg,
		handle:   svc.HandleEvent,
		verify: func(r *http.Request, payload []byte) (*squarewebhook.SquareWebhookEvent, string, error) {
			header := r.Header.Get(squareSignatureHeader)
			if header == "" {
				return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "square signature missing")
			}
			if !squareSignatureValid(payload, client.NotificationURL(), client.SigningSecret(), header) {
				return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid square signature")
			}

			var event squarewebhook.SquareWebhookEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event")
			}
			id := strings.TrimSpace(event.EventID)
			if id == "" {
				id = event.Data.ID
			}
			if id == "" {
				return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "square event id missing")
			}
			return &event, id, nil
		},
	}
	return rc.ServeHTTP
}

// squareSignatureValid checks base64(HMAC-SHA256(key, notificationURL+body)).
func squareSignatureValid(payload []byte, notificationURL, secret, header string) bool {
	if secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(notificationURL))
	mac.Write(payload)
	want := mac.Sum(nil)
	got, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}
