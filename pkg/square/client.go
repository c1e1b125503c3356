package square

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

var baseURLs = map[string]string{
	"sandbox":    "https://connect.squareupsandbox.com",
	"production": "https://connect.squareup.com",
}

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errLocationRequired    = errors.New("square location id is required")
	errInvalidSquareEnv    = errors.New(`square environment must be "sandbox" or "production"`)
	errLoggerRequired      = errors.New("square logger is required")
)

// Client takes card payments at one Square location and carries the webhook
// signature settings for that subscription.
type Client struct {
	payments        paymentsAPI
	locationID      string
	signatureKey    string
	notificationURL string
	logg            *logger.Logger
}

type paymentsAPI interface {
	Create(ctx context.Context, req *sq.CreatePaymentRequest, opts ...sqoption.RequestOption) (*sq.CreatePaymentResponse, error)
}

func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env := cfg.Environment()
	baseURL, ok := baseURLs[env]
	if !ok {
		return nil, errInvalidSquareEnv
	}
	token := strings.TrimSpace(cfg.AccessToken)
	location := strings.TrimSpace(cfg.LocationID)
	switch {
	case token == "":
		return nil, errAccessTokenRequired
	case location == "":
		return nil, errLocationRequired
	}

	sdk := sqclient.NewClient(sqoption.WithBaseURL(baseURL), sqoption.WithToken(token))
	logg.Info(logg.WithFields(ctx, map[string]any{"square_env": env, "location_id": location}), "square client initialized")
	return &Client{
		payments:        sdk.Payments,
		locationID:      location,
		signatureKey:    strings.TrimSpace(cfg.WebhookSignatureKey),
		notificationURL: strings.TrimSpace(cfg.WebhookURL),
		logg:            logg,
	}, nil
}

// SigningSecret returns the webhook subscription signature key.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signatureKey
}

// NotificationURL returns the URL Square signs webhook deliveries against.
func (c *Client) NotificationURL() string {
	if c == nil {
		return ""
	}
	return c.notificationURL
}

// CreatePayment charges params.SourceID and autocompletes the payment. The
// configured location is used unless params names one. Without an
// idempotency key a random one is generated.
func (c *Client) CreatePayment(ctx context.Context, params PaymentCreateParams) (*sq.Payment, error) {
	if params.LocationID == "" {
		params.LocationID = c.locationID
	}
	if strings.TrimSpace(params.IdempotencyKey) == "" {
		params.IdempotencyKey = "payment-" + uuid.NewString()
	}

	ctx = c.logg.WithFields(ctx, map[string]any{
		"operation":    "create_payment",
		"location_id":  params.LocationID,
		"reference_id": params.ReferenceID,
		"amount_cents": params.AmountCents,
	})
	resp, err := c.payments.Create(ctx, params.request())
	if err != nil {
		mapped := mapError(err, "create payment")
		c.logg.Error(ctx, "square create payment failed", mapped)
		return nil, mapped
	}

	payment := resp.GetPayment()
	c.logg.Info(c.logg.WithFields(ctx, map[string]any{
		"payment_id": deref(payment.GetID()),
		"status":     deref(payment.GetStatus()),
	}), "square payment created")
	return payment, nil
}

// PaymentCreateParams are the inputs for a card payment. Blank optional
// fields are omitted from the request.
type PaymentCreateParams struct {
	AmountCents    int64
	Currency       string
	LocationID     string
	SourceID       string
	IdempotencyKey string
	BuyerEmail     string
	Note           string
	ReferenceID    string
}

func (p PaymentCreateParams) request() *sq.CreatePaymentRequest {
	autocomplete := true
	req := &sq.CreatePaymentRequest{
		IdempotencyKey:    p.IdempotencyKey,
		SourceID:          p.SourceID,
		Autocomplete:      &autocomplete,
		LocationID:        optional(p.LocationID),
		BuyerEmailAddress: optional(p.BuyerEmail),
		Note:              optional(p.Note),
		ReferenceID:       optional(p.ReferenceID),
	}
	if p.AmountCents > 0 {
		amount := p.AmountCents
		currency := sq.Currency(strings.ToUpper(strings.TrimSpace(p.Currency)))
		if currency == "" {
			currency = "USD"
		}
		req.AmountMoney = &sq.Money{Amount: &amount, Currency: &currency}
	}
	return req
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

