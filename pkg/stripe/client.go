package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

// Mode selects which Stripe account data the keys may touch.
type Mode string

const (
	ModeTest Mode = "test"
	ModeLive Mode = "live"
)

// keyPrefixes lists the secret and restricted key prefixes accepted per mode.
var keyPrefixes = map[Mode][]string{
	ModeTest: {"sk_test_", "rk_test_"},
	ModeLive: {"sk_live_", "rk_live_"},
}

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", ModeTest, ModeLive)
)

// Client holds a key-scoped PaymentIntent client and the webhook signing secret.
// It never touches the package-level stripe.Key.
type Client struct {
	mode    Mode
	secret  string
	intents *paymentintent.Client
}

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	mode := Mode(cfg.Environment())
	prefixes, ok := keyPrefixes[mode]
	if !ok {
		return nil, errInvalidStripeEnv
	}

	key := strings.TrimSpace(cfg.APIKey)
	secret := strings.TrimSpace(cfg.Secret)
	switch {
	case key == "":
		return nil, errAPIKeyRequired
	case secret == "":
		return nil, errSecretRequired
	case !hasAnyPrefix(key, prefixes):
		return nil, fmt.Errorf("stripe %s mode requires a key starting with %s", mode, strings.Join(prefixes, " or "))
	}

	c := &Client{
		mode:    mode,
		secret:  secret,
		intents: &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: key},
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_mode", string(mode)), "stripe client ready")
	}
	return c, nil
}

func (c *Client) Mode() Mode {
	if c == nil {
		return ""
	}
	return c.mode
}

// SigningSecret returns the webhook endpoint secret (whsec_...).
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.secret
}

// New creates a PaymentIntent. Idempotency keys set on params are preserved.
func (c *Client) New(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params == nil {
		params = &stripe.PaymentIntentParams{}
	}
	params.Context = ctx
	return c.intents.New(params)
}

func (c *Client) Get(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return c.intents.Get(id, params)
}

func (c *Client) Cancel(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	return c.intents.Cancel(id, params)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
