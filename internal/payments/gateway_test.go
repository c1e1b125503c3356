package payments

import (
	"context"
	"errors"
	"net/http"
	"testing"

	sq "github.com/square/square-go-sdk"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	pkgsquare "github.com/angelmondragon/sunrise-backend/pkg/square"
)

type stubIntentClient struct {
	created   *stripe.PaymentIntentParams
	intent    *stripe.PaymentIntent
	err       error
	cancelErr error
	canceled  []string
}

func (s *stubIntentClient) New(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	s.created = params
	if s.err != nil {
		return nil, s.err
	}
	return &stripe.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret", Amount: *params.Amount}, nil
}

func (s *stubIntentClient) Get(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.intent, nil
}

func (s *stubIntentClient) Cancel(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	s.canceled = append(s.canceled, id)
	return nil, s.cancelErr
}

func TestStripeCreateIntentForwardsAmountAndMetadata(t *testing.T) {
	client := &stubIntentClient{}
	gw, err := NewStripeGateway(client, nil)
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}

	intent, err := gw.CreateIntent(context.Background(), IntentRequest{
		AmountCents:    6643,
		Currency:       enums.CurrencyUSD,
		ReceiptEmail:   "sam@example.com",
		IdempotencyKey: "idem-1",
		Metadata:       map[string]string{"deliveryDate": "2026-10-18"},
	})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.Reference != "pi_123" || intent.ClientSecret != "pi_123_secret" {
		t.Fatalf("unexpected intent %+v", intent)
	}
	if *client.created.Amount != 6643 || *client.created.Currency != "usd" {
		t.Fatalf("unexpected params amount=%d currency=%s", *client.created.Amount, *client.created.Currency)
	}
	if !*client.created.AutomaticPaymentMethods.Enabled {
		t.Fatalf("automatic payment methods should be enabled")
	}
	if client.created.Metadata["deliveryDate"] != "2026-10-18" {
		t.Fatalf("metadata not forwarded: %v", client.created.Metadata)
	}
}

func TestStripeCreateIntentRejectsZeroAmount(t *testing.T) {
	gw, _ := NewStripeGateway(&stubIntentClient{}, nil)
	_, err := gw.CreateIntent(context.Background(), IntentRequest{AmountCents: 0, Currency: enums.CurrencyUSD})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestStripeConfirmPayment(t *testing.T) {
	cases := []struct {
		name   string
		intent *stripe.PaymentIntent
		code   pkgerrors.Code
	}{
		{"succeeded", &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded, Amount: 6643}, ""},
		{"declined", &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusRequiresPaymentMethod, Amount: 6643,
			LastPaymentError: &stripe.Error{DeclineCode: "insufficient_funds", Msg: "Your card has insufficient funds."}}, pkgerrors.CodePaymentDeclined},
		{"processing", &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusProcessing, Amount: 6643}, pkgerrors.CodeStateConflict},
		{"amount mismatch", &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded, Amount: 100}, pkgerrors.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw, _ := NewStripeGateway(&stubIntentClient{intent: tc.intent}, nil)
			conf, err := gw.ConfirmPayment(context.Background(), ConfirmRequest{Reference: "pi_1", AmountCents: 6643, Currency: enums.CurrencyUSD})
			if tc.code == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				if conf.AmountCents != 6643 || conf.Reference != "pi_1" {
					t.Fatalf("unexpected confirmation %+v", conf)
				}
				return
			}
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestMapStripeError(t *testing.T) {
	cases := []struct {
		err  error
		code pkgerrors.Code
	}{
		{&stripe.Error{Type: stripe.ErrorTypeCard, DeclineCode: "generic_decline"}, pkgerrors.CodePaymentDeclined},
		{&stripe.Error{Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: http.StatusNotFound}, pkgerrors.CodeNotFound},
		{&stripe.Error{Type: stripe.ErrorTypeIdempotency}, pkgerrors.CodeIdempotency},
		{&stripe.Error{Type: stripe.ErrorTypeAPI, HTTPStatusCode: http.StatusInternalServerError}, pkgerrors.CodeDependency},
		{errors.New("dial tcp: timeout"), pkgerrors.CodeDependency},
	}
	for _, tc := range cases {
		if got := mapStripeError(tc.err, "op"); !pkgerrors.IsCode(got, tc.code) {
			t.Fatalf("expected %s for %v, got %v", tc.code, tc.err, got)
		}
	}
}

func TestStripeCancelIgnoresSettledIntents(t *testing.T) {
	client := &stubIntentClient{cancelErr: &stripe.Error{Code: stripe.ErrorCodePaymentIntentUnexpectedState}}
	gw, _ := NewStripeGateway(client, nil)
	if err := gw.CancelIntent(context.Background(), "pi_1"); err != nil {
		t.Fatalf("expected unexpected-state cancel to be ignored, got %v", err)
	}
	client.cancelErr = errors.New("network")
	if err := gw.CancelIntent(context.Background(), "pi_1"); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

type stubSquare struct {
	params  pkgsquare.PaymentCreateParams
	payment *sq.Payment
	err     error
}

func (s *stubSquare) CreatePayment(ctx context.Context, params pkgsquare.PaymentCreateParams) (*sq.Payment, error) {
	s.params = params
	return s.payment, s.err
}

func strPtr(v string) *string { return &v }

func TestSquareGatewayConfirmUsesReferenceAsIdempotencyKey(t *testing.T) {
	amount := int64(6643)
	client := &stubSquare{payment: &sq.Payment{
		ID:          strPtr("sqpay_1"),
		Status:      strPtr("COMPLETED"),
		AmountMoney: &sq.Money{Amount: &amount},
	}}
	gw, err := NewSquareGateway(client, nil)
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	intent, err := gw.CreateIntent(context.Background(), IntentRequest{AmountCents: amount, Currency: enums.CurrencyUSD})
	if err != nil {
		t.Fatalf("intent: %v", err)
	}
	if intent.ClientSecret != "" || intent.Provider != enums.PaymentProviderSquare {
		t.Fatalf("unexpected square intent %+v", intent)
	}

	conf, err := gw.ConfirmPayment(context.Background(), ConfirmRequest{
		Reference: intent.Reference, SourceID: "cnon:ok", AmountCents: amount, Currency: enums.CurrencyUSD,
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if client.params.IdempotencyKey != intent.Reference || client.params.AmountCents != amount {
		t.Fatalf("unexpected square params %+v", client.params)
	}
	if conf.ProcessorPaymentID != "sqpay_1" || conf.AmountCents != amount {
		t.Fatalf("unexpected confirmation %+v", conf)
	}
}

func TestSquareGatewayConfirmFailures(t *testing.T) {
	client := &stubSquare{payment: &sq.Payment{Status: strPtr("FAILED")}}
	gw, _ := NewSquareGateway(client, nil)

	_, err := gw.ConfirmPayment(context.Background(), ConfirmRequest{Reference: "sq_1", AmountCents: 100})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected missing source to be a validation error, got %v", err)
	}
	_, err = gw.ConfirmPayment(context.Background(), ConfirmRequest{Reference: "sq_1", SourceID: "cnon:x", AmountCents: 100})
	if !pkgerrors.IsCode(err, pkgerrors.CodePaymentDeclined) {
		t.Fatalf("expected decline, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	stripeGW, _ := NewStripeGateway(&stubIntentClient{}, nil)
	squareGW, _ := NewSquareGateway(&stubSquare{}, nil)

	if _, err := NewRegistry(enums.PaymentProviderSquare, stripeGW); err == nil {
		t.Fatalf("expected missing default gateway to fail")
	}
	reg, err := NewRegistry(enums.PaymentProviderStripe, stripeGW, squareGW)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if reg.Default().Provider() != enums.PaymentProviderStripe {
		t.Fatalf("unexpected default")
	}
	if g, err := reg.For(enums.PaymentProviderSquare); err != nil || g.Provider() != enums.PaymentProviderSquare {
		t.Fatalf("expected square gateway, got %v %v", g, err)
	}
}
