package enums

import "testing"

func TestParsePaymentProvider(t *testing.T) {
	cases := map[string]PaymentProvider{
		"stripe":   PaymentProviderStripe,
		" Square ": PaymentProviderSquare,
	}
	for raw, want := range cases {
		got, err := ParsePaymentProvider(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", raw, want, got)
		}
	}
	if _, err := ParsePaymentProvider("paypal"); err == nil {
		t.Fatal("expected unknown provider to fail")
	}
}

func TestParseCurrencyIgnoresCase(t *testing.T) {
	got, err := ParseCurrency("USD")
	if err != nil || got != CurrencyUSD {
		t.Fatalf("expected usd, got %q (%v)", got, err)
	}
}

func TestPaymentAttemptStatusTerminal(t *testing.T) {
	if PaymentAttemptPending.IsTerminal() {
		t.Fatal("pending must not be terminal")
	}
	for _, status := range []PaymentAttemptStatus{PaymentAttemptSucceeded, PaymentAttemptFailed, PaymentAttemptExpired} {
		if !status.IsTerminal() {
			t.Fatalf("expected %s to be terminal", status)
		}
	}
}

func TestParseTipType(t *testing.T) {
	if _, err := ParseTipType("percent"); err == nil {
		t.Fatal("expected unknown tip type to fail")
	}
	if got, err := ParseTipType("flat"); err != nil || got != TipTypeFlat {
		t.Fatalf("expected flat, got %q (%v)", got, err)
	}
}

func TestStrictAndLenientParsing(t *testing.T) {
	if _, err := ParseOrderStatus(" Paid"); err == nil {
		t.Fatal("order status parsing should be strict")
	}
	if got, err := ParseOutboxEventType(" ORDER_CREATED "); err != nil || got != EventOrderCreated {
		t.Fatalf("expected order_created, got %q (%v)", got, err)
	}
	_, err := ParseOutboxDLQErrorReason("timeout")
	if err == nil || err.Error() != `invalid outbox dlq error reason "timeout"` {
		t.Fatalf("unexpected error %v", err)
	}
	if PaymentAttemptStatus("unknown").IsTerminal() {
		t.Fatal("unknown statuses are not terminal")
	}
}
