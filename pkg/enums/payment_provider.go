package enums

// PaymentProvider names the hosted processor that charged an order.
type PaymentProvider string

const (
	PaymentProviderStripe PaymentProvider = "stripe"
	PaymentProviderSquare PaymentProvider = "square"
)

var paymentProviders = []PaymentProvider{PaymentProviderStripe, PaymentProviderSquare}

func (p PaymentProvider) String() string { return string(p) }

func (p PaymentProvider) IsValid() bool { return oneOf(p, paymentProviders) }

// ParsePaymentProvider reads the provider feature flag.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	return parse("payment provider", value, paymentProviders, true)
}
