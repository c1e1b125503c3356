package payments

import (
	"fmt"

	"github.com/angelmondragon/sunrise-backend/pkg/enums"
)

// Registry resolves the gateway for a provider. The default serves new intents.
type Registry struct {
	gateways map[enums.PaymentProvider]Gateway
	fallback enums.PaymentProvider
}

func NewRegistry(defaultProvider enums.PaymentProvider, gateways ...Gateway) (*Registry, error) {
	r := &Registry{gateways: map[enums.PaymentProvider]Gateway{}, fallback: defaultProvider}
	for _, g := range gateways {
		if g == nil {
			continue
		}
		r.gateways[g.Provider()] = g
	}
	if _, ok := r.gateways[defaultProvider]; !ok {
		return nil, fmt.Errorf("no gateway configured for default provider %q", defaultProvider)
	}
	return r, nil
}

// Default returns the gateway that new payment intents go through.
func (r *Registry) Default() Gateway {
	return r.gateways[r.fallback]
}

// For returns the gateway that created a payment with the given provider.
func (r *Registry) For(provider enums.PaymentProvider) (Gateway, error) {
	g, ok := r.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("no gateway configured for provider %q", provider)
	}
	return g, nil
}
