package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
)

// DefaultMaxFlatTipCents caps flat tips when no limit is configured.
const DefaultMaxFlatTipCents int64 = 50000

// Config holds the pricing constants. Percentages are whole percents (15 = 15%);
// every other amount is in cents.
type Config struct {
	TaxRate              decimal.Decimal
	DeliveryFeeCents     int64
	DefaultTipPercentage int64
	TipPercentages       []int64
	MaxFlatTipCents      int64
	Currency             enums.Currency
}

// FromConfig builds the pricing Config from the environment section.
func FromConfig(cfg config.PricingConfig) (Config, error) {
	currency, err := enums.ParseCurrency(cfg.Currency)
	if err != nil {
		return Config{}, err
	}
	maxFlatTip := cfg.MaxFlatTipCents
	if maxFlatTip == 0 {
		maxFlatTip = DefaultMaxFlatTipCents
	}
	out := Config{
		TaxRate:              cfg.TaxRateDecimal(),
		DeliveryFeeCents:     cfg.DeliveryFeeCents,
		DefaultTipPercentage: cfg.DefaultTipPercentage,
		TipPercentages:       append([]int64(nil), cfg.TipPercentages...),
		MaxFlatTipCents:      maxFlatTip,
		Currency:             currency,
	}
	return out, out.Validate()
}

// Validate rejects configurations that could produce a negative or runaway total.
func (c Config) Validate() error {
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate must be within [0, 1), got %s", c.TaxRate)
	}
	if c.DeliveryFeeCents < 0 {
		return fmt.Errorf("delivery fee must not be negative, got %d", c.DeliveryFeeCents)
	}
	if c.DefaultTipPercentage < 0 {
		return fmt.Errorf("default tip percentage must not be negative, got %d", c.DefaultTipPercentage)
	}
	for _, pct := range c.TipPercentages {
		if pct < 0 {
			return fmt.Errorf("tip percentage options must not be negative, got %d", pct)
		}
	}
	if c.MaxFlatTipCents <= 0 {
		return fmt.Errorf("max flat tip must be positive, got %d", c.MaxFlatTipCents)
	}
	if !c.Currency.IsValid() {
		return fmt.Errorf("unsupported currency %q", c.Currency)
	}
	return nil
}

// DefaultConfig mirrors the storefront's published rates.
func DefaultConfig() Config {
	return Config{
		TaxRate:              decimal.RequireFromString("0.0825"),
		DeliveryFeeCents:     500,
		DefaultTipPercentage: 15,
		TipPercentages:       []int64{10, 15, 20, 25},
		MaxFlatTipCents:      DefaultMaxFlatTipCents,
		Currency:             enums.CurrencyUSD,
	}
}
