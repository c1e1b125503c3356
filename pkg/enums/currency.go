package enums

// Currency is an ISO 4217 code in the lowercase form payment processors expect.
type Currency string

const CurrencyUSD Currency = "usd"

var currencies = []Currency{CurrencyUSD}

func (c Currency) String() string { return string(c) }

func (c Currency) IsValid() bool { return oneOf(c, currencies) }

// ParseCurrency ignores case, so "USD" is accepted.
func ParseCurrency(value string) (Currency, error) {
	return parse("currency", value, currencies, true)
}
