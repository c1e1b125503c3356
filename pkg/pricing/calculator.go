// Package pricing turns cart lines and a resolved tip into a price breakdown.
// All amounts are integer cents; the only rounding steps are tax and
// percentage tips, each rounded half-up exactly once.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount marks negative money, a quantity below one, or a sum
// that does not fit in int64 cents.
var ErrInvalidAmount = errors.New("pricing: invalid amount")

var hundred = decimal.NewFromInt(100)

// Line is the priced view of a cart line item.
type Line struct {
	UnitPriceCents     int64
	AdditionPriceCents []int64
	Quantity           int64
}

// UnitTotalCents is the unit price plus every addition.
func (l Line) UnitTotalCents() int64 {
	total := l.UnitPriceCents
	for _, cents := range l.AdditionPriceCents {
		total += cents
	}
	return total
}

func (l Line) totalCents() (int64, error) {
	unit := l.UnitPriceCents
	for _, cents := range l.AdditionPriceCents {
		var err error
		if unit, err = addCents(unit, cents); err != nil {
			return 0, err
		}
	}
	if unit != 0 && l.Quantity > math.MaxInt64/unit {
		return 0, fmt.Errorf("%w: %d x %d overflows", ErrInvalidAmount, unit, l.Quantity)
	}
	return unit * l.Quantity, nil
}

func (l Line) validate() error {
	if l.Quantity < 1 {
		return fmt.Errorf("%w: quantity %d", ErrInvalidAmount, l.Quantity)
	}
	if l.UnitPriceCents < 0 {
		return fmt.Errorf("%w: unit price %d", ErrInvalidAmount, l.UnitPriceCents)
	}
	for _, cents := range l.AdditionPriceCents {
		if cents < 0 {
			return fmt.Errorf("%w: addition price %d", ErrInvalidAmount, cents)
		}
	}
	return nil
}

// Breakdown decomposes a total. Total always equals the sum of the other four.
type Breakdown struct {
	SubtotalCents    int64 `json:"subtotal"`
	TaxCents         int64 `json:"tax"`
	DeliveryFeeCents int64 `json:"deliveryFee"`
	TipCents         int64 `json:"tipAmount"`
	TotalCents       int64 `json:"total"`
}

// Calculator is safe for concurrent use; it holds only immutable configuration.
type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{cfg: cfg}, nil
}

// Config returns the configuration the calculator was built with.
func (c *Calculator) Config() Config {
	return c.cfg
}

// Subtotal sums (unit + additions) x quantity over every line.
func (c *Calculator) Subtotal(lines []Line) (int64, error) {
	var subtotal int64
	for _, line := range lines {
		if err := line.validate(); err != nil {
			return 0, err
		}
		lineTotal, err := line.totalCents()
		if err != nil {
			return 0, err
		}
		if subtotal, err = addCents(subtotal, lineTotal); err != nil {
			return 0, err
		}
	}
	return subtotal, nil
}

// Calculate prices lines. With includeFeesAndTax false only the subtotal is
// reported. An empty cart always prices to zero, tip included.
func (c *Calculator) Calculate(lines []Line, includeFeesAndTax bool, tipCents int64) (Breakdown, error) {
	if tipCents < 0 {
		return Breakdown{}, fmt.Errorf("%w: tip %d", ErrInvalidAmount, tipCents)
	}
	subtotal, err := c.Subtotal(lines)
	if err != nil {
		return Breakdown{}, err
	}
	if !includeFeesAndTax || len(lines) == 0 {
		return Breakdown{SubtotalCents: subtotal, TotalCents: subtotal}, nil
	}

	b := Breakdown{
		SubtotalCents:    subtotal,
		TaxCents:         c.Tax(subtotal),
		DeliveryFeeCents: c.cfg.DeliveryFeeCents,
		TipCents:         tipCents,
	}
	total, err := addCents(b.SubtotalCents, b.TaxCents, b.DeliveryFeeCents, b.TipCents)
	if err != nil {
		return Breakdown{}, err
	}
	b.TotalCents = total
	return b, nil
}

// addCents sums non-negative amounts, failing instead of wrapping.
func addCents(amounts ...int64) (int64, error) {
	var sum int64
	for _, cents := range amounts {
		if cents > math.MaxInt64-sum {
			return 0, fmt.Errorf("%w: total exceeds %d cents", ErrInvalidAmount, int64(math.MaxInt64))
		}
		sum += cents
	}
	return sum, nil
}

// Tax is round-half-up(subtotal x rate).
func (c *Calculator) Tax(subtotalCents int64) int64 {
	return roundHalfUp(decimal.NewFromInt(subtotalCents).Mul(c.cfg.TaxRate))
}

// PercentOf is round-half-up(subtotal x percent / 100), one division only.
func PercentOf(subtotalCents, percent int64) int64 {
	return roundHalfUp(decimal.NewFromInt(subtotalCents).Mul(decimal.NewFromInt(percent)).Div(hundred))
}

// DollarsToCents converts a user-entered dollar amount such as "12.34" or
// "$5" into cents, rounding half-up past the second decimal.
func DollarsToCents(raw string) (int64, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "$")
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a dollar amount", ErrInvalidAmount, raw)
	}
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, raw)
	}
	return roundHalfUp(amount.Mul(hundred)), nil
}

// decimal.Round rounds half away from zero, which is half-up for the
// non-negative values priced here.
func roundHalfUp(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
