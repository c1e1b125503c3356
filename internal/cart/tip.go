package cart

import (
	"fmt"

	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	"github.com/angelmondragon/sunrise-backend/pkg/pricing"
)

const maxTipPercentage = 100

// TipPolicy is either a whole percentage of the subtotal or a flat amount in cents.
type TipPolicy struct {
	Type  enums.TipType `json:"type"`
	Value int64         `json:"value"`
}

// PercentageTip builds a percentage policy.
func PercentageTip(percent int64) TipPolicy {
	return TipPolicy{Type: enums.TipTypePercentage, Value: percent}
}

// FlatTip builds a flat policy in cents.
func FlatTip(cents int64) TipPolicy {
	return TipPolicy{Type: enums.TipTypeFlat, Value: cents}
}

// Validate checks the policy against the storefront limits. A flat tip may
// not exceed maxFlatCents; a non-positive maxFlatCents applies the pricing default.
func (p TipPolicy) Validate(maxFlatCents int64) error {
	if err := p.validateShape(); err != nil {
		return err
	}
	if maxFlatCents <= 0 {
		maxFlatCents = pricing.DefaultMaxFlatTipCents
	}
	if p.Type == enums.TipTypeFlat && p.Value > maxFlatCents {
		return fmt.Errorf("%w: flat tip must be at most %d cents", ErrInvalidTip, maxFlatCents)
	}
	return nil
}

func (p TipPolicy) validateShape() error {
	if !p.Type.IsValid() {
		return fmt.Errorf("%w: unknown tip type %q", ErrInvalidTip, p.Type)
	}
	if p.Value < 0 {
		return fmt.Errorf("%w: tip must not be negative", ErrInvalidTip)
	}
	if p.Type == enums.TipTypePercentage && p.Value > maxTipPercentage {
		return fmt.Errorf("%w: tip percentage must be at most %d", ErrInvalidTip, maxTipPercentage)
	}
	return nil
}

// Resolve turns the policy into cents against the given subtotal.
func (p TipPolicy) Resolve(subtotalCents int64) int64 {
	if p.Type == enums.TipTypeFlat {
		return p.Value
	}
	return pricing.PercentOf(subtotalCents, p.Value)
}
