package cart

import "github.com/angelmondragon/sunrise-backend/pkg/pricing"

// State is the whole cart: line items in insertion order plus the tip policy.
type State struct {
	Items []LineItem `json:"items"`
	Tip   TipPolicy  `json:"tip"`
}

// NewState returns an empty cart carrying the default tip.
func NewState(defaultTip TipPolicy) State {
	return State{Items: []LineItem{}, Tip: defaultTip}
}

func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// TotalItems sums quantities, as shown on the cart badge.
func (s State) TotalItems() int64 {
	var total int64
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}

// Find returns the line item with the given uniqueId.
func (s State) Find(uniqueID string) (LineItem, bool) {
	if idx := s.indexOf(uniqueID); idx >= 0 {
		return s.Items[idx].clone(), true
	}
	return LineItem{}, false
}

// Lines converts items for the pricing calculator.
func (s State) Lines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(s.Items))
	for _, item := range s.Items {
		lines = append(lines, item.pricingLine())
	}
	return lines
}

func (s State) clone() State {
	out := State{Items: make([]LineItem, 0, len(s.Items)), Tip: s.Tip}
	for _, item := range s.Items {
		out.Items = append(out.Items, item.clone())
	}
	return out
}

func (s State) indexOf(uniqueID string) int {
	for i, item := range s.Items {
		if item.UniqueID == uniqueID {
			return i
		}
	}
	return -1
}

func (s State) indexOfKey(key string) int {
	for i, item := range s.Items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

func (s State) validate() error {
	for _, item := range s.Items {
		if item.UniqueID == "" {
			return ErrInvalidItem
		}
		if err := item.validate(); err != nil {
			return err
		}
	}
	return s.Tip.validateShape()
}
