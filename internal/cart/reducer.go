package cart

import (
	"fmt"

	"github.com/google/uuid"
)

// Action is a cart mutation. The set of actions is closed.
type Action interface {
	actionName() string
}

// AddItem merges Item into an identical line or appends it. Quantity 0 means 1.
type AddItem struct {
	Item LineItem
}

type RemoveItem struct {
	UniqueID string
}

// UpdateQuantity replaces the quantity; zero or less removes the line.
type UpdateQuantity struct {
	UniqueID string
	Quantity int64
}

// UpdateModifications edits a line in place. Nil fields are left untouched.
// The edited line is never merged into another, even when they become identical.
type UpdateModifications struct {
	UniqueID     string
	Additions    *[]Addition
	Subtractions *[]Subtraction
	Note         *string
}

type UpdateTip struct {
	Tip TipPolicy
}

// Clear empties the cart and restores the default tip.
type Clear struct{}

func (AddItem) actionName() string             { return "add_item" }
func (RemoveItem) actionName() string          { return "remove_item" }
func (UpdateQuantity) actionName() string      { return "update_quantity" }
func (UpdateModifications) actionName() string { return "update_modifications" }
func (UpdateTip) actionName() string           { return "update_tip" }
func (Clear) actionName() string               { return "clear" }

// ActionName reports a stable label for logs and metrics.
func ActionName(a Action) string {
	if a == nil {
		return "unknown"
	}
	return a.actionName()
}

// MaxLineQuantity bounds the quantity of a single line, merged adds included.
const MaxLineQuantity int64 = 99

// Reducer applies actions to states without side effects. NewID is the only
// source of uniqueIds. A zero MaxFlatTipCents applies the pricing default.
type Reducer struct {
	NewID           func() string
	DefaultTip      TipPolicy
	MaxFlatTipCents int64
}

// NewReducer returns a reducer generating random UUID uniqueIds.
func NewReducer(defaultTip TipPolicy, maxFlatTipCents int64) Reducer {
	return Reducer{NewID: uuid.NewString, DefaultTip: defaultTip, MaxFlatTipCents: maxFlatTipCents}
}

// Reduce returns the next state. The input state is never modified; on error
// the caller keeps the previous state.
func (r Reducer) Reduce(state State, action Action) (State, error) {
	next := state.clone()
	switch a := action.(type) {
	case AddItem:
		out, err := r.addItem(next, a)
		if err != nil {
			return state, err
		}
		return out, nil
	case RemoveItem:
		return removeItem(next, a.UniqueID), nil
	case UpdateQuantity:
		if a.Quantity <= 0 {
			return removeItem(next, a.UniqueID), nil
		}
		if a.Quantity > MaxLineQuantity {
			return state, quantityTooLarge(a.Quantity)
		}
		if idx := next.indexOf(a.UniqueID); idx >= 0 {
			next.Items[idx].Quantity = a.Quantity
		}
		return next, nil
	case UpdateModifications:
		out, err := updateModifications(next, a)
		if err != nil {
			return state, err
		}
		return out, nil
	case UpdateTip:
		if err := a.Tip.Validate(r.MaxFlatTipCents); err != nil {
			return state, err
		}
		next.Tip = a.Tip
		return next, nil
	case Clear:
		return NewState(r.DefaultTip), nil
	default:
		return state, fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}
}

func (r Reducer) addItem(next State, a AddItem) (State, error) {
	candidate := a.Item.clone()
	if candidate.Quantity < 0 {
		return next, fmt.Errorf("%w: quantity must not be negative", ErrInvalidItem)
	}
	if candidate.Quantity == 0 {
		candidate.Quantity = 1
	}
	if candidate.Quantity > MaxLineQuantity {
		return next, quantityTooLarge(candidate.Quantity)
	}
	candidate.Additions = uniqueAdditions(candidate.Additions)
	candidate.Subtractions = uniqueSubtractions(candidate.Subtractions)
	if err := candidate.validate(); err != nil {
		return next, err
	}

	if idx := next.indexOfKey(candidate.Key()); idx >= 0 {
		merged := next.Items[idx].Quantity + candidate.Quantity
		if merged > MaxLineQuantity {
			return next, quantityTooLarge(merged)
		}
		next.Items[idx].Quantity = merged
		return next, nil
	}

	newID := r.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	candidate.UniqueID = newID()
	next.Items = append(next.Items, candidate)
	return next, nil
}

func quantityTooLarge(quantity int64) error {
	return fmt.Errorf("%w: quantity %d exceeds %d", ErrInvalidItem, quantity, MaxLineQuantity)
}

func removeItem(next State, uniqueID string) State {
	idx := next.indexOf(uniqueID)
	if idx < 0 {
		return next
	}
	next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
	return next
}

func updateModifications(next State, a UpdateModifications) (State, error) {
	idx := next.indexOf(a.UniqueID)
	if idx < 0 {
		return next, nil
	}
	item := next.Items[idx]
	if a.Additions != nil {
		additions := uniqueAdditions(*a.Additions)
		if err := validateAdditions(additions); err != nil {
			return next, err
		}
		item.Additions = additions
	}
	if a.Subtractions != nil {
		item.Subtractions = uniqueSubtractions(*a.Subtractions)
	}
	if a.Note != nil {
		item.Note = *a.Note
	}
	next.Items[idx] = item
	return next, nil
}
