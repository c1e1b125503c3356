package cart

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/angelmondragon/sunrise-backend/pkg/pricing"
)

// Addition is a priced extra; it raises the unit price of its line item.
type Addition struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
}

// Subtraction is an ingredient to leave out. It never affects price.
type Subtraction struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LineItem is one distinct product selection. Name and prices are snapshots
// taken from the catalog when the item was added.
type LineItem struct {
	ProductID      string        `json:"id"`
	UniqueID       string        `json:"uniqueId"`
	Name           string        `json:"name"`
	UnitPriceCents int64         `json:"unitPriceCents"`
	Quantity       int64         `json:"quantity"`
	Additions      []Addition    `json:"additions"`
	Subtractions   []Subtraction `json:"subtractions"`
	Note           string        `json:"note"`
}

// Key is the structural identity used for merging: product, additions and
// subtractions as sets, and the exact note.
func (l LineItem) Key() string {
	additionIDs := make([]string, 0, len(l.Additions))
	for _, a := range l.Additions {
		additionIDs = append(additionIDs, a.ID)
	}
	subtractionIDs := make([]string, 0, len(l.Subtractions))
	for _, s := range l.Subtractions {
		subtractionIDs = append(subtractionIDs, s.ID)
	}
	sort.Strings(additionIDs)
	sort.Strings(subtractionIDs)

	key, _ := json.Marshal(struct {
		P string   `json:"p"`
		A []string `json:"a"`
		S []string `json:"s"`
		N string   `json:"n"`
	}{P: l.ProductID, A: additionIDs, S: subtractionIDs, N: l.Note})
	return string(key)
}

// UnitTotalCents is the unit price plus every addition.
func (l LineItem) UnitTotalCents() int64 {
	return l.pricingLine().UnitTotalCents()
}

// LineTotalCents is UnitTotalCents times quantity.
func (l LineItem) LineTotalCents() int64 {
	return l.UnitTotalCents() * l.Quantity
}

func (l LineItem) pricingLine() pricing.Line {
	additions := make([]int64, 0, len(l.Additions))
	for _, a := range l.Additions {
		additions = append(additions, a.PriceCents)
	}
	return pricing.Line{
		UnitPriceCents:     l.UnitPriceCents,
		AdditionPriceCents: additions,
		Quantity:           l.Quantity,
	}
}

func (l LineItem) clone() LineItem {
	out := l
	out.Additions = append([]Addition(nil), l.Additions...)
	out.Subtractions = append([]Subtraction(nil), l.Subtractions...)
	return out
}

func (l LineItem) validate() error {
	if strings.TrimSpace(l.ProductID) == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidItem)
	}
	if l.UnitPriceCents < 0 {
		return fmt.Errorf("%w: unit price must not be negative", ErrInvalidItem)
	}
	if l.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidItem)
	}
	return validateAdditions(l.Additions)
}

func validateAdditions(additions []Addition) error {
	for _, a := range additions {
		if strings.TrimSpace(a.ID) == "" {
			return fmt.Errorf("%w: addition id is required", ErrInvalidItem)
		}
		if a.PriceCents < 0 {
			return fmt.Errorf("%w: addition %s has a negative price", ErrInvalidItem, a.ID)
		}
	}
	return nil
}

// uniqueAdditions keeps the first occurrence of each id, preserving order.
func uniqueAdditions(in []Addition) []Addition {
	seen := make(map[string]struct{}, len(in))
	out := make([]Addition, 0, len(in))
	for _, a := range in {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

func uniqueSubtractions(in []Subtraction) []Subtraction {
	seen := make(map[string]struct{}, len(in))
	out := make([]Subtraction, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out
}
