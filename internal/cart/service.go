package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	product "github.com/angelmondragon/sunrise-backend/internal/products"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
	"github.com/angelmondragon/sunrise-backend/pkg/pricing"
)

type productResolver interface {
	ResolveSelection(ctx context.Context, productID uuid.UUID, additionIDs, subtractionIDs []uuid.UUID) (*product.Selection, error)
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Repo       SnapshotRepository
	Calculator *pricing.Calculator
	Catalog    productResolver
	Locker     SessionLocker
	Logger     *logger.Logger
	NewID      func() string
	Now        func() time.Time
}

// Service serves one cart per session: lock the session, load the snapshot,
// dispatch, save. Mutations of one session never interleave.
type Service struct {
	repo    SnapshotRepository
	calc    *pricing.Calculator
	catalog productResolver
	locker  SessionLocker
	logg    *logger.Logger
	newID   func() string
	now     func() time.Time
}

// View is the cart as returned to the storefront.
type View struct {
	Items          []LineItem        `json:"items"`
	Tip            TipPolicy         `json:"tip"`
	TipAmountCents int64             `json:"tipAmountCents"`
	Breakdown      pricing.Breakdown `json:"breakdown"`
	TotalItems     int64             `json:"totalItems"`
	Payable        bool              `json:"payable"`
	TipPercentages []int64           `json:"tipPercentages"`
}

type AddItemInput struct {
	ProductID      uuid.UUID
	AdditionIDs    []uuid.UUID
	SubtractionIDs []uuid.UUID
	Note           string
	Quantity       int64
}

// ModificationsInput replaces the given fields; nil leaves a field untouched.
type ModificationsInput struct {
	AdditionIDs    *[]uuid.UUID
	SubtractionIDs *[]uuid.UUID
	Note           *string
}

// TipInput selects a tip. Flat tips may be given in cents or as a dollar string.
type TipInput struct {
	Type    string
	Value   int64
	Dollars string
}

func NewService(p ServiceParams) (*Service, error) {
	if p.Repo == nil {
		return nil, errors.New("cart snapshot repository required")
	}
	if p.Calculator == nil {
		return nil, errors.New("pricing calculator required")
	}
	if p.Catalog == nil {
		return nil, errors.New("catalog required")
	}
	if p.NewID == nil {
		p.NewID = uuid.NewString
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Locker == nil {
		p.Locker = NewLocalSessionLocker()
	}
	return &Service{
		repo:    p.Repo,
		calc:    p.Calculator,
		catalog: p.Catalog,
		locker:  p.Locker,
		logg:    p.Logger,
		newID:   p.NewID,
		now:     p.Now,
	}, nil
}

// Load restores the session cart into a Store. Unusable snapshots yield an empty cart.
func (s *Service) Load(ctx context.Context, sessionID string) (*Store, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session required")
	}
	raw, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	state := RestoreState(ctx, s.logg, raw, DefaultTip(s.calc))
	return NewStore(s.calc, WithState(state), WithIDGenerator(s.newID)), nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (*View, error) {
	store, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(store)
}

// AddItem prices the selection from the catalog and merges it into the cart.
func (s *Service) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*View, error) {
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	selection, err := s.catalog.ResolveSelection(ctx, input.ProductID, input.AdditionIDs, input.SubtractionIDs)
	if err != nil {
		return nil, err
	}
	item := LineItem{
		ProductID:      selection.Product.ID.String(),
		Name:           selection.Product.Name,
		UnitPriceCents: selection.Product.PriceCents,
		Quantity:       input.Quantity,
		Additions:      toAdditions(selection),
		Subtractions:   toSubtractions(selection),
		Note:           strings.TrimSpace(input.Note),
	}
	return s.apply(ctx, sessionID, AddItem{Item: item})
}

// RemoveItem is a no-op for unknown uniqueIds.
func (s *Service) RemoveItem(ctx context.Context, sessionID, uniqueID string) (*View, error) {
	return s.apply(ctx, sessionID, RemoveItem{UniqueID: uniqueID})
}

// UpdateQuantity sets a line's quantity; zero or less removes it.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID, uniqueID string, quantity int64) (*View, error) {
	return s.mutate(ctx, sessionID, func(store *Store) (Action, error) {
		if _, ok := store.State().Find(uniqueID); !ok && quantity > 0 {
			return nil, lineNotFound(uniqueID)
		}
		return UpdateQuantity{UniqueID: uniqueID, Quantity: quantity}, nil
	})
}

// UpdateModifications re-resolves the chosen options against the line's product.
func (s *Service) UpdateModifications(ctx context.Context, sessionID, uniqueID string, input ModificationsInput) (*View, error) {
	return s.mutate(ctx, sessionID, func(store *Store) (Action, error) {
		return s.modificationsAction(ctx, store, uniqueID, input)
	})
}

func (s *Service) modificationsAction(ctx context.Context, store *Store, uniqueID string, input ModificationsInput) (Action, error) {
	line, ok := store.State().Find(uniqueID)
	if !ok {
		return nil, lineNotFound(uniqueID)
	}
	action := UpdateModifications{UniqueID: uniqueID}
	if input.Note != nil {
		note := strings.TrimSpace(*input.Note)
		action.Note = &note
	}
	if input.AdditionIDs != nil || input.SubtractionIDs != nil {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cart line has an invalid product id")
		}
		var additionIDs, subtractionIDs []uuid.UUID
		if input.AdditionIDs != nil {
			additionIDs = *input.AdditionIDs
		}
		if input.SubtractionIDs != nil {
			subtractionIDs = *input.SubtractionIDs
		}
		selection, err := s.catalog.ResolveSelection(ctx, productID, additionIDs, subtractionIDs)
		if err != nil {
			return nil, err
		}
		if input.AdditionIDs != nil {
			additions := toAdditions(selection)
			action.Additions = &additions
		}
		if input.SubtractionIDs != nil {
			subtractions := toSubtractions(selection)
			action.Subtractions = &subtractions
		}
	}
	return action, nil
}

// UpdateTip replaces the tip policy.
func (s *Service) UpdateTip(ctx context.Context, sessionID string, input TipInput) (*View, error) {
	tipType, err := enums.ParseTipType(input.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tip type")
	}
	value := input.Value
	if tipType == enums.TipTypeFlat && strings.TrimSpace(input.Dollars) != "" {
		value, err = pricing.DollarsToCents(input.Dollars)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tip amount")
		}
	}
	return s.apply(ctx, sessionID, UpdateTip{Tip: TipPolicy{Type: tipType, Value: value}})
}

// Clear empties the cart and restores the default tip. Clearing an empty cart succeeds.
func (s *Service) Clear(ctx context.Context, sessionID string) (*View, error) {
	return s.apply(ctx, sessionID, Clear{})
}

func (s *Service) apply(ctx context.Context, sessionID string, action Action) (*View, error) {
	return s.mutate(ctx, sessionID, func(*Store) (Action, error) { return action, nil })
}

// mutate holds the session lock from snapshot load to snapshot save.
func (s *Service) mutate(ctx context.Context, sessionID string, build func(*Store) (Action, error)) (*View, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session required")
	}
	unlock, err := s.locker.Lock(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionBusy) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart is being updated, retry")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
	}
	defer unlock()

	store, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	action, err := build(store)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, sessionID, store, action)
}

func (s *Service) dispatch(ctx context.Context, sessionID string, store *Store, action Action) (*View, error) {
	var saveErr error
	unsubscribe := store.Subscribe(func(state State) {
		saveErr = s.save(ctx, sessionID, state)
	})
	defer unsubscribe()

	if err := store.Dispatch(action); err != nil {
		return nil, mapCartError(err)
	}
	if saveErr != nil {
		if s.logg != nil {
			ctx = s.logg.WithCartSession(ctx, sessionID)
			s.logg.Error(s.logg.WithField(ctx, "action", ActionName(action)), "persist cart snapshot", saveErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, saveErr, "save cart")
	}
	return s.view(store)
}

func (s *Service) save(ctx context.Context, sessionID string, state State) error {
	raw, err := EncodeSnapshot(state, s.now())
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, sessionID, raw)
}

func (s *Service) view(store *Store) (*View, error) {
	state := store.State()
	breakdown, err := store.Breakdown()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "price cart")
	}
	return &View{
		Items:          state.Items,
		Tip:            state.Tip,
		TipAmountCents: breakdown.TipCents,
		Breakdown:      breakdown,
		TotalItems:     state.TotalItems(),
		Payable:        breakdown.TotalCents > 0,
		TipPercentages: append([]int64(nil), s.calc.Config().TipPercentages...),
	}, nil
}

func mapCartError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidItem), errors.Is(err, ErrInvalidTip), errors.Is(err, pricing.ErrInvalidAmount):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart change")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply cart change")
	}
}

func lineNotFound(uniqueID string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("cart item %s not found", uniqueID))
}

func toAdditions(selection *product.Selection) []Addition {
	out := make([]Addition, 0, len(selection.Additions))
	for _, a := range selection.Additions {
		out = append(out, Addition{ID: a.ID.String(), Name: a.Name, PriceCents: a.PriceCents})
	}
	return out
}

func toSubtractions(selection *product.Selection) []Subtraction {
	out := make([]Subtraction, 0, len(selection.Subtractions))
	for _, sub := range selection.Subtractions {
		out = append(out, Subtraction{ID: sub.ID.String(), Name: sub.Name})
	}
	return out
}
