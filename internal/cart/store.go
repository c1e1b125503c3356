package cart

import (
	"sync"

	"github.com/angelmondragon/sunrise-backend/pkg/pricing"
)

// Store holds one cart, applies actions through the Reducer and notifies
// subscribers after every successful mutation. All monetary values come from
// the pricing calculator.
type Store struct {
	mu        sync.RWMutex
	state     State
	reducer   Reducer
	calc      *pricing.Calculator
	observers map[int]func(State)
	nextObs   int
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithIDGenerator overrides uniqueId generation.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.reducer.NewID = fn
		}
	}
}

// WithState seeds the store, e.g. from a restored snapshot.
func WithState(state State) StoreOption {
	return func(s *Store) {
		s.state = state.clone()
	}
}

// DefaultTip returns the configured default tip policy.
func DefaultTip(calc *pricing.Calculator) TipPolicy {
	return PercentageTip(calc.Config().DefaultTipPercentage)
}

// NewStore returns an empty cart with the calculator's default tip.
func NewStore(calc *pricing.Calculator, opts ...StoreOption) *Store {
	defaultTip := DefaultTip(calc)
	s := &Store{
		state:     NewState(defaultTip),
		reducer:   NewReducer(defaultTip, calc.Config().MaxFlatTipCents),
		calc:      calc,
		observers: map[int]func(State){},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch applies action atomically. Observers run after the lock is released.
func (s *Store) Dispatch(action Action) error {
	s.mu.Lock()
	next, err := s.reducer.Reduce(s.state, action)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	snapshot := next.clone()
	observers := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot.clone())
	}
	return nil
}

// Subscribe registers fn for post-mutation notifications.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subtotal prices the cart without tax, fee or tip.
func (s *Store) Subtotal() (int64, error) {
	state := s.State()
	b, err := s.calc.Calculate(state.Lines(), false, 0)
	if err != nil {
		return 0, err
	}
	return b.SubtotalCents, nil
}

// TipAmountCents resolves the tip policy against the current subtotal.
// It is recomputed on every call. A flat tip is reported as chosen even on an
// empty cart; only the breakdown zeroes it.
func (s *Store) TipAmountCents() (int64, error) {
	state := s.State()
	return s.tipFor(state)
}

// Breakdown prices the cart with tax, delivery fee and the resolved tip.
func (s *Store) Breakdown() (pricing.Breakdown, error) {
	state := s.State()
	tip, err := s.tipFor(state)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return s.calc.Calculate(state.Lines(), true, tip)
}

// TotalPrice is Breakdown().TotalCents. An empty cart totals zero whatever the tip.
func (s *Store) TotalPrice() (int64, error) {
	b, err := s.Breakdown()
	if err != nil {
		return 0, err
	}
	return b.TotalCents, nil
}

// TotalItems sums line quantities.
func (s *Store) TotalItems() int64 {
	return s.State().TotalItems()
}

// IsPayable reports whether checkout may present a payable total.
func (s *Store) IsPayable() bool {
	total, err := s.TotalPrice()
	return err == nil && total > 0
}

func (s *Store) tipFor(state State) (int64, error) {
	subtotal, err := s.calc.Subtotal(state.Lines())
	if err != nil {
		return 0, err
	}
	return state.Tip.Resolve(subtotal), nil
}
