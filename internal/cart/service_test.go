package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	product "github.com/angelmondragon/sunrise-backend/internal/products"
	"github.com/angelmondragon/sunrise-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
)

type stubCatalog struct {
	products map[uuid.UUID]models.Product
}

func (c *stubCatalog) ResolveSelection(ctx context.Context, productID uuid.UUID, additionIDs, subtractionIDs []uuid.UUID) (*product.Selection, error) {
	p, ok := c.products[productID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	selection := &product.Selection{Product: p}
	for _, id := range additionIDs {
		found := false
		for _, a := range p.Additions {
			if a.ID == id {
				selection.Additions = append(selection.Additions, a)
				found = true
			}
		}
		if !found {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown addition")
		}
	}
	for _, id := range subtractionIDs {
		for _, s := range p.Subtractions {
			if s.ID == id {
				selection.Subtractions = append(selection.Subtractions, s)
			}
		}
	}
	return selection, nil
}

type failingRepo struct {
	*MemorySnapshotRepository
	saveErr error
}

func (r *failingRepo) Save(ctx context.Context, sessionID string, raw []byte) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.MemorySnapshotRepository.Save(ctx, sessionID, raw)
}

type serviceFixture struct {
	svc     *Service
	repo    *failingRepo
	product models.Product
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	p := models.Product{
		ID:         uuid.New(),
		Name:       "American Breakfast",
		PriceCents: 2699,
		Available:  true,
		Additions: []models.ProductAddition{
			{ID: uuid.New(), Name: "Extra Bacon", PriceCents: 200},
		},
		Subtractions: []models.ProductSubtraction{
			{ID: uuid.New(), Name: "Eggs"},
		},
	}
	repo := &failingRepo{MemorySnapshotRepository: NewMemorySnapshotRepository()}
	svc, err := NewService(ServiceParams{
		Repo:       repo,
		Calculator: testCalculator(t),
		Catalog:    &stubCatalog{products: map[uuid.UUID]models.Product{p.ID: p}},
		NewID:      sequentialIDs(),
		Now:        func() time.Time { return time.Date(2026, 10, 17, 7, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return serviceFixture{svc: svc, repo: repo, product: p}
}

func TestServiceAddItemUsesCatalogPrices(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	view, err := f.svc.AddItem(ctx, "session-1", AddItemInput{
		ProductID:      f.product.ID,
		AdditionIDs:    []uuid.UUID{f.product.Additions[0].ID},
		SubtractionIDs: []uuid.UUID{f.product.Subtractions[0].ID},
		Note:           "  leave at door ",
		Quantity:       2,
	})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, int64(2699), view.Items[0].UnitPriceCents)
	require.Equal(t, "leave at door", view.Items[0].Note)
	require.Equal(t, int64(2), view.TotalItems)
	require.Equal(t, int64((2699+200)*2), view.Breakdown.SubtotalCents)
	require.Equal(t, []int64{10, 15, 20, 25}, view.TipPercentages)
	require.True(t, view.Payable)

	raw, err := f.repo.Load(ctx, "session-1")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	again, err := f.svc.Get(ctx, "session-1")
	require.NoError(t, err)
	require.Equal(t, view.Breakdown, again.Breakdown)
}

func TestServiceUpdateQuantityUnknownLine(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.UpdateQuantity(context.Background(), "session-1", "missing", 3)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	view, err := f.svc.RemoveItem(context.Background(), "session-1", "missing")
	require.NoError(t, err)
	require.Empty(t, view.Items)
	require.False(t, view.Payable)
}

func TestServiceUpdateModificationsResolvesOptions(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	view, err := f.svc.AddItem(ctx, "s", AddItemInput{ProductID: f.product.ID})
	require.NoError(t, err)
	uid := view.Items[0].UniqueID

	additions := []uuid.UUID{f.product.Additions[0].ID}
	view, err = f.svc.UpdateModifications(ctx, "s", uid, ModificationsInput{AdditionIDs: &additions})
	require.NoError(t, err)
	require.Equal(t, int64(2899), view.Breakdown.SubtotalCents)

	bogus := []uuid.UUID{uuid.New()}
	_, err = f.svc.UpdateModifications(ctx, "s", uid, ModificationsInput{AdditionIDs: &bogus})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestServiceUpdateTip(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, "s", AddItemInput{ProductID: f.product.ID})
	require.NoError(t, err)

	view, err := f.svc.UpdateTip(ctx, "s", TipInput{Type: "flat", Dollars: "$4.005"})
	require.NoError(t, err)
	require.Equal(t, FlatTip(401), view.Tip)
	require.Equal(t, int64(401), view.TipAmountCents)

	view, err = f.svc.UpdateTip(ctx, "s", TipInput{Type: "percentage", Value: 20})
	require.NoError(t, err)
	require.Equal(t, int64(540), view.TipAmountCents)

	_, err = f.svc.UpdateTip(ctx, "s", TipInput{Type: "percentage", Value: 150})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.UpdateTip(ctx, "s", TipInput{Type: "generous"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.UpdateTip(ctx, "s", TipInput{Type: "flat", Dollars: "1000"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.UpdateTip(ctx, "s", TipInput{Type: "flat", Value: 9223372036854775797})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	view, err = f.svc.Get(ctx, "s")
	require.NoError(t, err)
	require.Equal(t, int64(540), view.TipAmountCents)
	require.Positive(t, view.Breakdown.TotalCents)
}

func TestServiceClearIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, "s", AddItemInput{ProductID: f.product.ID})
	require.NoError(t, err)
	_, err = f.svc.UpdateTip(ctx, "s", TipInput{Type: "flat", Value: 100})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		view, err := f.svc.Clear(ctx, "s")
		require.NoError(t, err)
		require.Empty(t, view.Items)
		require.Equal(t, PercentageTip(15), view.Tip)
		require.Equal(t, int64(0), view.Breakdown.TotalCents)
	}
}

func TestServiceSaveFailureIsDependencyError(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.saveErr = errors.New("redis down")
	_, err := f.svc.AddItem(context.Background(), "s", AddItemInput{ProductID: f.product.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestServiceRequiresSession(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.Get(context.Background(), " ")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestServiceCorruptSnapshotFailsOpen(t *testing.T) {
	f := newServiceFixture(t)
	require.NoError(t, f.repo.MemorySnapshotRepository.Save(context.Background(), "s", []byte("{not json")))
	view, err := f.svc.Get(context.Background(), "s")
	require.NoError(t, err)
	require.Empty(t, view.Items)
	require.Equal(t, PercentageTip(15), view.Tip)
}
