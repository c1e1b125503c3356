package product

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sunrise-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"github.com/angelmondragon/sunrise-backend/pkg/pagination"
)

func newSeededService(t *testing.T) (*Service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.NewSQLite(t))
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	seed, err := DefaultSeed()
	require.NoError(t, err)
	written, err := svc.Seed(context.Background(), seed)
	require.NoError(t, err)
	require.Equal(t, 3, written)
	return svc, repo
}

func TestServiceSeedIsIdempotent(t *testing.T) {
	svc, repo := newSeededService(t)
	ctx := context.Background()

	before, err := repo.FindBySlug(ctx, "continental-breakfast")
	require.NoError(t, err)
	require.Equal(t, int64(2499), before.PriceCents)

	seed, err := DefaultSeed()
	require.NoError(t, err)
	_, err = svc.Seed(ctx, seed)
	require.NoError(t, err)

	after, err := repo.FindBySlug(ctx, "continental-breakfast")
	require.NoError(t, err)
	require.Equal(t, before.ID, after.ID)
	require.Equal(t, before.Additions[0].ID, after.Additions[0].ID)

	list, err := svc.List(ctx, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Products, 3)
	require.Empty(t, list.NextCursor)
}

func TestServiceGetNotFound(t *testing.T) {
	svc, _ := newSeededService(t)
	_, err := svc.Get(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestServiceResolveSelection(t *testing.T) {
	svc, repo := newSeededService(t)
	ctx := context.Background()

	american, err := repo.FindBySlug(ctx, "american-breakfast")
	require.NoError(t, err)
	healthy, err := repo.FindBySlug(ctx, "healthy-start")
	require.NoError(t, err)

	selection, err := svc.ResolveSelection(ctx, american.ID,
		[]uuid.UUID{american.Additions[0].ID},
		[]uuid.UUID{american.Subtractions[1].ID})
	require.NoError(t, err)
	require.Equal(t, int64(2699), selection.Product.PriceCents)
	require.Len(t, selection.Additions, 1)
	require.Equal(t, "Extra Bacon", selection.Additions[0].Name)
	require.Equal(t, "Eggs", selection.Subtractions[0].Name)

	_, err = svc.ResolveSelection(ctx, american.ID, []uuid.UUID{healthy.Additions[0].ID}, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.ResolveSelection(ctx, uuid.New(), nil, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestServiceResolveSelectionRejectsUnavailable(t *testing.T) {
	svc, repo := newSeededService(t)
	ctx := context.Background()

	unavailable := false
	_, err := svc.Seed(ctx, &SeedFile{Products: []SeedProduct{{
		Slug: "healthy-start", Name: "Healthy Start", Price: "22.99", Available: &unavailable,
	}}})
	require.NoError(t, err)

	healthy, err := repo.FindBySlug(ctx, "healthy-start")
	require.NoError(t, err)
	_, err = svc.ResolveSelection(ctx, healthy.ID, nil, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	dto, err := svc.Get(ctx, healthy.ID)
	require.NoError(t, err)
	require.False(t, dto.Available)
	require.Empty(t, dto.Additions)
}

func TestParseSeedValidation(t *testing.T) {
	_, err := ParseSeed([]byte("products: []"))
	require.Error(t, err)

	_, err = ParseSeed([]byte(`
products:
  - slug: a
    name: A
    price: "1.00"
  - slug: a
    name: B
    price: "2.00"
`))
	require.ErrorContains(t, err, "duplicate slug")

	svc, err := NewService(NewRepository(dbtest.NewSQLite(t)), nil)
	require.NoError(t, err)
	_, err = svc.Seed(context.Background(), &SeedFile{Products: []SeedProduct{{Slug: "x", Name: "X", Price: "free"}}})
	require.Error(t, err)
}
