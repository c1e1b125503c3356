package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sunrise-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sunrise-backend/pkg/errors"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
	"github.com/angelmondragon/sunrise-backend/pkg/pagination"
)

type productRepository interface {
	ListAvailable(ctx context.Context, params pagination.Params) ([]models.Product, *pagination.Cursor, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpsertBySlug(ctx context.Context, product *models.Product) error
}

// Service exposes the catalog read paths and seeding.
type Service struct {
	repo productRepository
	logg *logger.Logger
}

func NewService(repo productRepository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// List returns a page of available products.
func (s *Service) List(ctx context.Context, params pagination.Params) (*ProductListResult, error) {
	rows, next, err := s.repo.ListAvailable(ctx, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	result := &ProductListResult{Products: make([]ProductDTO, 0, len(rows))}
	for _, row := range rows {
		result.Products = append(result.Products, newProductDTO(row))
	}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// Get returns one product, including unavailable ones.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := newProductDTO(*product)
	return &dto, nil
}

// ResolveSelection reads the product fresh from the catalog and picks the
// requested options. Prices in the result are the catalog's current prices.
func (s *Service) ResolveSelection(ctx context.Context, productID uuid.UUID, additionIDs, subtractionIDs []uuid.UUID) (*Selection, error) {
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Available {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
			WithDetails(map[string]any{"productId": productID})
	}

	additions := make(map[uuid.UUID]models.ProductAddition, len(product.Additions))
	for _, a := range product.Additions {
		additions[a.ID] = a
	}
	subtractions := make(map[uuid.UUID]models.ProductSubtraction, len(product.Subtractions))
	for _, sub := range product.Subtractions {
		subtractions[sub.ID] = sub
	}

	selection := &Selection{Product: *product}
	for _, id := range additionIDs {
		a, ok := additions[id]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown addition for product").
				WithDetails(map[string]any{"additionId": id})
		}
		selection.Additions = append(selection.Additions, a)
	}
	for _, id := range subtractionIDs {
		sub, ok := subtractions[id]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown subtraction for product").
				WithDetails(map[string]any{"subtractionId": id})
		}
		selection.Subtractions = append(selection.Subtractions, sub)
	}
	return selection, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}
