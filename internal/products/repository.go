package product

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sunrise-backend/pkg/db/models"
	"github.com/angelmondragon/sunrise-backend/pkg/pagination"
)

// Repository persists the catalog.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func preloadOptions(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Additions", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC, name ASC") }).
		Preload("Subtractions", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC, name ASC") })
}

// ListAvailable pages through available products, oldest first.
func (r *Repository) ListAvailable(ctx context.Context, params pagination.Params) ([]models.Product, *pagination.Cursor, error) {
	page, err := pagination.Resolve(params)
	if err != nil {
		return nil, nil, err
	}

	var rows []models.Product
	err = preloadOptions(r.db.WithContext(ctx)).
		Where("available = ?", true).
		Scopes(page.Scope).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(page, rows, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return rows, next, nil
}

// FindByID loads a product with its additions and subtractions.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := preloadOptions(r.db.WithContext(ctx)).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySlug loads a product by its seed slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := preloadOptions(r.db.WithContext(ctx)).First(&product, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// UpsertBySlug creates the product or replaces the existing one with the same
// slug, options included. Existing ids are kept so carts stay valid.
func (r *Repository) UpsertBySlug(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Product
		err := preloadOptions(tx).First(&existing, "slug = ?", product.Slug).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(product).Error
		}
		if err != nil {
			return err
		}

		product.ID = existing.ID
		keepAdditionIDs(product.Additions, existing.Additions)
		keepSubtractionIDs(product.Subtractions, existing.Subtractions)

		if err := tx.Model(&models.Product{}).Where("id = ?", existing.ID).Updates(map[string]any{
			"name":        product.Name,
			"description": product.Description,
			"price_cents": product.PriceCents,
			"image_url":   product.ImageURL,
			"available":   product.Available,
			"sort_order":  product.SortOrder,
		}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", existing.ID).Delete(&models.ProductAddition{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", existing.ID).Delete(&models.ProductSubtraction{}).Error; err != nil {
			return err
		}
		for i := range product.Additions {
			product.Additions[i].ProductID = existing.ID
		}
		for i := range product.Subtractions {
			product.Subtractions[i].ProductID = existing.ID
		}
		if len(product.Additions) > 0 {
			if err := tx.Create(&product.Additions).Error; err != nil {
				return err
			}
		}
		if len(product.Subtractions) > 0 {
			if err := tx.Create(&product.Subtractions).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func keepAdditionIDs(next, prev []models.ProductAddition) {
	byName := make(map[string]uuid.UUID, len(prev))
	for _, a := range prev {
		byName[a.Name] = a.ID
	}
	for i := range next {
		if id, ok := byName[next[i].Name]; ok {
			next[i].ID = id
		}
	}
}

func keepSubtractionIDs(next, prev []models.ProductSubtraction) {
	byName := make(map[string]uuid.UUID, len(prev))
	for _, s := range prev {
		byName[s.Name] = s.ID
	}
	for i := range next {
		if id, ok := byName[next[i].Name]; ok {
			next[i].ID = id
		}
	}
}
