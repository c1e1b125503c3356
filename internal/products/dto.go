package product

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/sunrise-backend/pkg/db/models"
)

// ProductDTO is the catalog entry returned by the browse endpoints.
type ProductDTO struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	PriceCents   int64            `json:"priceCents"`
	ImageURL     string           `json:"imageUrl"`
	Available    bool             `json:"available"`
	Additions    []AdditionDTO    `json:"additions"`
	Subtractions []SubtractionDTO `json:"subtractions"`
}

type AdditionDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"priceCents"`
}

type SubtractionDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ProductListResult is one page of available products.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

// Selection is a product plus the chosen options, resolved from the catalog.
type Selection struct {
	Product      models.Product
	Additions    []models.ProductAddition
	Subtractions []models.ProductSubtraction
}

func newProductDTO(p models.Product) ProductDTO {
	dto := ProductDTO{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		PriceCents:   p.PriceCents,
		ImageURL:     p.ImageURL,
		Available:    p.Available,
		Additions:    make([]AdditionDTO, 0, len(p.Additions)),
		Subtractions: make([]SubtractionDTO, 0, len(p.Subtractions)),
	}
	for _, a := range p.Additions {
		dto.Additions = append(dto.Additions, AdditionDTO{ID: a.ID, Name: a.Name, PriceCents: a.PriceCents})
	}
	for _, s := range p.Subtractions {
		dto.Subtractions = append(dto.Subtractions, SubtractionDTO{ID: s.ID, Name: s.Name})
	}
	return dto
}
