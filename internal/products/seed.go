package product

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/angelmondragon/sunrise-backend/pkg/db/models"
	"github.com/angelmondragon/sunrise-backend/pkg/pricing"
)

//go:embed default_menu.yaml
var defaultMenu []byte

// SeedFile is the YAML catalog format. Prices are written in dollars.
type SeedFile struct {
	Products []SeedProduct `yaml:"products"`
}

type SeedProduct struct {
	Slug         string         `yaml:"slug"`
	Name         string         `yaml:"name"`
	Description  string         `yaml:"description"`
	Price        string         `yaml:"price"`
	ImageURL     string         `yaml:"image_url"`
	Available    *bool          `yaml:"available"`
	Additions    []SeedAddition `yaml:"additions"`
	Subtractions []string       `yaml:"subtractions"`
}

type SeedAddition struct {
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
}

// ParseSeed decodes and validates a YAML catalog.
func ParseSeed(data []byte) (*SeedFile, error) {
	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}
	if len(file.Products) == 0 {
		return nil, fmt.Errorf("catalog has no products")
	}
	seen := map[string]struct{}{}
	for i, p := range file.Products {
		if strings.TrimSpace(p.Slug) == "" || strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("product %d: slug and name are required", i)
		}
		if _, dup := seen[p.Slug]; dup {
			return nil, fmt.Errorf("product %q: duplicate slug", p.Slug)
		}
		seen[p.Slug] = struct{}{}
	}
	return &file, nil
}

// LoadSeedFile reads a YAML catalog from disk.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %q: %w", path, err)
	}
	return ParseSeed(data)
}

// DefaultSeed returns the built-in breakfast menu.
func DefaultSeed() (*SeedFile, error) {
	return ParseSeed(defaultMenu)
}

// Seed upserts every product of file by slug and returns how many were written.
func (s *Service) Seed(ctx context.Context, file *SeedFile) (int, error) {
	if file == nil {
		return 0, fmt.Errorf("seed file required")
	}
	written := 0
	for i, entry := range file.Products {
		product, err := entry.toModel(i)
		if err != nil {
			return written, err
		}
		if err := s.repo.UpsertBySlug(ctx, product); err != nil {
			return written, fmt.Errorf("upsert %q: %w", entry.Slug, err)
		}
		written++
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "products", written), "catalog seeded")
	}
	return written, nil
}

func (p SeedProduct) toModel(position int) (*models.Product, error) {
	price, err := pricing.DollarsToCents(p.Price)
	if err != nil {
		return nil, fmt.Errorf("product %q price: %w", p.Slug, err)
	}
	available := true
	if p.Available != nil {
		available = *p.Available
	}
	product := &models.Product{
		Slug:        p.Slug,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  price,
		ImageURL:    p.ImageURL,
		Available:   available,
		SortOrder:   position,
	}
	for i, a := range p.Additions {
		cents, err := pricing.DollarsToCents(a.Price)
		if err != nil {
			return nil, fmt.Errorf("product %q addition %q price: %w", p.Slug, a.Name, err)
		}
		product.Additions = append(product.Additions, models.ProductAddition{Name: a.Name, PriceCents: cents, SortOrder: i})
	}
	for i, name := range p.Subtractions {
		product.Subtractions = append(product.Subtractions, models.ProductSubtraction{Name: name, SortOrder: i})
	}
	return product, nil
}
