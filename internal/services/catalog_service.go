// Package services – CatalogService
//
// This file implements CatalogService, the vendor's menu. Items are upserted
// by the owner (ADD), toggled in and out of stock (IN/OUT), and rendered as the
// live menu text that is shown to customers and passed to the assistant.
//
// The catalog can also be seeded from a YAML file at startup or through the
// seed-menu command.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/tbourn/vendorbot/internal/domain"
	"github.com/tbourn/vendorbot/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMenuText is shown when no item is available.
const DefaultMenuText = "Jollof Rice (N500), Chicken (N1000), Water (N100)"

// SeedItem is one entry of a menu seed file.
type SeedItem struct {
	Name      string  `yaml:"name"`
	Price     float64 `yaml:"price"`
	Available *bool   `yaml:"available,omitempty"`
}

// SeedFile is the top-level shape of a menu seed file.
type SeedFile struct {
	Items []SeedItem `yaml:"items"`
}

// CatalogService manages menu items.
type CatalogService struct {
	DB *gorm.DB
}

// NewCatalogService constructs a CatalogService over db.
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

// ListAvailable returns available items ordered by name, then id.
func (s *CatalogService) ListAvailable(ctx context.Context) ([]domain.MenuItem, error) {
	return repo.ListAvailableMenuItems(ctx, s.DB)
}

// LiveMenuText renders available items one per line as "- {name}: N{price}"
// with the price truncated to an integer. An empty menu yields DefaultMenuText.
func (s *CatalogService) LiveMenuText(ctx context.Context) (string, error) {
	items, err := s.ListAvailable(ctx)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return DefaultMenuText, nil
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("- %s: N%d", it.Name, int64(it.Price)))
	}
	return strings.Join(lines, "\n"), nil
}

// Upsert adds an available item or updates the price of an existing one
// (case-insensitive name match) and marks it available again.
func (s *CatalogService) Upsert(ctx context.Context, name string, price float64) (*domain.MenuItem, bool, error) {
	tr := otel.Tracer("services/CatalogService")
	ctx, span := tr.Start(ctx, "Upsert",
		trace.WithAttributes(
			attribute.String("item.name", name),
			attribute.Float64("item.price", price),
		),
	)
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, ErrEmptyName
	}
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, false, ErrInvalidPrice
	}
	return repo.UpsertMenuItem(ctx, s.DB, name, price)
}

// SetAvailability marks the item best matching fragment as available or out
// of stock. It returns ErrItemNotFound when nothing matches.
func (s *CatalogService) SetAvailability(ctx context.Context, fragment string, available bool) (*domain.MenuItem, error) {
	tr := otel.Tracer("services/CatalogService")
	ctx, span := tr.Start(ctx, "SetAvailability",
		trace.WithAttributes(
			attribute.String("fragment", fragment),
			attribute.Bool("available", available),
		),
	)
	defer span.End()

	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, ErrEmptyName
	}
	cands, err := repo.ListMenuItemsNameLike(ctx, s.DB, fragment)
	if err != nil {
		return nil, err
	}
	it, ok := pickByFragment(cands, fragment,
		func(m domain.MenuItem) string { return m.Name },
		func(m domain.MenuItem) uint { return m.ID })
	if !ok {
		return nil, ErrItemNotFound
	}
	if err := repo.SetMenuItemAvailability(ctx, s.DB, it.ID, available); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	it.IsAvailable = available
	return &it, nil
}

// Seed upserts every item of a seed list and returns how many were applied.
// Items with Available=false are upserted and then marked out of stock.
func (s *CatalogService) Seed(ctx context.Context, items []SeedItem) (int, error) {
	n := 0
	for _, si := range items {
		it, _, err := s.Upsert(ctx, si.Name, si.Price)
		if err != nil {
			return n, fmt.Errorf("seed %q: %w", si.Name, err)
		}
		if si.Available != nil && !*si.Available {
			if err := repo.SetMenuItemAvailability(ctx, s.DB, it.ID, false); err != nil {
				return n, fmt.Errorf("seed %q: %w", si.Name, err)
			}
		}
		n++
	}
	return n, nil
}

// LoadSeedFile parses a YAML menu seed file.
func LoadSeedFile(path string) ([]SeedItem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f SeedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse menu seed %s: %w", path, err)
	}
	return f.Items, nil
}
