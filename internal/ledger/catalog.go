package ledger

import (
	"context"
	"fmt"
	"slices"

	"expense_tracker/internal/domain"

	"gorm.io/gorm"
)

// Catalog is the shared list of expense categories and income sources.
// It is loaded once and never mutated, so it is safe for concurrent use.
type Catalog struct {
	categories []string
	sources    []string
}

// NewCatalog builds a catalog from fixed lists.
func NewCatalog(categories, sources []string) *Catalog {
	return &Catalog{categories: slices.Clone(categories), sources: slices.Clone(sources)}
}

// LoadCatalog reads both reference tables.
func LoadCatalog(ctx context.Context, db *gorm.DB) (*Catalog, error) {
	var categories []string
	if err := db.WithContext(ctx).Model(&domain.Category{}).Order("name").Pluck("name", &categories).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	var sources []string
	if err := db.WithContext(ctx).Model(&domain.Source{}).Order("name").Pluck("name", &sources).Error; err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	return &Catalog{categories: categories, sources: sources}, nil
}

func (c *Catalog) Categories() []string { return slices.Clone(c.categories) }

func (c *Catalog) Sources() []string { return slices.Clone(c.sources) }

// allows reports whether name is in list. An empty list allows anything.
func allows(list []string, name string) bool {
	return len(list) == 0 || slices.Contains(list, name)
}
