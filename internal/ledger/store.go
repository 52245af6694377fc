// Package ledger stores and queries a user's expense and income records.
// Every read and write is scoped to the owning user.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"expense_tracker/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	// PageSize is the number of records on a listing page.
	PageSize = 5
	// SummaryWindowDays is the look-back window of the tag summary.
	SummaryWindowDays = 30 * 6

	exportBatchSize = 500
)

// Row is a persisted ledger record type.
type Row interface {
	domain.Expense | domain.Income
	Record() domain.Record
}

// Store holds the records of one kind.
type Store[T Row] struct {
	db        *gorm.DB
	name      string
	tagColumn string
	tagLabel  string
	allowed   func() []string
	build     func(ownerID uint, f fields) T
}

// NewExpenses returns the expense store. Categories are checked against
// the catalog.
func NewExpenses(db *gorm.DB, catalog *Catalog) *Store[domain.Expense] {
	return &Store[domain.Expense]{
		db:        db,
		name:      "Expenses",
		tagColumn: "category",
		tagLabel:  "Category",
		allowed:   catalog.Categories,
		build: func(ownerID uint, f fields) domain.Expense {
			return domain.Expense{OwnerID: ownerID, Amount: f.amount, Description: f.description, Category: f.tag, Date: f.date}
		},
	}
}

// NewIncomes returns the income store. Sources are checked against the
// catalog.
func NewIncomes(db *gorm.DB, catalog *Catalog) *Store[domain.Income] {
	return &Store[domain.Income]{
		db:        db,
		name:      "Income",
		tagColumn: "source",
		tagLabel:  "Source",
		allowed:   catalog.Sources,
		build: func(ownerID uint, f fields) domain.Income {
			return domain.Income{OwnerID: ownerID, Amount: f.amount, Description: f.description, Source: f.tag, Date: f.date}
		},
	}
}

// Name is the display name of the record kind, e.g. "Expenses".
func (s *Store[T]) Name() string { return s.name }

// TagLabel is the column title of the tag, e.g. "Category".
func (s *Store[T]) TagLabel() string { return s.tagLabel }

// Page is one page of a listing.
type Page[T Row] struct {
	Items       []T   `json:"items"`
	Number      int   `json:"page"`
	Size        int   `json:"page_size"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// List returns page number of the owner's records in insertion order.
// Out of range page numbers are clamped to the first or last page.
func (s *Store[T]) List(ctx context.Context, ownerID uint, number int) (*Page[T], error) {
	total, err := s.Count(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	totalPages := max(1, int((total+PageSize-1)/PageSize))
	number = min(max(number, 1), totalPages)

	items := []T{}
	err = s.owned(ctx, ownerID).
		Order("id").
		Offset((number - 1) * PageSize).
		Limit(PageSize).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.tagColumn, err)
	}
	return &Page[T]{
		Items:       items,
		Number:      number,
		Size:        PageSize,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     number < totalPages,
		HasPrevious: number > 1,
	}, nil
}

// Count returns the number of records the owner has.
func (s *Store[T]) Count(ctx context.Context, ownerID uint) (int64, error) {
	var total int64
	if err := s.owned(ctx, ownerID).Model(new(T)).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", s.tagColumn, err)
	}
	return total, nil
}

// Search matches the owner's records whose date starts with text, or whose
// description or tag contains it, ignoring case. If text is a number,
// records with exactly that amount match too. Numbers too large or too
// precise for an amount match nothing by amount.
func (s *Store[T]) Search(ctx context.Context, ownerID uint, text string) ([]T, error) {
	text = strings.TrimSpace(text)
	pattern := escapeLike(strings.ToLower(text))

	cond := s.db.Where("date LIKE ? ESCAPE '!'", pattern+"%").
		Or("LOWER(description) LIKE ? ESCAPE '!'", "%"+pattern+"%").
		Or("LOWER("+s.tagColumn+") LIKE ? ESCAPE '!'", "%"+pattern+"%")
	if amount, err := decimal.NewFromString(text); err == nil && checkAmount(amount) == "" {
		cond = cond.Or("amount = ?", amount)
	}

	rows := []T{}
	if err := s.owned(ctx, ownerID).Where(cond).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("search %s: %w", s.tagColumn, err)
	}
	return rows, nil
}

// Summary totals the owner's amounts per tag over the SummaryWindowDays
// days up to and including today. Tags with no records in the window are
// absent.
func (s *Store[T]) Summary(ctx context.Context, ownerID uint, today domain.Date) (map[string]decimal.Decimal, error) {
	from := today.AddDays(-SummaryWindowDays)
	var rows []T
	err := s.owned(ctx, ownerID).
		Where("date >= ? AND date <= ?", from, today).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", s.tagColumn, err)
	}
	totals := make(map[string]decimal.Decimal)
	for _, row := range rows {
		r := row.Record()
		totals[r.Tag] = totals[r.Tag].Add(r.Amount)
	}
	return totals, nil
}

// Get returns one of the owner's records.
func (s *Store[T]) Get(ctx context.Context, ownerID, id uint) (*T, error) {
	var row T
	err := s.owned(ctx, ownerID).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", s.tagColumn, id, err)
	}
	return &row, nil
}

// Create validates in and stores it as a new record of the owner.
func (s *Store[T]) Create(ctx context.Context, ownerID uint, in Input) (*T, error) {
	f, err := in.parse(s.tagLabel, s.allowed())
	if err != nil {
		return nil, err
	}
	row := s.build(ownerID, f)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create %s: %w", s.tagColumn, err)
	}
	return &row, nil
}

// Update replaces the fields of one of the owner's records.
func (s *Store[T]) Update(ctx context.Context, ownerID, id uint, in Input) (*T, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	f, err := in.parse(s.tagLabel, s.allowed())
	if err != nil {
		return nil, err
	}
	res := s.owned(ctx, ownerID).Model(new(T)).Where("id = ?", id).Updates(map[string]any{
		"amount":      f.amount,
		"description": f.description,
		s.tagColumn:   f.tag,
		"date":        f.date,
	})
	if res.Error != nil {
		return nil, fmt.Errorf("update %s %d: %w", s.tagColumn, id, res.Error)
	}
	return s.Get(ctx, ownerID, id)
}

// Delete removes one of the owner's records.
func (s *Store[T]) Delete(ctx context.Context, ownerID, id uint) error {
	res := s.owned(ctx, ownerID).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return fmt.Errorf("delete %s %d: %w", s.tagColumn, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Each calls fn for every record of the owner in insertion order, loading
// them in batches.
func (s *Store[T]) Each(ctx context.Context, ownerID uint, fn func(domain.Record) error) error {
	var batch []T
	res := s.owned(ctx, ownerID).FindInBatches(&batch, exportBatchSize, func(*gorm.DB, int) error {
		for _, row := range batch {
			if err := fn(row.Record()); err != nil {
				return err
			}
		}
		return nil
	})
	if res.Error != nil {
		return fmt.Errorf("iterate %s: %w", s.tagColumn, res.Error)
	}
	return nil
}

func (s *Store[T]) owned(ctx context.Context, ownerID uint) *gorm.DB {
	return s.db.WithContext(ctx).Where("owner_id = ?", ownerID)
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
