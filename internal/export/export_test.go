package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"expense_tracker/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// sliceSource serves records from memory, filtered by owner.
type sliceSource []domain.Record

func (s sliceSource) Each(_ context.Context, ownerID uint, fn func(domain.Record) error) error {
	for _, r := range s {
		if r.OwnerID != ownerID {
			continue
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func records() sliceSource {
	d, _ := domain.ParseDate("2026-10-01")
	var out sliceSource
	for i := 0; i < 12; i++ {
		out = append(out, domain.Record{
			ID:          uint(i + 1),
			OwnerID:     1,
			Amount:      decimal.NewFromFloat(10.5).Add(decimal.NewFromInt(int64(i))),
			Description: "coffee, with milk",
			Tag:         "Food",
			Date:        d.AddDays(i),
		})
	}
	out = append(out, domain.Record{ID: 99, OwnerID: 2, Amount: decimal.NewFromInt(1), Description: "other", Tag: "Food", Date: d})
	return out
}

var expenses = Sheet{Title: "Expenses", TagLabel: "Category"}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteCSV(context.Background(), &buf, expenses, records(), 1)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 13)
	assert.Equal(t, []string{"Amount", "Description", "Category", "Date"}, rows[0])
	assert.Equal(t, []string{"10.5", "coffee, with milk", "Food", "2026-10-01"}, rows[1])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteXLSX(context.Background(), &buf, Sheet{Title: "Income", TagLabel: "Source"}, records(), 1)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Income"}, f.GetSheetList())
	rows, err := f.GetRows("Income")
	require.NoError(t, err)
	require.Len(t, rows, 13)
	assert.Equal(t, []string{"Amount", "Description", "Source", "Date"}, rows[0])
	assert.Equal(t, "coffee, with milk", rows[1][1])
	assert.Equal(t, "2026-10-12", rows[12][3])
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "Expenses 19-10-2026.csv", expenses.Filename(at, "csv"))
}
