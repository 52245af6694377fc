// Package export writes a user's ledger records as CSV or as an Excel
// workbook.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"expense_tracker/internal/domain"

	"github.com/xuri/excelize/v2"
)

// Source yields records one at a time, in order.
type Source interface {
	Each(ctx context.Context, ownerID uint, fn func(domain.Record) error) error
}

// Sheet describes what is being exported.
type Sheet struct {
	Title    string // "Expenses" or "Income"
	TagLabel string // "Category" or "Source"
}

func (s Sheet) header() []string {
	return []string{"Amount", "Description", s.TagLabel, "Date"}
}

// Filename is the download name for the export made at t, e.g.
// "Expenses 19-10-2026.csv".
func (s Sheet) Filename(t time.Time, ext string) string {
	return s.Title + " " + t.Format("02-01-2006") + "." + ext
}

// WriteCSV streams a header row and one row per record to w.
func WriteCSV(ctx context.Context, w io.Writer, sheet Sheet, src Source, ownerID uint) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(sheet.header()); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	rows := 0
	err := src.Each(ctx, ownerID, func(r domain.Record) error {
		rows++
		return cw.Write([]string{r.Amount.String(), r.Description, r.Tag, r.Date.String()})
	})
	if err != nil {
		return rows, fmt.Errorf("write csv rows: %w", err)
	}
	cw.Flush()
	return rows, cw.Error()
}

// WriteXLSX writes a single-sheet workbook named after the sheet title.
// Rows go through excelize's stream writer so they are not all held as
// cell objects at once.
func WriteXLSX(ctx context.Context, w io.Writer, sheet Sheet, src Source, ownerID uint) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet.Title); err != nil {
		return 0, fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet.Title)
	if err != nil {
		return 0, fmt.Errorf("stream writer: %w", err)
	}
	header := make([]any, 0, 4)
	for _, h := range sheet.header() {
		header = append(header, h)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return 0, fmt.Errorf("write xlsx header: %w", err)
	}

	rows := 0
	err = src.Each(ctx, ownerID, func(r domain.Record) error {
		rows++
		cell, err := excelize.CoordinatesToCellName(1, rows+1)
		if err != nil {
			return err
		}
		return sw.SetRow(cell, []any{r.Amount.InexactFloat64(), r.Description, r.Tag, r.Date.String()})
	})
	if err != nil {
		return rows, fmt.Errorf("write xlsx rows: %w", err)
	}
	if err := sw.Flush(); err != nil {
		return rows, fmt.Errorf("flush xlsx: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return rows, fmt.Errorf("write xlsx: %w", err)
	}
	return rows, nil
}
