package api

import (
	"expense_tracker/internal/export" // CSV and workbook writers
	"expense_tracker/internal/ledger" // Ledger queries
	"net/http"                        // HTTP status codes
	"time"                            // Filename date

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportCSVHandler streams all of the user's records as a CSV attachment
func ExportCSVHandler[T ledger.Row](store *ledger.Store[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		sheet := export.Sheet{Title: store.Name(), TagLabel: store.TagLabel()} // Export layout
		userID := currentUserID(c)                                             // Authenticated user
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="`+sheet.Filename(time.Now(), "csv")+`"`)
		c.Status(http.StatusOK)
		// Rows are written as they are read, so a failure can only be logged
		rows, err := export.WriteCSV(c.Request.Context(), c.Writer, sheet, store, userID)
		logExport(userID, sheet.Title, "csv", rows, err)
	}
}

// ExportXLSXHandler sends all of the user's records as a single-sheet workbook
func ExportXLSXHandler[T ledger.Row](store *ledger.Store[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		sheet := export.Sheet{Title: store.Name(), TagLabel: store.TagLabel()} // Export layout
		userID := currentUserID(c)                                             // Authenticated user
		c.Header("Content-Type", xlsxContentType)
		c.Header("Content-Disposition", `attachment; filename="`+sheet.Filename(time.Now(), "xlsx")+`"`)
		c.Status(http.StatusOK)
		rows, err := export.WriteXLSX(c.Request.Context(), c.Writer, sheet, store, userID)
		logExport(userID, sheet.Title, "xlsx", rows, err)
	}
}

// logExport records the outcome of an export
func logExport(userID uint, kind, format string, rows int, err error) {
	entry := logrus.WithFields(logrus.Fields{
		"user_id": userID, // User ID
		"kind":    kind,   // Record kind
		"format":  format, // File format
		"rows":    rows,   // Rows written
	})
	if err != nil {
		entry.WithError(err).Error("Export failed")
		return
	}
	entry.Info("Export completed")
}
