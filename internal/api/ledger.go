package api

import (
	"context"                          // Context for Redis operations
	"encoding/json"                    // Amounts that may arrive as numbers or strings
	"errors"                           // Error inspection
	"expense_tracker/internal/account" // Preferences
	"expense_tracker/internal/domain"  // Importing domain models
	"expense_tracker/internal/ledger"  // Ledger queries
	"expense_tracker/internal/utils"   // Cache helpers
	"net/http"                         // HTTP status codes
	"strconv"                          // String conversion
	"time"                             // Cache TTL

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Summary totals
	"github.com/sirupsen/logrus"    // Logging library
)

// summaryTTL bounds how stale a cached summary can be
const summaryTTL = 60 * time.Second

// RecordRequest is the add/edit form of an expense or income record
type RecordRequest struct {
	Amount      formValue `json:"amount" form:"amount"`           // Amount as typed
	Description string    `json:"description" form:"description"` // Description
	Category    string    `json:"category" form:"category"`       // Expense category
	Source      string    `json:"source" form:"source"`           // Income source
	Date        string    `json:"date" form:"date"`               // YYYY-MM-DD
}

// formValue keeps a JSON string or number as typed, so the ledger reports
// bad amounts with its own messages
type formValue string

func (v *formValue) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string // Quoted value
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = formValue(s)
		return nil
	}
	if string(b) == "null" {
		*v = "" // Same as missing
		return nil
	}
	*v = formValue(b) // Number or anything else, left for validation
	return nil
}

// SearchRequest is the live search body
type SearchRequest struct {
	SearchText string `json:"searchText"` // Free text query
}

// cachedSummary is what the summary cache stores
type cachedSummary struct {
	Date   string                     `json:"date"`   // Day the summary was computed for
	Totals map[string]decimal.Decimal `json:"totals"` // Totals per tag
}

// ListHandler returns one page of the user's records and their display currency
func ListHandler[T ledger.Row](store *ledger.Store[T], mgr *account.Manager, defaultCurrency string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := currentUserID(c) // Authenticated user
		page := 1                  // Default page
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil {
				page = v // Out of range pages are clamped by the store
			}
		}
		result, err := store.List(c.Request.Context(), userID, page)
		if err != nil {
			internalError(c, err, "list records")
			return
		}
		pref, err := mgr.Preferences(c.Request.Context(), userID, defaultCurrency)
		if err != nil {
			internalError(c, err, "load preferences")
			return
		}
		c.JSON(http.StatusOK, gin.H{"page": result, "currency": pref.Currency})
	}
}

// GetRecordHandler returns one of the user's records
func GetRecordHandler[T ledger.Row](store *ledger.Store[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := recordID(c) // Record ID from the path
		if !ok {
			return
		}
		row, err := store.Get(c.Request.Context(), currentUserID(c), id)
		if err != nil {
			respondLedgerError(c, err, "get record")
			return
		}
		c.JSON(http.StatusOK, row)
	}
}

// AddRecordHandler stores a new record for the user
func AddRecordHandler[T ledger.Row](store *ledger.Store[T], rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, ok := bindRecord(c, store) // Parse the form
		if !ok {
			return
		}
		userID := currentUserID(c) // Authenticated user
		row, err := store.Create(c.Request.Context(), userID, in)
		if err != nil {
			respondLedgerError(c, err, "create record")
			return
		}
		invalidateSummary(c.Request.Context(), rdb, store.Name(), userID) // Totals changed
		logrus.WithFields(logrus.Fields{
			"user_id": userID,       // User ID
			"kind":    store.Name(), // Record kind
		}).Info("Record added")
		c.JSON(http.StatusCreated, gin.H{"message": "Record saved successfully", "record": row})
	}
}

// EditRecordHandler replaces the fields of one of the user's records
func EditRecordHandler[T ledger.Row](store *ledger.Store[T], rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := recordID(c) // Record ID from the path
		if !ok {
			return
		}
		in, ok := bindRecord(c, store) // Parse the form
		if !ok {
			return
		}
		userID := currentUserID(c) // Authenticated user
		row, err := store.Update(c.Request.Context(), userID, id, in)
		if err != nil {
			respondLedgerError(c, err, "update record")
			return
		}
		invalidateSummary(c.Request.Context(), rdb, store.Name(), userID) // Totals changed
		c.JSON(http.StatusOK, gin.H{"message": "Record updated successfully", "record": row})
	}
}

// DeleteRecordHandler removes one of the user's records
func DeleteRecordHandler[T ledger.Row](store *ledger.Store[T], rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := recordID(c) // Record ID from the path
		if !ok {
			return
		}
		userID := currentUserID(c) // Authenticated user
		if err := store.Delete(c.Request.Context(), userID, id); err != nil {
			respondLedgerError(c, err, "delete record")
			return
		}
		invalidateSummary(c.Request.Context(), rdb, store.Name(), userID) // Totals changed
		c.JSON(http.StatusOK, gin.H{"message": "Record deleted successfully"})
	}
}

// SearchHandler returns the user's records matching the search text
func SearchHandler[T ledger.Row](store *ledger.Store[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SearchRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		rows, err := store.Search(c.Request.Context(), currentUserID(c), req.SearchText)
		if err != nil {
			internalError(c, err, "search records")
			return
		}
		c.JSON(http.StatusOK, rows) // Flat list of records
	}
}

// SummaryHandler returns the user's totals per tag over the trailing six months under key
func SummaryHandler[T ledger.Row](store *ledger.Store[T], rdb *redis.Client, key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()                                // Request context
		userID := currentUserID(c)                                // Authenticated user
		today := domain.Today()                                   // Window end
		cacheKey := summaryCacheKey(store.Name(), userID)         // Cache key for the summary
		var cached cachedSummary                                  // Cached summary, if any
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached) // Try to get from cache
		// If found in cache and computed today, return it
		if err == nil && found && cached.Date == today.String() {
			c.JSON(http.StatusOK, gin.H{key: cached.Totals})
			return
		}
		totals, err := store.Summary(ctx, userID, today)
		if err != nil {
			internalError(c, err, "summarize records")
			return
		}
		// Cache the result
		_ = utils.SetCache(ctx, rdb, cacheKey, cachedSummary{Date: today.String(), Totals: totals}, summaryTTL)
		c.JSON(http.StatusOK, gin.H{key: totals})
	}
}

// bindRecord parses the add/edit form, picking the tag field that fits the store
func bindRecord[T ledger.Row](c *gin.Context, store *ledger.Store[T]) (ledger.Input, bool) {
	var req RecordRequest // Bind JSON or form request to struct
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return ledger.Input{}, false
	}
	tag := req.Category // Expenses are tagged by category
	if store.TagLabel() == "Source" {
		tag = req.Source // Income is tagged by source
	}
	return ledger.Input{Amount: string(req.Amount), Description: req.Description, Tag: tag, Date: req.Date}, true
}

// recordID parses the :id path parameter, answering 404 when it is not a number
func recordID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return 0, false
	}
	return uint(id), true
}

// currentUserID returns the user set by the auth middleware
func currentUserID(c *gin.Context) uint {
	return c.MustGet("userID").(uint)
}

// respondLedgerError maps ledger errors to responses
func respondLedgerError(c *gin.Context, err error, op string) {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
	default:
		internalError(c, err, op)
	}
}

// summaryCacheKey is the Redis key of a user's summary
func summaryCacheKey(kind string, userID uint) string {
	return "summary:" + kind + ":user:" + strconv.Itoa(int(userID))
}

// invalidateSummary drops a user's cached summary after a write
func invalidateSummary(ctx context.Context, rdb *redis.Client, kind string, userID uint) {
	if err := utils.DeleteCache(ctx, rdb, summaryCacheKey(kind, userID)); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,      // User ID
			"error":   err.Error(), // Error message
		}).Warn("Failed to invalidate summary cache")
	}
}
