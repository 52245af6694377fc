package api

import (
	"errors"                           // Error inspection
	"expense_tracker/internal/account" // Preferences
	"expense_tracker/internal/ledger"  // Reference catalog
	"expense_tracker/internal/mail"    // Dispatcher stats
	"net/http"                         // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// PreferencesRequest changes the display currency
type PreferencesRequest struct {
	Currency string `json:"currency" form:"currency" binding:"required"` // ISO 4217 code
}

// GetPreferencesHandler returns the user's preferences, creating them on first access
func GetPreferencesHandler(mgr *account.Manager, defaultCurrency string) gin.HandlerFunc {
	return func(c *gin.Context) {
		pref, err := mgr.Preferences(c.Request.Context(), currentUserID(c), defaultCurrency)
		if err != nil {
			internalError(c, err, "load preferences")
			return
		}
		c.JSON(http.StatusOK, pref)
	}
}

// SetPreferencesHandler updates the user's display currency
func SetPreferencesHandler(mgr *account.Manager, defaultCurrency string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PreferencesRequest // Bind JSON or form request to struct
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Currency is required"})
			return
		}
		pref, err := mgr.SetCurrency(c.Request.Context(), currentUserID(c), req.Currency, defaultCurrency)
		var verr *account.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
		case err != nil:
			internalError(c, err, "save preferences")
		default:
			c.JSON(http.StatusOK, gin.H{"message": "Changes saved", "currency": pref.Currency})
		}
	}
}

// CategoriesHandler returns the shared expense categories
func CategoriesHandler(catalog *ledger.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"categories": catalog.Categories()})
	}
}

// SourcesHandler returns the shared income sources
func SourcesHandler(catalog *ledger.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sources": catalog.Sources()})
	}
}

// HealthHandler reports liveness and the mail delivery counters
func HealthHandler(dispatcher *mail.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mail": dispatcher.Stats()})
	}
}
