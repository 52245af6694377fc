package api

import (
	"expense_tracker/internal/account"    // Account lifecycle
	"expense_tracker/internal/config"     // Custom package for configuration
	"expense_tracker/internal/domain"     // Importing domain models
	"expense_tracker/internal/ledger"     // Ledger queries
	"expense_tracker/internal/mail"       // Mail dispatcher
	"expense_tracker/internal/middleware" // Custom package for middleware

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// Deps are the collaborators the handlers need
type Deps struct {
	Config   *config.Config                // Application configuration
	DB       *gorm.DB                      // Database
	Redis    *redis.Client                 // Optional cache, nil disables it
	Accounts *account.Manager              // Account lifecycle
	Expenses *ledger.Store[domain.Expense] // Expense records
	Incomes  *ledger.Store[domain.Income]  // Income records
	Catalog  *ledger.Catalog               // Shared categories and sources
	Mail     *mail.Dispatcher              // Outgoing mail
}

// NewRouter builds the engine with every route
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config // Shorthand
	r := gin.New()  // Gin router instance
	r.Use(gin.Logger(), gin.Recovery())

	// Auth routes
	r.POST("/register", RegisterHandler(d.Accounts, cfg.BaseURL))                         // Registration endpoint
	r.GET("/login", LoginPageHandler())                                                   // Login page notices
	r.POST("/login", LoginHandler(d.Accounts, cfg.JWTSecret, cfg.SessionTTL, cfg.IsProd)) // Login endpoint
	r.POST("/logout", LogoutHandler(cfg.JWTSecret, d.Redis, cfg.IsProd))                  // Logout endpoint
	r.POST("/validate-username", ValidateUsernameHandler(d.Accounts))                     // Live username check
	r.POST("/validate-email", ValidateEmailHandler(d.Accounts))                           // Live email check
	r.GET("/activate/:uid/:token", ActivateHandler(d.Accounts))                           // Activation link
	r.POST("/reset-password", ForgotPasswordHandler(d.Accounts, cfg.BaseURL))             // Forgot password
	r.GET("/set-new-password/:uid/:token", SetNewPasswordPageHandler(d.Accounts))         // Reset link check
	r.POST("/set-new-password/:uid/:token", SetNewPasswordHandler(d.Accounts))            // Reset password
	r.GET("/healthz", HealthHandler(d.Mail))                                              // Liveness and mail counters

	// Everything else needs an active, logged in user
	authed := r.Group("/")
	authed.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret, d.Redis), middleware.ActiveUserMiddleware(d.DB))
	authed.GET("/categories", CategoriesHandler(d.Catalog))                             // Shared categories
	authed.GET("/sources", SourcesHandler(d.Catalog))                                   // Shared sources
	authed.GET("/preferences", GetPreferencesHandler(d.Accounts, cfg.DefaultCurrency))  // Preferences
	authed.POST("/preferences", SetPreferencesHandler(d.Accounts, cfg.DefaultCurrency)) // Change currency

	registerLedger(authed.Group("/expenses"), d, d.Expenses, "/category-summary", "expense_category_data")
	registerLedger(authed.Group("/income"), d, d.Incomes, "/source-summary", "income_source_data")
	return r
}

// registerLedger mounts the routes of one record kind on g
func registerLedger[T ledger.Row](g *gin.RouterGroup, d Deps, store *ledger.Store[T], summaryPath, summaryKey string) {
	g.GET("", ListHandler(store, d.Accounts, d.Config.DefaultCurrency)) // Paginated listing
	g.POST("", AddRecordHandler(store, d.Redis))                        // Add record
	g.POST("/search", SearchHandler(store))                             // Live search
	g.GET(summaryPath, SummaryHandler(store, d.Redis, summaryKey))      // Six month totals per tag
	g.GET("/export/csv", ExportCSVHandler(store))                       // CSV download
	g.GET("/export/xlsx", ExportXLSXHandler(store))                     // Workbook download
	g.GET("/:id", GetRecordHandler(store))                              // Single record
	g.PUT("/:id", EditRecordHandler(store, d.Redis))                    // Edit record
	g.DELETE("/:id", DeleteRecordHandler(store, d.Redis))               // Delete record
}
