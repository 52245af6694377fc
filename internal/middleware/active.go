package middleware

import (
	"expense_tracker/internal/domain" // Importing domain models
	"net/http"                        // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// ActiveUserMiddleware loads the session's user from the database on each request
// and rejects users that were deleted or are not active
func ActiveUserMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
			// If user not found or any error, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Check if user is active
		if !user.IsActive {
			// If not, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account is not active"})
			return
		}
		c.Next() // Proceed to the next handler
	}
}
