package middleware

import (
	"expense_tracker/internal/utils" // JWT utility functions
	"net/http"                       // HTTP status codes
	"strings"                        // String manipulation

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// SessionCookie is the cookie holding the session token after login
const SessionCookie = "session"

// JWTAuthMiddleware validates the session token from the cookie or Authorization header
func JWTAuthMiddleware(secret string, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := SessionToken(c) // Find the session token
		if tokenStr == "" {
			// If missing, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		claims, err := utils.ParseJWT(tokenStr, secret) // Parse the JWT token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}
		revoked, err := utils.IsSessionRevoked(c.Request.Context(), rdb, claims.ID) // Check logout list
		if err != nil {
			// Redis trouble should not lock everyone out
			logrus.WithFields(logrus.Fields{
				"user_id": claims.UserID, // User ID
				"error":   err.Error(),   // Error message
			}).Warn("Session revocation check failed")
		}
		if revoked {
			// If logged out, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}
		c.Set("userID", claims.UserID) // Store userID in context
		c.Next()                       // Proceed to the next handler
	}
}

// SessionToken returns the bearer token, or the session cookie when there is no header
func SessionToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string
	}
	cookie, err := c.Cookie(SessionCookie) // Fall back to the cookie
	if err != nil {
		return "" // No session
	}
	return cookie
}
