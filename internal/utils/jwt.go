package utils

import (
	"strconv" // User ID formatting
	"time"    // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
	"github.com/google/uuid"       // Unique session IDs
)

// SessionAudience marks session tokens so account tokens cannot be used to log in
const SessionAudience = "session"

// JWT Claims
type Claims struct {
	UserID               uint `json:"user_id"` // Custom claim for user ID
	jwt.RegisteredClaims                       // Standard JWT claims
}

// GenerateJWT creates a session token for a given user ID
func GenerateJWT(userID uint, secret string, ttl time.Duration) (string, *Claims, error) {
	now := time.Now() // Issue time
	// Set token claims
	claims := &Claims{
		UserID: userID, // Custom claim for user ID
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),                       // Session ID, used for revocation
			Subject:   strconv.FormatUint(uint64(userID), 10), // Subject is the user
			Audience:  jwt.ClaimStrings{SessionAudience},      // Only valid as a session
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),       // Token expires after ttl
			IssuedAt:  jwt.NewNumericDate(now),                // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	signed, err := token.SignedString([]byte(secret))          // Sign the token with the secret
	if err != nil {
		return "", nil, err // Return error if signing fails
	}
	return signed, claims, nil
}

// ParseJWT parses and validates a session token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), // Reject other algorithms
		jwt.WithAudience(SessionAudience),                            // Reject account tokens
	)
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil // Return claims if valid
	}
	// Return error if token is invalid
	return nil, jwt.ErrSignatureInvalid
}
