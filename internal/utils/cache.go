package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// All helpers treat a nil client as a disabled cache: reads miss and writes succeed.

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil // Caching disabled
	}
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	if rdb == nil {
		return nil // Caching disabled
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil // Caching disabled or nothing to delete
	}
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// RevokeSession records a session ID as logged out until the session would have expired
func RevokeSession(ctx context.Context, rdb *redis.Client, sessionID string, until time.Time) error {
	ttl := time.Until(until) // Remaining session lifetime
	if rdb == nil || ttl <= 0 {
		return nil // Nothing to remember
	}
	return rdb.Set(ctx, "session:revoked:"+sessionID, 1, ttl).Err() // Expires with the session
}

// IsSessionRevoked reports whether a session ID has been logged out
func IsSessionRevoked(ctx context.Context, rdb *redis.Client, sessionID string) (bool, error) {
	if rdb == nil {
		return false, nil // Revocation needs Redis
	}
	n, err := rdb.Exists(ctx, "session:revoked:"+sessionID).Result() // Check revocation key
	if err != nil {
		return false, err // Redis error
	}
	return n > 0, nil
}
