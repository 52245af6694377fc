package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("MAIL_MAX_ATTEMPTS", "")
	t.Setenv("DEFAULT_CURRENCY", "")

	cfg := LoadConfig()
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 3, cfg.MailMaxAttempts)
	assert.Equal(t, "INR", cfg.DefaultCurrency)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("REDIS_DB", "4")
	t.Setenv("APP_BASE_URL", "https://money.example.com/")

	cfg := LoadConfig()
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 4, cfg.RedisDB)
	assert.Equal(t, "https://money.example.com", cfg.BaseURL)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		AppPort:         "8080",
		DBDriver:        "sqlite",
		SQLitePath:      "test.db",
		JWTSecret:       "secret",
		SessionTTL:      time.Hour,
		TokenTTL:        time.Hour,
		MailQueueSize:   1,
		MailMaxAttempts: 1,
	}
	require.NoError(t, cfg.Validate())

	cfg.JWTSecret = ""
	cfg.DBDriver = "postgres"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "postgres")
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "n"}
	assert.Equal(t, "u:p@tcp(h:3306)/n?parseTime=true", cfg.DSN())
}
