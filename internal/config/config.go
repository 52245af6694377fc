package config

import (
	"fmt"     // Error formatting
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // Joining validation problems
	"time"    // Durations for TTLs and retry delays

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort         string        // Application port
	BaseURL         string        // Base URL used in emailed links, empty means request host
	DBDriver        string        // Database driver: mysql or sqlite
	DBUser          string        // Database user
	DBPassword      string        // Database password
	DBHost          string        // Database host
	DBPort          string        // Database port
	DBName          string        // Database name
	SQLitePath      string        // SQLite file path when DBDriver is sqlite
	JWTSecret       string        // Secret for session JWTs and account tokens
	SessionTTL      time.Duration // Lifetime of a login session
	TokenTTL        time.Duration // Validity window of activation/reset tokens
	RedisAddr       string        // Redis server address, empty disables caching
	RedisPass       string        // Redis password
	RedisDB         int           // Redis database number
	SMTPHost        string        // SMTP host, empty logs mails instead of sending
	SMTPPort        int           // SMTP port
	SMTPUser        string        // SMTP username
	SMTPPass        string        // SMTP password
	MailFrom        string        // Sender address for transactional mail
	MailQueueSize   int           // Capacity of the outgoing mail queue
	MailMaxAttempts int           // Delivery attempts per message before giving up
	MailRetryDelay  time.Duration // Base delay between delivery attempts
	DefaultCurrency string        // Currency assigned to new preferences
	LogLevel        string        // Logrus level name
	IsProd          bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:         getEnv("APP_PORT", "8080"),                        // Application port
		BaseURL:         strings.TrimRight(os.Getenv("APP_BASE_URL"), "/"), // Link base
		DBDriver:        getEnv("DB_DRIVER", "mysql"),                      // Database driver
		DBUser:          os.Getenv("DB_USER"),                              // Database user
		DBPassword:      os.Getenv("DB_PASSWORD"),                          // Database password
		DBHost:          getEnv("DB_HOST", "127.0.0.1"),                    // Database host
		DBPort:          getEnv("DB_PORT", "3306"),                         // Database port
		DBName:          os.Getenv("DB_NAME"),                              // Database name
		SQLitePath:      getEnv("SQLITE_PATH", "expenses.db"),              // SQLite file
		JWTSecret:       os.Getenv("JWT_SECRET"),                           // JWT secret key
		SessionTTL:      getEnvDuration("SESSION_TTL", 24*time.Hour),       // Session lifetime
		TokenTTL:        getEnvDuration("TOKEN_TTL", 72*time.Hour),         // Token validity window
		RedisAddr:       os.Getenv("REDIS_ADDR"),                           // Redis server address
		RedisPass:       os.Getenv("REDIS_PASS"),                           // Redis password
		RedisDB:         getEnvInt("REDIS_DB", 0),                          // Redis database number
		SMTPHost:        os.Getenv("SMTP_HOST"),                            // SMTP host
		SMTPPort:        getEnvInt("SMTP_PORT", 587),                       // SMTP port
		SMTPUser:        os.Getenv("SMTP_USER"),                            // SMTP user
		SMTPPass:        os.Getenv("SMTP_PASS"),                            // SMTP password
		MailFrom:        getEnv("MAIL_FROM", "noreply@example.com"),        // Sender address
		MailQueueSize:   getEnvInt("MAIL_QUEUE_SIZE", 100),                 // Mail queue capacity
		MailMaxAttempts: getEnvInt("MAIL_MAX_ATTEMPTS", 3),                 // Delivery attempts
		MailRetryDelay:  getEnvDuration("MAIL_RETRY_DELAY", 2*time.Second), // Retry delay
		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "INR"),                 // Default currency
		LogLevel:        getEnv("LOG_LEVEL", "info"),                       // Log level
		IsProd:          os.Getenv("IS_PROD") == "true",                    // Is production environment
	}
}

// DSN builds the MySQL Data Source Name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// Validate reports every missing or invalid setting at once
func (c *Config) Validate() error {
	var problems []string
	if port, err := strconv.Atoi(c.AppPort); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid APP_PORT %q", c.AppPort))
	}
	switch c.DBDriver {
	case "mysql":
		if c.DBName == "" {
			problems = append(problems, "DB_NAME is required for mysql")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			problems = append(problems, "SQLITE_PATH is required for sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 || c.SessionTTL <= 0 {
		problems = append(problems, "TOKEN_TTL and SESSION_TTL must be positive")
	}
	if c.MailQueueSize < 1 || c.MailMaxAttempts < 1 {
		problems = append(problems, "MAIL_QUEUE_SIZE and MAIL_MAX_ATTEMPTS must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// getEnv returns the variable or a fallback when unset
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt parses an integer variable, falling back on absence or parse errors
func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// getEnvDuration parses a duration variable such as "72h"
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
