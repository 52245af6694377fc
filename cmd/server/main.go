package main

import (
	"context"                          // context package is needed for Redis operations and shutdown
	"errors"                           // Error inspection
	"expense_tracker/internal/account" // Account lifecycle
	"expense_tracker/internal/api"     // Custom package for API handlers
	"expense_tracker/internal/config"  // Custom package for configuration
	"expense_tracker/internal/db"      // Database connection
	"expense_tracker/internal/ledger"  // Ledger stores
	"expense_tracker/internal/mail"    // Mail dispatcher
	"expense_tracker/internal/token"   // Account tokens
	"net/http"                         // HTTP server
	"os/signal"                        // Shutdown signals
	"syscall"                          // Signal numbers
	"time"                             // Timeouts

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"golang.org/x/sync/errgroup"   // Runs the server and the mail worker together
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{}) // Machine readable logs in production
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatal(err) // Refuse to start misconfigured
	}

	// Connect to the database
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client when configured
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
	} else {
		logrus.Warn("REDIS_ADDR not set, summary cache and logout revocation disabled")
	}

	// Shared reference data, loaded once
	catalog, err := ledger.LoadCatalog(context.Background(), gdb)
	if err != nil {
		logrus.Fatalf("failed to load categories and sources: %v", err)
	}

	// Outgoing mail
	var sender mail.Sender = mail.LogSender{}
	if cfg.SMTPHost != "" {
		sender = mail.NewSMTPSender(mail.SMTPConfig{Host: cfg.SMTPHost, Port: cfg.SMTPPort, Username: cfg.SMTPUser, Password: cfg.SMTPPass})
	}
	dispatcher := mail.NewDispatcher(sender, mail.Options{
		QueueSize:   cfg.MailQueueSize,   // Queue capacity
		MaxAttempts: cfg.MailMaxAttempts, // Attempts per message
		RetryDelay:  cfg.MailRetryDelay,  // Backoff step
	})

	accounts := account.NewManager(gdb, token.NewService(cfg.JWTSecret, cfg.TokenTTL), dispatcher, cfg.MailFrom)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(api.Deps{
		Config:   cfg,
		DB:       gdb,
		Redis:    redisClient,
		Accounts: accounts,
		Expenses: ledger.NewExpenses(gdb, catalog),
		Incomes:  ledger.NewIncomes(gdb, catalog),
		Catalog:  catalog,
		Mail:     dispatcher,
	})
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort, // Listen address
		Handler:           r,                 // Gin engine
		ReadHeaderTimeout: 10 * time.Second,  // Slow client guard
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(ctx) // Deliver mail until shutdown
	})
	g.Go(func() error {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done() // Signal received or a worker failed
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logrus.Fatalf("server stopped: %v", err)
	}
	logrus.Info("Server stopped gracefully")
}
