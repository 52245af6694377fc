package main

import (
	"expense_tracker/internal/config" // Custom import path (Config)
	"expense_tracker/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration

	gdb, err := db.Open(cfg) // Connect using DB_DRIVER
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err) // Log fatal error if connection fails
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("migration failed: %v", err) // Log fatal error if migration fails
	}
	if err := db.Seed(gdb); err != nil {
		logrus.Fatalf("seeding failed: %v", err) // Log fatal error if seeding fails
	}
}
