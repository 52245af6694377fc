package db

import (
	"expense_tracker/internal/domain" // Importing domain models
	"fmt"                             // Error wrapping

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/clause"        // ON CONFLICT clauses for seeding
)

// DefaultCategories are seeded into the shared expense category list
var DefaultCategories = []string{"Food", "Travel", "Rent", "Utilities", "Shopping", "Health", "Entertainment", "Other"}

// DefaultSources are seeded into the shared income source list
var DefaultSources = []string{"Salary", "Business", "Freelance", "Investments", "Gifts", "Other"}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	err := db.AutoMigrate(&domain.User{}, &domain.UserPreference{}, &domain.Category{}, &domain.Source{}, &domain.Expense{}, &domain.Income{})
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err) // Wrap migration failure
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}

// Seed inserts the default reference lists, leaving existing rows untouched
func Seed(db *gorm.DB) error {
	categories := make([]domain.Category, len(DefaultCategories)) // Category rows to insert
	for i, name := range DefaultCategories {
		categories[i] = domain.Category{Name: name}
	}
	sources := make([]domain.Source, len(DefaultSources)) // Source rows to insert
	for i, name := range DefaultSources {
		sources[i] = domain.Source{Name: name}
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		// Skip names that are already present
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&categories).Error; err != nil {
			return err // Return error to rollback
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&sources).Error
	})
	if err != nil {
		return fmt.Errorf("seed reference lists: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"categories": len(categories), // Seeded categories
		"sources":    len(sources),    // Seeded sources
	}).Info("Reference lists seeded")
	return nil
}
