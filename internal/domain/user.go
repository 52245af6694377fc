package domain

import "time" // Timestamps

// User Model
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`                                   // Primary key
	Username   string         `gorm:"size:150;uniqueIndex;not null" json:"username"`          // Unique username
	Email      string         `gorm:"size:254;uniqueIndex;not null" json:"email"`             // Unique email
	Password   string         `gorm:"not null" json:"-"`                                      // Hashed password
	IsActive   bool           `gorm:"not null;default:false" json:"is_active"`                // False until email is verified
	LastLogin  *time.Time     `json:"last_login,omitempty"`                                   // Last successful login
	CreatedAt  time.Time      `json:"created_at"`                                             // Registration time
	Preference UserPreference `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"` // One-to-one relationship with UserPreference
}

// UserPreference Model
type UserPreference struct {
	ID       uint   `gorm:"primaryKey" json:"-"`             // Primary key
	UserID   uint   `gorm:"uniqueIndex;not null" json:"-"`   // Foreign key to User
	Currency string `gorm:"size:3;not null" json:"currency"` // Display currency
}
