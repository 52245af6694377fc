package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Exact money arithmetic
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true // Amounts are JSON numbers, not strings
}

// Expense Model
type Expense struct {
	ID          uint            `gorm:"primaryKey" json:"id"`                      // Primary key
	OwnerID     uint            `gorm:"index;not null" json:"owner_id"`            // Foreign key to User
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"` // Amount spent
	Description string          `gorm:"type:text;not null" json:"description"`     // Free text description
	Category    string          `gorm:"size:255;not null;index" json:"category"`   // Category tag
	Date        Date            `gorm:"type:date;not null;index" json:"date"`      // Day of the expense
	CreatedAt   time.Time       `json:"-"`                                         // Insertion time
}

// Income Model
type Income struct {
	ID          uint            `gorm:"primaryKey" json:"id"`                      // Primary key
	OwnerID     uint            `gorm:"index;not null" json:"owner_id"`            // Foreign key to User
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"` // Amount received
	Description string          `gorm:"type:text;not null" json:"description"`     // Free text description
	Source      string          `gorm:"size:255;not null;index" json:"source"`     // Source tag
	Date        Date            `gorm:"type:date;not null;index" json:"date"`      // Day of the income
	CreatedAt   time.Time       `json:"-"`                                         // Insertion time
}

// Record is the kind-independent view of a ledger row. Tag holds the
// category of an expense or the source of an income.
type Record struct {
	ID          uint
	OwnerID     uint
	Amount      decimal.Decimal
	Description string
	Tag         string
	Date        Date
}

// Record flattens an expense
func (e Expense) Record() Record {
	return Record{ID: e.ID, OwnerID: e.OwnerID, Amount: e.Amount, Description: e.Description, Tag: e.Category, Date: e.Date}
}

// Record flattens an income
func (i Income) Record() Record {
	return Record{ID: i.ID, OwnerID: i.OwnerID, Amount: i.Amount, Description: i.Description, Tag: i.Source, Date: i.Date}
}

// Category is a shared expense tag
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"-"`                       // Primary key
	Name string `gorm:"size:255;uniqueIndex;not null" json:"name"` // Category name
}

// Source is a shared income tag
type Source struct {
	ID   uint   `gorm:"primaryKey" json:"-"`                       // Primary key
	Name string `gorm:"size:255;uniqueIndex;not null" json:"name"` // Source name
}
