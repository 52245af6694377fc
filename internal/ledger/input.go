package ledger

import (
	"errors"
	"strings"

	"expense_tracker/internal/domain"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned for records that do not exist or belong to
// another user.
var ErrNotFound = errors.New("record not found")

// ValidationError is a form error that can be shown to the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Amounts are stored as decimal(12,2).
const (
	amountScale     = 2
	amountIntDigits = 10
)

// checkAmount returns the problem that keeps a out of the amount column, or
// "" when it fits. It only inspects the exponent and the coefficient, never
// the expanded value.
func checkAmount(a decimal.Decimal) string {
	exp := int64(a.Exponent())
	if exp < -amountScale {
		return "Amount must have at most 2 decimal places"
	}
	if exp > amountIntDigits || int64(a.NumDigits())+exp > amountIntDigits {
		return "Amount must have at most 10 digits before the decimal point"
	}
	return ""
}

// Input is the add/edit form of a record. Tag is the category of an
// expense or the source of an income.
type Input struct {
	Amount      string `json:"amount" form:"amount"`
	Description string `json:"description" form:"description"`
	Tag         string `json:"tag" form:"tag"`
	Date        string `json:"date" form:"date"`
}

type fields struct {
	amount      decimal.Decimal
	description string
	tag         string
	date        domain.Date
}

// parse checks the form in field order and returns the first problem.
func (in Input) parse(tagLabel string, allowed []string) (fields, error) {
	var f fields
	amount := strings.TrimSpace(in.Amount)
	if amount == "" {
		return f, &ValidationError{"amount", "Amount is required"}
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return f, &ValidationError{"amount", "Amount must be a number"}
	}
	if msg := checkAmount(a); msg != "" {
		return f, &ValidationError{"amount", msg}
	}
	f.amount = a

	f.description = strings.TrimSpace(in.Description)
	if f.description == "" {
		return f, &ValidationError{"description", "Description is required"}
	}

	f.tag = strings.TrimSpace(in.Tag)
	if f.tag == "" {
		return f, &ValidationError{"tag", tagLabel + " is required"}
	}
	if !allows(allowed, f.tag) {
		return f, &ValidationError{"tag", tagLabel + " is not in the list"}
	}

	date := strings.TrimSpace(in.Date)
	if date == "" {
		return f, &ValidationError{"date", "Date is required"}
	}
	d, err := domain.ParseDate(date)
	if err != nil {
		return f, &ValidationError{"date", "Date must be formatted YYYY-MM-DD"}
	}
	f.date = d
	return f, nil
}
