package account

import (
	"context"
	"fmt"
	"strings"

	"expense_tracker/internal/domain"
)

// Preferences returns the user's preferences, creating them with
// defaultCurrency on first access.
func (m *Manager) Preferences(ctx context.Context, userID uint, defaultCurrency string) (*domain.UserPreference, error) {
	pref := domain.UserPreference{}
	err := m.db.WithContext(ctx).
		Where(domain.UserPreference{UserID: userID}).
		Attrs(domain.UserPreference{Currency: defaultCurrency}).
		FirstOrCreate(&pref).Error
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	return &pref, nil
}

// SetCurrency changes the user's display currency.
func (m *Manager) SetCurrency(ctx context.Context, userID uint, currency, defaultCurrency string) (*domain.UserPreference, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if err := validate.Var(currency, "required,iso4217"); err != nil {
		return nil, invalid("currency", "Currency must be an ISO 4217 code.")
	}
	pref, err := m.Preferences(ctx, userID, defaultCurrency)
	if err != nil {
		return nil, err
	}
	if err := m.db.WithContext(ctx).Model(pref).Update("currency", currency).Error; err != nil {
		return nil, fmt.Errorf("update currency: %w", err)
	}
	return pref, nil
}
