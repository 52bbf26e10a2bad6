package clinical

import (
	"fmt"
	"time"

	"github.com/posbindu-risk-engine/internal/domain"
)

// DefaultStockWarningDays is the window before expiry in which an item is
// reported as SegeraKedaluwarsa.
const DefaultStockWarningDays = 30

// StockExpiry classifies a consumable (lab strips, KB items) by expiry date
// relative to an explicit as-of date. Only calendar dates are compared.
func StockExpiry(itemName string, expiry, asOf time.Time, warningDays int) (domain.StockStatus, error) {
	if warningDays < 0 {
		return domain.StockStatus{}, domain.Invalid("warning_days", warningDays, "must not be negative")
	}
	days := daysBetween(asOf, expiry)

	status := domain.StockBaik
	switch {
	case days < 0:
		status = domain.StockKedaluwarsa
	case days <= warningDays:
		status = domain.StockSegeraKedaluwarsa
	}

	return domain.StockStatus{
		ItemName:      itemName,
		ExpiryDate:    expiry,
		AsOf:          asOf,
		DaysRemaining: days,
		Status:        status,
	}, nil
}

// UseStock takes used units from the remaining stock.
func UseStock(remaining, used int) (int, error) {
	if used < 0 {
		return remaining, domain.Invalid("used", used, "must not be negative")
	}
	if used > remaining {
		return remaining, fmt.Errorf("need %d, have %d: %w", used, remaining, domain.ErrInsufficientStock)
	}
	return remaining - used, nil
}
