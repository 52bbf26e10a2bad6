package clinical

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posbindu-risk-engine/internal/domain"
)

func TestStockExpiry(t *testing.T) {
	expiry := date(2024, 6, 10)
	tests := []struct {
		name     string
		asOf     time.Time
		expected domain.Label
		days     int
	}{
		{"day after expiry", date(2024, 6, 11), domain.StockKedaluwarsa, -1},
		{"on expiry day", date(2024, 6, 10), domain.StockSegeraKedaluwarsa, 0},
		{"thirty days before", date(2024, 5, 11), domain.StockSegeraKedaluwarsa, 30},
		{"thirty one days before", date(2024, 5, 10), domain.StockBaik, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StockExpiry("strip gula darah", expiry, tt.asOf, DefaultStockWarningDays)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.Status)
			assert.Equal(t, tt.days, got.DaysRemaining)
			assert.Equal(t, "strip gula darah", got.ItemName)
		})
	}

	_, err := StockExpiry("pil KB", expiry, expiry, -1)
	assert.True(t, errors.Is(err, domain.ErrInvalidMeasurement))
}

func TestUseStock(t *testing.T) {
	remaining, err := UseStock(10, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, remaining)

	remaining, err = UseStock(3, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	remaining, err = UseStock(2, 3)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Equal(t, 2, remaining)

	_, err = UseStock(2, -1)
	assert.True(t, errors.Is(err, domain.ErrInvalidMeasurement))
}
