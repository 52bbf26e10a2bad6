package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAPIError(t *testing.T) {
	err := NewAPIError(ErrCodeInvalidMeasurement, "height must be positive", "height_cm=0", "req-123")

	assert.Equal(t, ErrCodeInvalidMeasurement, err.Code)
	assert.Equal(t, "req-123", err.RequestID)
	assert.WithinDuration(t, time.Now().UTC(), err.Timestamp, time.Minute)
	assert.Equal(t, "INVALID_MEASUREMENT: height must be positive", err.Error())
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := Invalid("height_cm", 0, "must be positive")

	assert.True(t, errors.Is(err, ErrInvalidMeasurement))
	assert.False(t, errors.Is(err, ErrIncompleteSnapshot))
	assert.Equal(t, "invalid measurement: field 'height_cm': must be positive", err.Error())

	wrapped := fmt.Errorf("compute BMI: %w", err)
	var verr *ValidationError
	assert.True(t, errors.As(wrapped, &verr))
	assert.Equal(t, "height_cm", verr.Field)

	plain := &ValidationError{Field: "x", Message: "bad"}
	assert.Equal(t, "validation error for field 'x': bad", plain.Error())
	assert.Nil(t, plain.Unwrap())
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		expected   string
		inputError bool
	}{
		{"nil", nil, "", false},
		{"missing field", Missing("blood_pressure"), ErrCodeIncompleteSnapshot, true},
		{"invalid", fmt.Errorf("wrap: %w", Invalid("spo2", -1, "negative")), ErrCodeInvalidMeasurement, true},
		{"analyte", fmt.Errorf("interpret: %w", ErrUnsupportedAnalyte), ErrCodeUnsupportedAnalyte, true},
		{"category input", ErrUnsupportedCategoryInput, ErrCodeUnsupportedCategoryInput, true},
		{"rule set", fmt.Errorf("table bmi: %w", ErrRuleSetExhausted), ErrCodeRuleSetExhausted, false},
		{"stock", ErrInsufficientStock, ErrCodeInsufficientStock, true},
		{"not found", fmt.Errorf("assessment a1: %w", ErrNotFound), ErrCodeNotFound, false},
		{"store down", fmt.Errorf("saving: %w", ErrStoreUnavailable), ErrCodeDatabaseError, false},
		{"api error", NewAPIError(ErrCodeRateLimit, "slow down", "", ""), ErrCodeRateLimit, false},
		{"unknown", errors.New("boom"), ErrCodeInternalServer, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ErrorCode(tt.err))
			assert.Equal(t, tt.inputError, IsInputError(tt.err))
		})
	}
}
