package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/posbindu-risk-engine/pkg/threshold"
)

// Sentinel errors. Evaluators wrap these so callers can use errors.Is.
var (
	// ErrInvalidMeasurement is returned for values outside their physical range.
	ErrInvalidMeasurement = errors.New("invalid measurement")
	// ErrIncompleteSnapshot is returned when a required field is absent.
	ErrIncompleteSnapshot = errors.New("incomplete snapshot")
	// ErrUnsupportedAnalyte is returned for lab tags without a table.
	ErrUnsupportedAnalyte = errors.New("unsupported analyte")
	// ErrUnsupportedCategoryInput is returned for categorical inputs the engine does not define.
	ErrUnsupportedCategoryInput = errors.New("unsupported category input")
	// ErrRuleSetExhausted means a rule table has no catch-all. It is a bug, not bad input.
	ErrRuleSetExhausted = threshold.ErrRuleSetExhausted

	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStoreUnavailable  = errors.New("assessment store unavailable")
)

// Error codes for API and tool responses
const (
	ErrCodeInvalidMeasurement       = "INVALID_MEASUREMENT"
	ErrCodeIncompleteSnapshot       = "INCOMPLETE_SNAPSHOT"
	ErrCodeUnsupportedAnalyte       = "UNSUPPORTED_ANALYTE"
	ErrCodeUnsupportedCategoryInput = "UNSUPPORTED_CATEGORY_INPUT"
	ErrCodeRuleSetExhausted         = "RULE_SET_EXHAUSTED"
	ErrCodeInsufficientStock        = "INSUFFICIENT_STOCK"
	ErrCodeNotFound                 = "NOT_FOUND"
	ErrCodeInvalidInput             = "INVALID_INPUT"
	ErrCodeDatabaseError            = "DATABASE_ERROR"
	ErrCodeRateLimit                = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalServer           = "INTERNAL_SERVER_ERROR"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError identifies the offending field of a rejected input and
// wraps the sentinel describing the failure kind.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: field '%s': %s", e.Err, e.Field, e.Message)
	}
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Unwrap returns the wrapped sentinel
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}, kind error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
		Err:     kind,
	}
}

// Missing reports an absent required field.
func Missing(field string) *ValidationError {
	return NewValidationError(field, "required field is absent", nil, ErrIncompleteSnapshot)
}

// Invalid reports an out-of-range value.
func Invalid(field string, value interface{}, message string) *ValidationError {
	return NewValidationError(field, message, value, ErrInvalidMeasurement)
}

// ErrorCode maps an error to its API error code.
func ErrorCode(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.Is(err, ErrInvalidMeasurement):
		return ErrCodeInvalidMeasurement
	case errors.Is(err, ErrIncompleteSnapshot):
		return ErrCodeIncompleteSnapshot
	case errors.Is(err, ErrUnsupportedAnalyte):
		return ErrCodeUnsupportedAnalyte
	case errors.Is(err, ErrUnsupportedCategoryInput):
		return ErrCodeUnsupportedCategoryInput
	case errors.Is(err, ErrRuleSetExhausted):
		return ErrCodeRuleSetExhausted
	case errors.Is(err, ErrInsufficientStock):
		return ErrCodeInsufficientStock
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return ErrCodeDatabaseError
	default:
		return ErrCodeInternalServer
	}
}

// IsInputError reports whether err was caused by caller input rather than an
// engine or infrastructure fault.
func IsInputError(err error) bool {
	switch ErrorCode(err) {
	case ErrCodeInvalidMeasurement, ErrCodeIncompleteSnapshot, ErrCodeUnsupportedAnalyte,
		ErrCodeUnsupportedCategoryInput, ErrCodeInsufficientStock, ErrCodeInvalidInput:
		return true
	}
	return false
}
