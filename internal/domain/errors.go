package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds of the prediction pipeline. Every failure returned by the core
// matches exactly one of these with errors.Is.
var (
	ErrUnknownSeverity   = errors.New("unknown severity")
	ErrRangeViolation    = errors.New("range violation")
	ErrScorerUnavailable = errors.New("scorer unavailable")
	ErrSinkUnavailable   = errors.New("sink unavailable")
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeUnknownSeverity   = "UNKNOWN_SEVERITY"
	ErrCodeRangeViolation    = "RANGE_VIOLATION"
	ErrCodeScorerUnavailable = "SCORER_UNAVAILABLE"
	ErrCodeSinkUnavailable   = "SINK_UNAVAILABLE"
	ErrCodeRateLimit         = "RATE_LIMIT_EXCEEDED"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInternalServer    = "INTERNAL_SERVER_ERROR"
)

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

// SeverityError reports a categorical input outside the five defined levels.
type SeverityError struct {
	Field string `json:"field,omitempty"`
	Value string `json:"value"`
}

// Error implements the error interface
func (e *SeverityError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("unknown severity %q", e.Value)
	}
	return fmt.Sprintf("unknown severity %q for field '%s'", e.Value, e.Field)
}

// Unwrap ties the error to ErrUnknownSeverity.
func (e *SeverityError) Unwrap() error {
	return ErrUnknownSeverity
}

// RangeError reports a numeric input outside its documented bounds.
type RangeError struct {
	Field string  `json:"field"`
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Error implements the error interface
func (e *RangeError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %g outside [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}

// Unwrap ties the error to ErrRangeViolation.
func (e *RangeError) Unwrap() error {
	return ErrRangeViolation
}

// NewRangeError creates a new RangeError
func NewRangeError(field string, value, min, max float64) *RangeError {
	return &RangeError{Field: field, Value: value, Min: min, Max: max}
}

// CheckRange returns a RangeError when value falls outside [min, max].
func CheckRange(field string, value, min, max float64) error {
	if value < min || value > max || value != value {
		return NewRangeError(field, value, min, max)
	}
	return nil
}

// ScorerUnavailable wraps a scorer failure so it can never be mistaken for a
// low-risk verdict.
func ScorerUnavailable(cause error) error {
	if cause == nil {
		return ErrScorerUnavailable
	}
	return fmt.Errorf("%w: %w", ErrScorerUnavailable, cause)
}

// SinkUnavailable wraps a persistence failure.
func SinkUnavailable(cause error) error {
	if cause == nil {
		return ErrSinkUnavailable
	}
	return fmt.Errorf("%w: %w", ErrSinkUnavailable, cause)
}

// ErrorCode maps an error onto its API error code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownSeverity):
		return ErrCodeUnknownSeverity
	case errors.Is(err, ErrRangeViolation):
		return ErrCodeRangeViolation
	case errors.Is(err, ErrScorerUnavailable):
		return ErrCodeScorerUnavailable
	case errors.Is(err, ErrSinkUnavailable):
		return ErrCodeSinkUnavailable
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	default:
		return ErrCodeInternalServer
	}
}
