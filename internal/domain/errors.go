package domain

import (
	"errors"
	"fmt"
	"time"
)

// ReportError is the error shape returned across the API and MCP boundaries.
type ReportError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	cause     error
}

// Error implements the error interface
func (e *ReportError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *ReportError) Unwrap() error {
	return e.cause
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrValidation     = "VALIDATION_ERROR"
	ErrStore          = "STORE_ERROR"
	ErrCompletion     = "COMPLETION_ERROR"
	ErrNotFoundCode   = "NOT_FOUND"
	ErrRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrCircuitOpen    = "CIRCUIT_OPEN"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
)

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrEmptyFindings rejects generation requests without dictated findings.
	ErrEmptyFindings = errors.New("findings must not be empty")
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewReportError creates a new ReportError with timestamp
func NewReportError(code, message, details, requestID string) *ReportError {
	return &ReportError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// WrapReportError attaches a code to cause, keeping it reachable via errors.Is.
func WrapReportError(code, message string, cause error) *ReportError {
	e := NewReportError(code, message, "", "")
	if cause != nil {
		e.Details = cause.Error()
		e.cause = cause
	}
	return e
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// ErrorCode extracts the code carried by err, defaulting to INTERNAL_SERVER_ERROR.
func ErrorCode(err error) string {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Code
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ErrValidation
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrNotFoundCode
	case errors.Is(err, ErrEmptyFindings):
		return ErrValidation
	}
	return ErrInternalServer
}
