// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes following domain-driven design
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Invoice numbering
	CodeInvalidInvoiceNumberFormat = "INVALID_INVOICE_NUMBER_FORMAT"
	CodeDuplicateInvoiceNumber     = "DUPLICATE_INVOICE_NUMBER"
	CodeNonSequentialInvoiceNumber = "NON_SEQUENTIAL_INVOICE_NUMBER"
	CodeSequenceValidation         = "SEQUENCE_VALIDATION_ERROR"

	// Business rule violations (422)
	CodeBusinessRule           = "BUSINESS_RULE_VIOLATION"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Authentication errors (401)
	CodeUnauthorized = "UNAUTHORIZED"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict = "CONFLICT"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (expected sequence, example format, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// --- Invoice numbering ---

// NewInvalidInvoiceNumberFormat is returned when a client-supplied number does not
// match the grammar of the requested numbering format.
func NewInvalidInvoiceNumberFormat(number, format, example string) *AppError {
	return &AppError{
		Code:       CodeInvalidInvoiceNumberFormat,
		Message:    fmt.Sprintf("Invoice number does not match the %s format", format),
		HTTPStatus: http.StatusBadRequest,
		Details: map[string]any{
			"invoiceNumber":  number,
			"format":         format,
			"expectedFormat": example,
		},
	}
}

// NewDuplicateInvoiceNumber is returned when the user already owns an invoice with this number.
func NewDuplicateInvoiceNumber(number string) *AppError {
	return &AppError{
		Code:       CodeDuplicateInvoiceNumber,
		Message:    "Invoice number already used",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"invoiceNumber": number,
			"suggestion":    "omit invoiceNumber to generate one automatically",
		},
	}
}

// NewNonSequentialInvoiceNumber is returned when a french-format number would leave a gap.
func NewNonSequentialInvoiceNumber(number string, expected, got int64, suggested string) *AppError {
	return &AppError{
		Code:       CodeNonSequentialInvoiceNumber,
		Message:    "Invoice number breaks the sequence",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"invoiceNumber":    number,
			"expectedSequence": expected,
			"currentSequence":  got,
			"suggestedNumber":  suggested,
		},
	}
}

// NewNumberingFailure wraps a storage failure hit while validating a number.
// code is CodeValidation or CodeSequenceValidation.
func NewNumberingFailure(code string, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    "Invoice number could not be validated",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsConcurrentModification checks if error is CodeConcurrentModification
func IsConcurrentModification(err error) bool {
	return HasCode(err, CodeConcurrentModification)
}
