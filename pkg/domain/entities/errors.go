package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the sentinel wrapped by every NotFoundError
	ErrNotFound = errors.New("not found")
	// ErrConcurrencyConflict is returned when a record lock cannot be acquired
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// Validation error codes
const (
	CodeReasonRequired        = "reason_required"
	CodeInvalidSubsidyAmount  = "invalid_subsidy_amount"
	CodeInvalidQuantity       = "invalid_quantity"
	CodeInvalidIdentity       = "invalid_identity"
	CodeInvalidRoundingConfig = "invalid_rounding_increment"
)

// NotFoundError reports a missing contract, fitting, doctrine or system
type NotFoundError struct {
	Kind string
	ID   int64
}

// NewNotFoundError creates a NotFoundError
func NewNotFoundError(kind string, id int64) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError reports input the caller has to correct
type ValidationError struct {
	Code    string
	Message string
}

// NewValidationError creates a ValidationError
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return "validation failed: " + e.Code
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Code, e.Message)
}

// IsValidation reports whether err is a ValidationError with the given code.
// An empty code matches any ValidationError.
func IsValidation(err error, code string) bool {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	return code == "" || ve.Code == code
}
