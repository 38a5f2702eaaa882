package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateTransaction means the bKash transaction id was already claimed.
	ErrDuplicateTransaction = errors.New("this transaction ID has already been submitted")
	// ErrInsufficientBalance is matched by every *InsufficientBalanceError.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrNotFound means the referenced payment request does not exist.
	ErrNotFound = errors.New("payment request not found")
	// ErrRecordNotFound means the user has no balance record.
	ErrRecordNotFound = errors.New("balance record not found")
	// ErrAlreadyProcessed means approve or reject hit a settled request.
	ErrAlreadyProcessed = errors.New("payment request has already been processed")
	// ErrUnauthorized means no caller identity was presented.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden means the caller may not perform the action.
	ErrForbidden = errors.New("admin access required")
)

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InsufficientBalanceError carries the shortfall of a rejected purchase.
type InsufficientBalanceError struct {
	Available decimal.Decimal
	Required  decimal.Decimal
}

// Shortfall is how much more the user needs.
func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Available)
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s, required %s, short by %s",
		e.Available.StringFixed(2), e.Required.StringFixed(2), e.Shortfall().StringFixed(2))
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// ExternalServiceError wraps a failed call to an outside collaborator.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
