package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound         = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists    = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation       = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation = new(ErrCodeInvalidOperation, "invalid operation")
	ErrDatabase         = new(ErrCodeDatabase, "database error")
	ErrSystem           = new(ErrCodeSystemError, "system error")

	// Billing sentinels: skips are expected outcomes, the rest are business errors
	ErrNotDue         = new(ErrCodeNotDue, "subscription is not due for billing")
	ErrIneligible     = new(ErrCodeIneligible, "subscription is not eligible for billing")
	ErrZeroAmount     = new(ErrCodeZeroAmount, "invoice amount is zero or negative")
	ErrNoBillingData  = new(ErrCodeNoBillingData, "subscription has no usable billing data")
	ErrRuleDefinition = new(ErrCodeRuleDefinition, "price rule definition is invalid")
	ErrAmbiguousRule  = new(ErrCodeAmbiguousRule, "ambiguous discount configuration")
)

const (
	ErrCodeSystemError      = "system_error"
	ErrCodeNotFound         = "not_found"
	ErrCodeAlreadyExists    = "already_exists"
	ErrCodeValidation       = "validation_error"
	ErrCodeInvalidOperation = "invalid_operation"
	ErrCodeDatabase         = "database_error"

	ErrCodeNotDue         = "not_due"
	ErrCodeIneligible     = "ineligible"
	ErrCodeZeroAmount     = "zero_amount"
	ErrCodeNoBillingData  = "no_billing_data"
	ErrCodeRuleDefinition = "rule_definition_error"
	ErrCodeAmbiguousRule  = "ambiguous_rule"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// new creates a new InternalError
func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err error, target error) bool {
	return errors.Is(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsDatabase checks if an error is a database error
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsNotDue checks if an error is a not-due skip condition
func IsNotDue(err error) bool {
	return errors.Is(err, ErrNotDue)
}

// IsIneligible checks if an error is an eligibility skip condition
func IsIneligible(err error) bool {
	return errors.Is(err, ErrIneligible)
}

// IsZeroAmount checks if an error is the zero/negative invoice guard
func IsZeroAmount(err error) bool {
	return errors.Is(err, ErrZeroAmount)
}

// IsNoBillingData checks if an error is a missing billing data error
func IsNoBillingData(err error) bool {
	return errors.Is(err, ErrNoBillingData)
}

// IsRuleDefinition checks if an error is a broken price rule definition
func IsRuleDefinition(err error) bool {
	return errors.Is(err, ErrRuleDefinition)
}
