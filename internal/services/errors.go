package services

import (
	"errors"
	"fmt"
)

// ErrorCode identifies an expected business outcome. Every core operation
// returns one of these instead of throwing; handlers translate them to HTTP
// statuses and the message is safe to show to users as-is.
type ErrorCode string

const (
	CodeValidationFailed      ErrorCode = "VALIDATION_FAILED"
	CodeTaskLocked            ErrorCode = "TASK_LOCKED"
	CodeFundingAlreadyExists  ErrorCode = "FUNDING_ALREADY_EXISTS"
	CodeSettlementNotRequired ErrorCode = "SETTLEMENT_NOT_REQUIRED"
	CodeReceiptTotalMismatch  ErrorCode = "RECEIPT_TOTAL_MISMATCH"
	CodeNotFound              ErrorCode = "NOT_FOUND"
	CodePersistenceFailure    ErrorCode = "PERSISTENCE_FAILURE"
)

// Error is a typed business error. Field is set for validation failures.
type Error struct {
	Code    ErrorCode `json:"code"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// AsError extracts a typed service error, if err carries one
func AsError(err error) (*Error, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// ErrValidation reports malformed input caught before any write
func ErrValidation(field, message string) *Error {
	return &Error{Code: CodeValidationFailed, Field: field, Message: message}
}

// ErrTaskLocked reports a mutation attempted on a task with a done settlement
func ErrTaskLocked() *Error {
	return &Error{Code: CodeTaskLocked, Message: "task is locked by a completed settlement"}
}

// ErrFundingAlreadyExists reports duplicate funding creation
func ErrFundingAlreadyExists() *Error {
	return &Error{Code: CodeFundingAlreadyExists, Message: "task already has a funding record"}
}

// ErrSettlementNotRequired reports marking a settlement done with nothing due
func ErrSettlementNotRequired() *Error {
	return &Error{Code: CodeSettlementNotRequired, Message: "no settlement amount is due"}
}

// ErrReceiptTotalMismatch reports line items not summing to the declared total
func ErrReceiptTotalMismatch() *Error {
	return &Error{Code: CodeReceiptTotalMismatch, Message: "line items do not add up to the receipt total"}
}

// ErrNotFound reports a missing record; entity names the record type
func ErrNotFound(entity string) *Error {
	return &Error{Code: CodeNotFound, Message: entity + " not found"}
}

// ErrPersistence wraps a storage error without leaking its internals into
// the user-visible message
func ErrPersistence(err error) *Error {
	return &Error{Code: CodePersistenceFailure, Message: "a storage error occurred", cause: err}
}
