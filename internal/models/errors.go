// ABOUTME: Typed error taxonomy for the caller-facing contract
// ABOUTME: Codes distinguish unauthorized, insufficient-credit, bad-conversation, and internal failures
package models

import "fmt"

// ErrorCode classifies caller-facing failures
type ErrorCode string

const (
	ErrCodeUnauthorized       ErrorCode = "unauthorized"
	ErrCodeInsufficientCredit ErrorCode = "insufficient_credit"
	ErrCodeBadConversation    ErrorCode = "bad_conversation"
	ErrCodeInternal           ErrorCode = "internal"
)

// TurnError is a typed failure surfaced to the caller
type TurnError struct {
	Code ErrorCode
	Err  error
}

// Error implements the error interface
func (e *TurnError) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

// Unwrap exposes the wrapped cause
func (e *TurnError) Unwrap() error {
	return e.Err
}

// NewTurnError builds a typed error with a wrapped cause
func NewTurnError(code ErrorCode, err error) *TurnError {
	return &TurnError{Code: code, Err: err}
}
