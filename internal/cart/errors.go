package cart

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes cart errors.
type ErrorCode string

const (
	// ErrCodeInvalidQuantity indicates a negative quantity was requested.
	// Rejected before any optimistic change or network call.
	ErrCodeInvalidQuantity ErrorCode = "INVALID_QUANTITY"

	// ErrCodeRequestFailed indicates a non-success remote response, a transport
	// fault, or a request timeout.
	ErrCodeRequestFailed ErrorCode = "REQUEST_FAILED"

	// ErrCodeStaleResult indicates a response arrived for a superseded sequence.
	ErrCodeStaleResult ErrorCode = "STALE_RESULT"

	// ErrCodeMalformedNumeric indicates a price or quantity could not be parsed.
	ErrCodeMalformedNumeric ErrorCode = "MALFORMED_NUMERIC"
)

// Error is the single error type of the cart layer.
type Error struct {
	Code      ErrorCode
	ProductID ProductID
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.ProductID != "" {
		msg = fmt.Sprintf("%s (product=%s)", msg, e.ProductID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewInvalidQuantity creates an INVALID_QUANTITY error.
func NewInvalidQuantity(id ProductID, qty int) *Error {
	return &Error{
		Code:      ErrCodeInvalidQuantity,
		ProductID: id,
		Message:   fmt.Sprintf("quantity must not be negative, got %d", qty),
	}
}

// NewRequestFailed creates a REQUEST_FAILED error for the named operation.
func NewRequestFailed(id ProductID, op string, err error) *Error {
	return &Error{
		Code:      ErrCodeRequestFailed,
		ProductID: id,
		Message:   op + " request failed",
		Err:       err,
	}
}

// NewStaleResult creates a STALE_RESULT error.
func NewStaleResult(id ProductID, seq, latest int64) *Error {
	return &Error{
		Code:      ErrCodeStaleResult,
		ProductID: id,
		Message:   fmt.Sprintf("result for seq %d superseded by seq %d", seq, latest),
	}
}

// NewMalformedNumeric creates a MALFORMED_NUMERIC error for raw text.
func NewMalformedNumeric(id ProductID, raw string, err error) *Error {
	return &Error{
		Code:      ErrCodeMalformedNumeric,
		ProductID: id,
		Message:   fmt.Sprintf("cannot parse %q", raw),
		Err:       err,
	}
}

func hasCode(err error, code ErrorCode) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsInvalidQuantity reports whether err is an INVALID_QUANTITY error.
func IsInvalidQuantity(err error) bool {
	return hasCode(err, ErrCodeInvalidQuantity)
}

// IsRequestFailed reports whether err is a REQUEST_FAILED error.
func IsRequestFailed(err error) bool {
	return hasCode(err, ErrCodeRequestFailed)
}

// IsStale reports whether err is a STALE_RESULT error.
func IsStale(err error) bool {
	return hasCode(err, ErrCodeStaleResult)
}

// IsMalformedNumeric reports whether err is a MALFORMED_NUMERIC error.
func IsMalformedNumeric(err error) bool {
	return hasCode(err, ErrCodeMalformedNumeric)
}
