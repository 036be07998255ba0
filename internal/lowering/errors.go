package lowering

import (
	"errors"
	"fmt"
)

// InternalError represents a defect detected during lowering.
//
// Internal errors are never caused by user input; user-facing validation
// happens in the front end. They signal either malformed front-end output
// or a bug in a lowering pass, and must never be silently swallowed or
// partially applied.
type InternalError struct {
	// Code identifies the fault category.
	Code InternalErrorCode

	// Pass names the lowering pass that detected the fault.
	Pass string

	// Message is a human-readable description.
	Message string

	// BlockIndex is the offending block's position in the input
	// sequence, or -1 when the fault is not tied to a single block.
	BlockIndex int
}

// InternalErrorCode categorizes internal faults.
type InternalErrorCode string

const (
	// ErrCodeMalformedIR indicates a pass's structural assumption about
	// the input sequence was violated.
	ErrCodeMalformedIR InternalErrorCode = "MALFORMED_IR"

	// ErrCodeInvariantViolation indicates a pass's own output failed its
	// stated invariant.
	ErrCodeInvariantViolation InternalErrorCode = "INVARIANT_VIOLATION"
)

// Error implements the error interface.
func (e *InternalError) Error() string {
	if e.BlockIndex >= 0 {
		return fmt.Sprintf("%s: %s: %s (block index %d)", e.Code, e.Pass, e.Message, e.BlockIndex)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Pass, e.Message)
}

// IsMalformedIR returns true if the error is a malformed-IR fault.
// Uses errors.As to handle wrapped errors.
func IsMalformedIR(err error) bool {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.Code == ErrCodeMalformedIR
	}
	return false
}

// IsInvariantViolation returns true if the error is an
// invariant-violation fault. Uses errors.As to handle wrapped errors.
func IsInvariantViolation(err error) bool {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.Code == ErrCodeInvariantViolation
	}
	return false
}

// newMalformedIRError creates a fault for a violated input assumption.
func newMalformedIRError(pass string, blockIndex int, format string, args ...any) *InternalError {
	return &InternalError{
		Code:       ErrCodeMalformedIR,
		Pass:       pass,
		Message:    fmt.Sprintf(format, args...),
		BlockIndex: blockIndex,
	}
}

// newInvariantError creates a fault for a failed output invariant.
func newInvariantError(pass string, format string, args ...any) *InternalError {
	return &InternalError{
		Code:       ErrCodeInvariantViolation,
		Pass:       pass,
		Message:    fmt.Sprintf(format, args...),
		BlockIndex: -1,
	}
}
