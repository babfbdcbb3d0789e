// Package apperr defines the error kinds returned by every FixPredict operation.
package apperr

import (
	"errors"
	"fmt"
)

// Error is one kind of failure. Codes match the on-chain contract the platform
// replaced so existing tooling keeps reading the same numbers.
type Error struct {
	Code uint32
	Kind string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (u%d)", e.Kind, e.Code)
}

var (
	ErrPrivilegedOnly    = &Error{Code: 100, Kind: "privileged-only"}
	ErrNotFound          = &Error{Code: 101, Kind: "not-found"}
	ErrUnauthorized      = &Error{Code: 102, Kind: "unauthorized"}
	ErrInvalidInput      = &Error{Code: 103, Kind: "invalid-input"}
	ErrInsufficientFunds = &Error{Code: 104, Kind: "insufficient-funds"}
	ErrAlreadyExists     = &Error{Code: 105, Kind: "already-exists"}
	ErrEmergencyMode     = &Error{Code: 106, Kind: "emergency-mode"}
	ErrOverflow          = &Error{Code: 107, Kind: "overflow"}
	ErrTooEarly          = &Error{Code: 108, Kind: "too-early"}
	ErrInvalidStake      = &Error{Code: 109, Kind: "invalid-stake"}
	ErrContractPaused    = &Error{Code: 110, Kind: "contract-paused"}
	ErrRateLimitExceeded = &Error{Code: 111, Kind: "rate-limit-exceeded"}
)

// CodeOf returns the code of the first *Error in err's chain, or 0.
func CodeOf(err error) uint32 {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}
