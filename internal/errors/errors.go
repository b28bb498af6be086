package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable failure category. The numeric value
// doubles as the process exit code for CLI runs.
type Code int

const (
	CodeSuccess  Code = 0
	CodeInternal Code = 1
	CodeUsage    Code = 2

	// Execution outcomes.
	CodeUserDeclined      Code = 10
	CodeInsufficientFunds Code = 11
	CodeRouteUnavailable  Code = 12
	CodeTransient         Code = 13
	CodeOnChainRevert     Code = 14
	CodeTimeoutUnknown    Code = 15

	// Provider access.
	CodeAuth        Code = 20
	CodeRateLimited Code = 21
	CodeUnsupported Code = 22
)

// Category returns the short machine-readable name surfaced alongside
// human-readable messages in executor state updates.
func (c Code) Category() string {
	switch c {
	case CodeSuccess:
		return "ok"
	case CodeUsage:
		return "usage"
	case CodeUserDeclined:
		return "user-declined"
	case CodeInsufficientFunds:
		return "insufficient-funds"
	case CodeRouteUnavailable:
		return "route-unavailable"
	case CodeTransient:
		return "network-transient"
	case CodeOnChainRevert:
		return "on-chain-revert"
	case CodeTimeoutUnknown:
		return "timeout-unknown"
	case CodeAuth:
		return "auth"
	case CodeRateLimited:
		return "rate-limited"
	case CodeUnsupported:
		return "unsupported"
	default:
		return "internal"
	}
}

// Error is a typed engine error carrying a stable code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// untyped errors and CodeSuccess for nil.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	if typed, ok := As(err); ok {
		return typed.Code
	}
	return CodeInternal
}

// IsRetryable reports whether a fresh attempt could plausibly succeed.
// User declines and on-chain reverts are final; everything transient,
// rate-limited, or route-related can be retried by the caller.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeTransient, CodeRateLimited, CodeRouteUnavailable, CodeTimeoutUnknown:
		return true
	}
	return false
}

func ExitCode(err error) int {
	return int(CodeOf(err))
}
