package auth

import (
	"errors"
	"fmt"
)

// FailureReason classifies why a login, registration or lookup failed.
type FailureReason string

const (
	ReasonInvalidCredentials  FailureReason = "invalid_credentials"
	ReasonDuplicateEmail      FailureReason = "duplicate_email"
	ReasonLookupFailed        FailureReason = "lookup_failed"
	ReasonProviderUnavailable FailureReason = "provider_unavailable"
	// ReasonSuperseded means the attempt finished after a later logout or sign-out
	// and its result was discarded.
	ReasonSuperseded FailureReason = "superseded"
)

// AuthError is a typed session failure surfaced to callers.
type AuthError struct {
	Reason FailureReason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return string(e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches another *AuthError by reason so callers can compare against sentinels.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return t.Err == nil && t.Reason == e.Reason
}

// Fail wraps err with a failure reason.
func Fail(reason FailureReason, err error) *AuthError {
	return &AuthError{Reason: reason, Err: err}
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidCredentials  = &AuthError{Reason: ReasonInvalidCredentials}
	ErrDuplicateEmail      = &AuthError{Reason: ReasonDuplicateEmail}
	ErrLookupFailed        = &AuthError{Reason: ReasonLookupFailed}
	ErrProviderUnavailable = &AuthError{Reason: ReasonProviderUnavailable}
	ErrSuperseded          = &AuthError{Reason: ReasonSuperseded}
)

// ReasonOf extracts the failure reason from err, or "" when err is not an AuthError.
func ReasonOf(err error) FailureReason {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}
