// Package errors provides common domain error types for the scrumlink agent.
//
// This package defines sentinel errors for domain conditions like "session
// not found" or "invalid state" that are shared across packages. Using typed
// errors enables consistent handling with errors.Is() checks.
package errors

import "errors"

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidState indicates the operation is not valid for the
	// session's current status.
	ErrInvalidState = errors.New("invalid state")

	// ErrQuotaExceeded indicates the per-session question quota is spent.
	// It marks a suppressed action, not a failure.
	ErrQuotaExceeded = errors.New("question quota exceeded")

	// ErrSummaryUnavailable indicates the intelligence service could not
	// produce a summary. Fatal to finalize, unlike cleaning failures.
	ErrSummaryUnavailable = errors.New("summary unavailable")

	// ErrMalformedResponse indicates an upstream free-text response did
	// not match the expected shape.
	ErrMalformedResponse = errors.New("malformed upstream response")

	// ErrValidation indicates invalid input (e.g. a bad meeting URL).
	ErrValidation = errors.New("validation error")
)

// IsSessionNotFound reports whether any error in err's chain is ErrSessionNotFound.
func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsQuotaExceeded reports whether any error in err's chain is ErrQuotaExceeded.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// IsSummaryUnavailable reports whether any error in err's chain is ErrSummaryUnavailable.
func IsSummaryUnavailable(err error) bool {
	return errors.Is(err, ErrSummaryUnavailable)
}

// IsMalformedResponse reports whether any error in err's chain is ErrMalformedResponse.
func IsMalformedResponse(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
