package identity

import (
	"errors"
	"fmt"
)

// Kind is the normalized outcome taxonomy of a failed validation.
type Kind string

const (
	// KindEmptyCredential means nothing was left after stripping prefix and whitespace.
	KindEmptyCredential Kind = "empty_credential"

	// KindTooShort means the submission failed the local length filter.
	KindTooShort Kind = "too_short"

	// KindTimeout means the remote call did not finish within its deadline.
	KindTimeout Kind = "timeout"

	// KindUnauthorized means the credential is expired or invalid.
	KindUnauthorized Kind = "unauthorized"

	// KindForbidden means the remote account is restricted.
	KindForbidden Kind = "forbidden"

	// KindRateLimited means the remote API is throttling us.
	KindRateLimited Kind = "rate_limited"

	// KindRemoteError covers 5xx and any status we do not recognise.
	KindRemoteError Kind = "remote_error"

	// KindMalformedResponse means a 200 without the required identity fields.
	KindMalformedResponse Kind = "malformed_response"

	// KindStoreUnavailable means persistence I/O failed.
	KindStoreUnavailable Kind = "store_unavailable"

	// KindThrottled means the submitter exceeded the local attempt limit.
	KindThrottled Kind = "throttled"
)

// Terminal reports whether the kind invalidates cached trust.
func (k Kind) Terminal() bool {
	switch k {
	case KindUnauthorized, KindForbidden, KindMalformedResponse:
		return true
	default:
		return false
	}
}

// Transient reports whether the kind only fails the current attempt.
func (k Kind) Transient() bool {
	switch k {
	case KindTimeout, KindRateLimited, KindRemoteError, KindStoreUnavailable, KindThrottled:
		return true
	default:
		return false
	}
}

// Error wraps a validation failure with its normalized kind.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("identity [%s]: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("identity [%s]: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates a normalized validation error.
func NewError(kind Kind, message string, underlying error) *Error {
	return &Error{Kind: kind, Message: message, Underlying: underlying}
}

// KindOf extracts the kind from err, defaulting to KindRemoteError for
// errors that did not come from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRemoteError
}

// IsTerminal reports whether err should evict a cached credential.
func IsTerminal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.Terminal()
	}
	return false
}
