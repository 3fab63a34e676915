package usps

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials is returned when the client is constructed
// without a complete credential set.
var ErrMissingCredentials = errors.New("usps: client id, client secret and refresh token are required")

// TokenError indicates the credential exchange with the identity
// provider failed: a non-success status, or a response without an
// access token. It is the only error that aborts a batch; validation
// misses and transient provider failures are handled internally.
type TokenError struct {
	// StatusCode is the HTTP status of the failed exchange, or zero
	// when the exchange never completed (transport failure, bad payload).
	StatusCode int

	// Message describes the failure. May include the provider's own
	// error text.
	Message string

	// Err is the underlying error, if any.
	Err error
}

func (e *TokenError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("usps: token exchange failed (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("usps: token exchange failed: %s", e.Message)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// IsTokenError reports whether err is (or wraps) a TokenError.
func IsTokenError(err error) bool {
	var te *TokenError
	return errors.As(err, &te)
}
