package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the broker. Callers classify failures with errors.Is
// to decide between aborting a run and failing a single call.
var (
	// ErrNotFound indicates no credential record exists for the tenant.
	ErrNotFound = errors.New("credential not found")

	// ErrInvalidInput indicates a malformed tenant identifier or argument.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidGrant indicates the authorization server rejected the code or
	// refresh token. Terminal for that credential; never retried.
	ErrInvalidGrant = errors.New("invalid grant")

	// ErrNeedsBootstrap indicates no usable credential exists (absent or
	// revoked) and a human must run the one-time authorization flow again.
	ErrNeedsBootstrap = errors.New("bootstrap required")

	// ErrTransient indicates a network failure or server-side error that may
	// succeed on a later attempt. Surfaced only after bounded retries.
	ErrTransient = errors.New("transient network failure")
)

// ConfigError reports missing or invalid tenant configuration. Fatal for the
// run; retrying cannot fix it.
type ConfigError struct {
	Tenant string
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("tenant %s: configuration error: %s", e.Tenant, e.Reason)
	}
	return fmt.Sprintf("tenant %s: configuration field %s: %s", e.Tenant, e.Field, e.Reason)
}

// StoreError reports an I/O failure while reading or writing a credential
// record. Never swallowed: an unwritten refreshed token would make the next
// run repeat the same refresh.
type StoreError struct {
	Tenant string
	Op     string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("credential store: %s %s: %v", e.Op, e.Tenant, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ExchangeError reports a failed call to the token endpoint. Err carries the
// classification (ErrInvalidGrant or ErrTransient) where one applies, so
// errors.Is works through it.
type ExchangeError struct {
	// Op is the grant type attempted: "authorization_code" or "refresh_token".
	Op string
	// StatusCode is the HTTP status of the last response, 0 for transport
	// failures.
	StatusCode int
	// OAuthCode is the error field of the server's JSON error body, if any.
	OAuthCode string
	Err       error
}

func (e *ExchangeError) Error() string {
	if e.OAuthCode != "" {
		return fmt.Sprintf("token %s exchange: %s (status %d): %v", e.Op, e.OAuthCode, e.StatusCode, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("token %s exchange: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("token %s exchange: %v", e.Op, e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }
