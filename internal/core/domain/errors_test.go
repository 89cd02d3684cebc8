package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExchangeError_UnwrapsInvalidGrant(t *testing.T) {
	err := &ExchangeError{
		Op:         "refresh_token",
		StatusCode: 400,
		OAuthCode:  "invalid_grant",
		Err:        ErrInvalidGrant,
	}

	assert.True(t, errors.Is(err, ErrInvalidGrant))
	assert.False(t, errors.Is(err, ErrTransient))
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestExchangeError_UnwrapsTransient(t *testing.T) {
	err := &ExchangeError{
		Op:         "authorization_code",
		StatusCode: 503,
		Err:        ErrTransient,
	}

	assert.True(t, errors.Is(err, ErrTransient))
	assert.Contains(t, err.Error(), "503")
}

func TestStoreError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := &StoreError{Tenant: "ACME", Op: "save", Err: cause}

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "ACME")
}

func TestConfigError_Message(t *testing.T) {
	err := &ConfigError{Tenant: "ACME", Field: "token_url", Reason: "missing"}
	assert.Contains(t, err.Error(), "token_url")
	assert.Contains(t, err.Error(), "ACME")
}
