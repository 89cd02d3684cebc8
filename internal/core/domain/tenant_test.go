package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeCredentials() TenantCredentials {
	return TenantCredentials{
		Tenant:       "ACME",
		ClientID:     "client-123",
		ClientSecret: "secret-456",
		RedirectURI:  "http://127.0.0.1:8910/callback",
		AuthorizeURL: "https://provider.example/oauth/authorize",
		TokenURL:     "https://provider.example/oauth/token",
		Scope:        []string{"orders", "products"},
	}
}

func TestTenantCredentials_Validate_Complete(t *testing.T) {
	creds := completeCredentials()
	assert.NoError(t, creds.Validate())
}

func TestTenantCredentials_Validate_MissingFields(t *testing.T) {
	cases := []struct {
		field  string
		mutate func(*TenantCredentials)
	}{
		{"client_id", func(c *TenantCredentials) { c.ClientID = "" }},
		{"client_secret", func(c *TenantCredentials) { c.ClientSecret = "" }},
		{"redirect_uri", func(c *TenantCredentials) { c.RedirectURI = "" }},
		{"authorize_url", func(c *TenantCredentials) { c.AuthorizeURL = "" }},
		{"token_url", func(c *TenantCredentials) { c.TokenURL = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			creds := completeCredentials()
			tc.mutate(&creds)

			err := creds.Validate()
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tc.field, cfgErr.Field)
			assert.Equal(t, "ACME", cfgErr.Tenant)
		})
	}
}

func TestTenantCredentials_Validate_ScopeOptional(t *testing.T) {
	creds := completeCredentials()
	creds.Scope = nil
	assert.NoError(t, creds.Validate(), "scope may live in the provider app config")
}
