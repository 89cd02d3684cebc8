package domain

// TenantCredentials is the static OAuth2 configuration for one tenant.
// It is owned by configuration loading and read-only to the core.
type TenantCredentials struct {
	// Tenant is the tenant identifier (e.g. "LOJAJUNTOS").
	Tenant string `toml:"-"`
	// ClientID identifies the OAuth2 application at the provider.
	ClientID string `toml:"client_id"`
	// ClientSecret authenticates the application at the token endpoint.
	ClientSecret string `toml:"client_secret"`
	// RedirectURI is where the authorization server sends the one-time code.
	RedirectURI string `toml:"redirect_uri"`
	// AuthorizeURL is the browser-facing authorization endpoint.
	AuthorizeURL string `toml:"authorize_url"`
	// TokenURL is the endpoint accepting authorization_code and refresh_token
	// grants.
	TokenURL string `toml:"token_url"`
	// Scope is the set of scopes requested during bootstrap.
	Scope []string `toml:"scope,omitempty"`
	// CredentialsInBody sends client_id/client_secret as form fields instead
	// of an HTTP Basic Authorization header. Most providers, including the
	// accounting API this broker was built for, expect Basic auth.
	CredentialsInBody bool `toml:"credentials_in_body,omitempty"`
}

// Validate checks that every field required for token exchanges is present.
// Returns a *ConfigError naming the first missing field.
func (c *TenantCredentials) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"client_id", c.ClientID},
		{"client_secret", c.ClientSecret},
		{"redirect_uri", c.RedirectURI},
		{"authorize_url", c.AuthorizeURL},
		{"token_url", c.TokenURL},
	}
	for _, f := range required {
		if f.value == "" {
			return &ConfigError{Tenant: c.Tenant, Field: f.name, Reason: "missing"}
		}
	}
	return nil
}
