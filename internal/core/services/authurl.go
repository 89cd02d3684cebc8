package services

import (
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/datamat-io/tokenkeeper/internal/core/domain"
)

// NewState returns a random state parameter for CSRF protection of the
// bootstrap authorization flow.
func NewState() string {
	return uuid.NewString()
}

// BuildAuthorizeURL constructs the browser-facing authorization URL for a
// tenant's one-time bootstrap.
func BuildAuthorizeURL(creds domain.TenantCredentials, state string) string {
	cfg := oauth2.Config{
		ClientID:    creds.ClientID,
		RedirectURL: creds.RedirectURI,
		Scopes:      creds.Scope,
		Endpoint: oauth2.Endpoint{
			AuthURL:  creds.AuthorizeURL,
			TokenURL: creds.TokenURL,
		},
	}
	return cfg.AuthCodeURL(state)
}
