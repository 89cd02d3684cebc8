package driven

import (
	"context"

	"github.com/datamat-io/tokenkeeper/internal/core/domain"
)

// TokenExchanger performs HTTP calls against a tenant's token endpoint.
// It has no persistence side effects; saving records is the orchestrator's
// job, which keeps implementations testable with a fake transport.
//
// Both operations retry transient failures (timeouts, 5xx, 429) a bounded
// number of times before surfacing domain.ErrTransient. Rejections by the
// authorization server surface domain.ErrInvalidGrant and are never retried.
type TokenExchanger interface {
	// ExchangeCode trades a one-time authorization code for the first
	// TokenRecord of a tenant.
	ExchangeCode(ctx context.Context, creds domain.TenantCredentials, code string) (*domain.TokenRecord, error)

	// Refresh exchanges a refresh token for a new TokenRecord. An
	// invalid_grant answer means the refresh token itself is revoked or
	// expired; the credential is dead and needs a new bootstrap.
	Refresh(ctx context.Context, creds domain.TenantCredentials, refreshToken string) (*domain.TokenRecord, error)
}
