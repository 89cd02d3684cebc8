package driving

import (
	"context"

	"github.com/datamat-io/tokenkeeper/internal/core/domain"
)

// TokenService is the public contract for anything that needs an
// authenticated API call. Callers must not cache the returned token beyond a
// single logical operation; a returned token has at least the safety buffer
// of validity left at the moment of return, not at the moment of later use.
type TokenService interface {
	// GetValidToken returns a bearer token for the tenant, refreshing first
	// if the stored token is inside the safety buffer. Returns
	// domain.ErrNeedsBootstrap when no usable credential exists.
	GetValidToken(ctx context.Context, tenant string) (string, error)

	// ForceRefresh refreshes regardless of remaining validity and returns the
	// new token. For consumers recovering from a 401 on an unexpired token.
	ForceRefresh(ctx context.Context, tenant string) (string, error)

	// Bootstrap trades the one-time authorization code for the tenant's first
	// TokenRecord and persists it. Driven by the human-triggered authorization
	// flow; the browser and callback orchestration live outside the core.
	Bootstrap(ctx context.Context, tenant, code string) error
}

// StatusReporter provides read-only operational views.
type StatusReporter interface {
	// Status reports credential presence and remaining TTL without touching
	// the network. A missing record is a report, not an error.
	Status(ctx context.Context, tenant string) (*domain.TenantStatus, error)

	// Health composes Status with a live GetValidToken round trip, and
	// classifies authorization-server failures as degraded rather than
	// missing-credential.
	Health(ctx context.Context, tenant string) (*domain.HealthReport, error)
}
