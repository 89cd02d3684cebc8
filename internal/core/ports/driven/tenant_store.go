package driven

import "github.com/datamat-io/tokenkeeper/internal/core/domain"

// TenantStore loads and manages static per-tenant OAuth configuration.
// The core only reads; add/remove is operator tooling.
type TenantStore interface {
	// Get returns the tenant's configuration, validated. Returns
	// domain.ErrNotFound for unknown tenants and *domain.ConfigError when a
	// required field is absent.
	Get(tenant string) (*domain.TenantCredentials, error)

	// List returns the identifiers of all configured tenants.
	List() ([]string, error)

	// Save writes the tenant's configuration.
	Save(creds domain.TenantCredentials) error

	// Delete removes the tenant's configuration.
	Delete(tenant string) error
}
