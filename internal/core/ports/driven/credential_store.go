package driven

import (
	"context"
	"time"

	"github.com/datamat-io/tokenkeeper/internal/core/domain"
)

// CredentialStore persists one TokenRecord per tenant and is the sole owner
// of the on-disk representation. Saves must be atomic from the perspective of
// any single reader: a crash mid-write never leaves a half-written record.
type CredentialStore interface {
	// Load returns the tenant's record. Missing, malformed or partial data
	// returns domain.ErrNotFound, never a parse error; corrupt data forces a
	// re-bootstrap instead of silently using a broken token.
	Load(ctx context.Context, tenant string) (*domain.TokenRecord, error)

	// Save replaces the tenant's record wholesale. Rejects records failing
	// domain.TokenRecord.Valid.
	Save(ctx context.Context, tenant string, rec domain.TokenRecord) error

	// Revoke marks the stored record unusable after a terminal auth failure.
	// Returns domain.ErrNotFound if no record exists.
	Revoke(ctx context.Context, tenant string, at time.Time) error

	// Lock acquires the per-tenant refresh lock shared with other processes
	// using the same store. The caller must invoke release exactly once after
	// the refresh-and-persist sequence completes. Blocks until the lock is
	// acquired or ctx is done.
	Lock(ctx context.Context, tenant string) (release func(), err error)
}
