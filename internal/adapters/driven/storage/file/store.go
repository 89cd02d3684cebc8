// Package file implements the CredentialStore port on top of one JSON file
// per tenant, guarded by an advisory flock so concurrent processes sharing
// the directory serialize their refreshes.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gofrs/flock"

	"github.com/datamat-io/tokenkeeper/internal/core/domain"
	"github.com/datamat-io/tokenkeeper/internal/core/ports/driven"
	"github.com/datamat-io/tokenkeeper/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.CredentialStore = (*Store)(nil)

// lockRetryDelay is how often a blocked process re-attempts the flock.
const lockRetryDelay = 50 * time.Millisecond

// tenantNamePattern keeps tenant identifiers usable as file names.
var tenantNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Store keeps one credential file per tenant under a directory readable only
// by the owning user.
type Store struct {
	dir string
}

// NewStore creates a file store rooted at dir. If dir is empty, defaults to
// ~/.tokenkeeper/credentials.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".tokenkeeper", "credentials")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory holding the credential files.
func (s *Store) Dir() string { return s.dir }

func (s *Store) recordPath(tenant string) string {
	return filepath.Join(s.dir, tenant+".json")
}

func (s *Store) lockPath(tenant string) string {
	return filepath.Join(s.dir, tenant+".lock")
}

func checkTenant(tenant string) error {
	if !tenantNamePattern.MatchString(tenant) {
		return fmt.Errorf("%w: tenant name %q", domain.ErrInvalidInput, tenant)
	}
	return nil
}

// Load reads the tenant's record. Missing files and malformed or partial
// records all come back as domain.ErrNotFound; corrupt data is logged and
// treated as absence so the operator re-bootstraps instead of the broker
// using a broken token.
func (s *Store) Load(_ context.Context, tenant string) (*domain.TokenRecord, error) {
	if err := checkTenant(tenant); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.recordPath(tenant))
	if os.IsNotExist(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, &domain.StoreError{Tenant: tenant, Op: "load", Err: err}
	}

	var rec domain.TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		logger.Warn("credential file for %s is malformed, treating as absent: %v", tenant, err)
		return nil, domain.ErrNotFound
	}
	if !rec.Valid() {
		logger.Warn("credential file for %s is incomplete, treating as absent", tenant)
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// Save writes the record atomically: marshal to a temp file in the same
// directory, fsync, then rename into place.
func (s *Store) Save(_ context.Context, tenant string, rec domain.TokenRecord) error {
	if err := checkTenant(tenant); err != nil {
		return err
	}
	if !rec.Valid() {
		return &domain.StoreError{Tenant: tenant, Op: "save",
			Err: fmt.Errorf("record is incomplete or expires before it was issued")}
	}
	return s.write(tenant, rec)
}

// Revoke marks the stored record unusable, keeping it on disk so status can
// report revocation distinctly from absence.
func (s *Store) Revoke(ctx context.Context, tenant string, at time.Time) error {
	rec, err := s.Load(ctx, tenant)
	if err != nil {
		return err
	}
	rec.RevokedAt = &at
	return s.write(tenant, *rec)
}

func (s *Store) write(tenant string, rec domain.TokenRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return &domain.StoreError{Tenant: tenant, Op: "save", Err: err}
	}

	tmp, err := os.CreateTemp(s.dir, tenant+".tmp-*")
	if err != nil {
		return &domain.StoreError{Tenant: tenant, Op: "save", Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &domain.StoreError{Tenant: tenant, Op: "save", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &domain.StoreError{Tenant: tenant, Op: "save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &domain.StoreError{Tenant: tenant, Op: "save", Err: err}
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return &domain.StoreError{Tenant: tenant, Op: "save", Err: err}
	}
	if err := os.Rename(tmpName, s.recordPath(tenant)); err != nil {
		return &domain.StoreError{Tenant: tenant, Op: "save", Err: err}
	}
	return nil
}

// Lock takes the tenant's advisory file lock, blocking until acquired or ctx
// expires. Two near-simultaneous refreshes for the same refresh token can
// invalidate the first token mid-use at some authorization servers, so the
// whole refresh-and-persist sequence runs under this lock.
func (s *Store) Lock(ctx context.Context, tenant string) (func(), error) {
	if err := checkTenant(tenant); err != nil {
		return nil, err
	}

	fl := flock.New(s.lockPath(tenant))
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, &domain.StoreError{Tenant: tenant, Op: "lock", Err: err}
	}
	if !ok {
		return nil, &domain.StoreError{Tenant: tenant, Op: "lock", Err: ctx.Err()}
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			logger.Warn("releasing refresh lock for %s: %v", tenant, err)
		}
	}, nil
}
