// Package sqlite implements the CredentialStore port on a shared SQLite
// database, for deployments where several workers use one database instead
// of a credential-file directory.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/datamat-io/tokenkeeper/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/datamat-io/tokenkeeper/internal/core/domain"
	"github.com/datamat-io/tokenkeeper/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.CredentialStore = (*Store)(nil)

// Store persists credentials in a SQLite database. Cross-process writes are
// serialized by SQLite itself (WAL mode with a busy timeout); the Lock
// method additionally serializes refreshes within the process.
type Store struct {
	db   *sql.DB
	path string

	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewStore opens (or creates) the credential database at dataDir. If dataDir
// is empty, defaults to ~/.tokenkeeper/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".tokenkeeper", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "credentials.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:    db,
		path:  dbPath,
		locks: make(map[string]chan struct{}),
	}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}
		contents, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(contents)); err != nil {
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// Load returns the tenant's record or domain.ErrNotFound. Rows that fail the
// record invariant read as absence, same as a corrupt file.
func (s *Store) Load(ctx context.Context, tenant string) (*domain.TokenRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, issued_at, expires_at, scope, revoked_at
		FROM credentials WHERE tenant = ?`, tenant)

	var (
		rec       domain.TokenRecord
		issuedAt  int64
		expiresAt int64
		scope     sql.NullString
		revokedAt sql.NullInt64
	)
	err := row.Scan(&rec.AccessToken, &rec.RefreshToken, &issuedAt, &expiresAt, &scope, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, &domain.StoreError{Tenant: tenant, Op: "load", Err: err}
	}

	rec.IssuedAt = time.Unix(issuedAt, 0).UTC()
	rec.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	if scope.Valid && scope.String != "" {
		if err := json.Unmarshal([]byte(scope.String), &rec.Scope); err != nil {
			return nil, domain.ErrNotFound
		}
	}
	if revokedAt.Valid {
		at := time.Unix(revokedAt.Int64, 0).UTC()
		rec.RevokedAt = &at
	}
	if !rec.Valid() {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// Save upserts the tenant's record.
func (s *Store) Save(ctx context.Context, tenant string, rec domain.TokenRecord) error {
	if !rec.Valid() {
		return &domain.StoreError{Tenant: tenant, Op: "save",
			Err: fmt.Errorf("record is incomplete or expires before it was issued")}
	}

	var scope any
	if len(rec.Scope) > 0 {
		data, err := json.Marshal(rec.Scope)
		if err != nil {
			return &domain.StoreError{Tenant: tenant, Op: "save", Err: err}
		}
		scope = string(data)
	}
	var revokedAt any
	if rec.RevokedAt != nil {
		revokedAt = rec.RevokedAt.Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (tenant, access_token, refresh_token, issued_at, expires_at, scope, revoked_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			issued_at = excluded.issued_at,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			revoked_at = excluded.revoked_at,
			updated_at = excluded.updated_at`,
		tenant, rec.AccessToken, rec.RefreshToken,
		rec.IssuedAt.Unix(), rec.ExpiresAt.Unix(), scope, revokedAt, time.Now().Unix())
	if err != nil {
		return &domain.StoreError{Tenant: tenant, Op: "save", Err: err}
	}
	return nil
}

// Revoke marks the tenant's record unusable.
func (s *Store) Revoke(ctx context.Context, tenant string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE credentials SET revoked_at = ?, updated_at = ? WHERE tenant = ?",
		at.Unix(), time.Now().Unix(), tenant)
	if err != nil {
		return &domain.StoreError{Tenant: tenant, Op: "revoke", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.StoreError{Tenant: tenant, Op: "revoke", Err: err}
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Lock serializes refreshes for a tenant within this process. Writes from
// other processes are already serialized by SQLite's own locking.
func (s *Store) Lock(ctx context.Context, tenant string) (func(), error) {
	s.mu.Lock()
	ch, ok := s.locks[tenant]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[tenant] = ch
	}
	s.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, &domain.StoreError{Tenant: tenant, Op: "lock", Err: ctx.Err()}
	}
}
