package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datamat-io/tokenkeeper/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func testRecord() domain.TokenRecord {
	issued := time.Now().UTC().Truncate(time.Second)
	return domain.TokenRecord{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-xyz",
		IssuedAt:     issued,
		ExpiresAt:    issued.Add(6 * time.Hour),
		Scope:        []string{"orders", "products"},
	}
}

func TestStore_SaveLoad_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	rec := testRecord()

	require.NoError(t, store.Save(ctx, "ACME", rec))

	got, err := store.Load(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, rec.AccessToken, got.AccessToken)
	assert.Equal(t, rec.RefreshToken, got.RefreshToken)
	assert.True(t, rec.IssuedAt.Equal(got.IssuedAt))
	assert.True(t, rec.ExpiresAt.Equal(got.ExpiresAt))
	assert.Equal(t, rec.Scope, got.Scope)
	assert.Nil(t, got.RevokedAt)
}

func TestStore_Load_Missing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load(context.Background(), "NOBODY")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_Load_MalformedFile(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.Dir(), "ACME.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := store.Load(context.Background(), "ACME")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "malformed data reads as absence")
}

func TestStore_Load_PartialRecord(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.Dir(), "ACME.json")
	// Access token without refresh token: corrupt, must be discarded.
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"access_token":"at","issued_at":"2026-01-01T00:00:00Z","expires_at":"2026-01-01T06:00:00Z"}`), 0600))

	_, err := store.Load(context.Background(), "ACME")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_Save_RejectsInvalidRecord(t *testing.T) {
	store := newTestStore(t)
	rec := testRecord()
	rec.ExpiresAt = rec.IssuedAt

	err := store.Save(context.Background(), "ACME", rec)
	require.Error(t, err)

	var storeErr *domain.StoreError
	assert.True(t, errors.As(err, &storeErr))
}

func TestStore_Save_RestrictsPermissions(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(context.Background(), "ACME", testRecord()))

	info, err := os.Stat(filepath.Join(store.Dir(), "ACME.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStore_Save_ReplacesWholesale(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testRecord()
	require.NoError(t, store.Save(ctx, "ACME", first))

	second := testRecord()
	second.AccessToken = "access-new"
	second.ExpiresAt = second.IssuedAt.Add(12 * time.Hour)
	require.NoError(t, store.Save(ctx, "ACME", second))

	got, err := store.Load(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, "access-new", got.AccessToken)
	assert.True(t, second.ExpiresAt.Equal(got.ExpiresAt))
}

func TestStore_Revoke(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "ACME", testRecord()))

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.Revoke(ctx, "ACME", at))

	got, err := store.Load(ctx, "ACME")
	require.NoError(t, err)
	assert.True(t, got.Revoked())
	assert.True(t, at.Equal(*got.RevokedAt))
}

func TestStore_Revoke_Missing(t *testing.T) {
	store := newTestStore(t)

	err := store.Revoke(context.Background(), "NOBODY", time.Now())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_InvalidTenantName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "../escape")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	err = store.Save(ctx, "a/b", testRecord())
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestStore_Lock_Exclusive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	release, err := store.Lock(ctx, "ACME")
	require.NoError(t, err)

	// A second claimant with a short deadline must time out while the lock
	// is held.
	shortCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	_, err = store.Lock(shortCtx, "ACME")
	require.Error(t, err)

	release()

	// After release the lock is available again.
	release2, err := store.Lock(ctx, "ACME")
	require.NoError(t, err)
	release2()
}

func TestStore_Lock_PerTenant(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	releaseA, err := store.Lock(ctx, "ACME")
	require.NoError(t, err)
	defer releaseA()

	// A different tenant's lock is independent.
	releaseB, err := store.Lock(ctx, "OTHER")
	require.NoError(t, err)
	releaseB()
}
