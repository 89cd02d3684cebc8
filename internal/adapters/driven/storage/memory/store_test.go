package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datamat-io/tokenkeeper/internal/core/domain"
)

func testRecord() domain.TokenRecord {
	now := time.Now()
	return domain.TokenRecord{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-xyz",
		IssuedAt:     now,
		ExpiresAt:    now.Add(time.Hour),
	}
}

func TestStore_SaveLoad(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	rec := testRecord()

	require.NoError(t, store.Save(ctx, "ACME", rec))

	got, err := store.Load(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, rec.AccessToken, got.AccessToken)
}

func TestStore_Load_Missing(t *testing.T) {
	store := NewStore()
	_, err := store.Load(context.Background(), "NOBODY")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_Load_ReturnsCopy(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "ACME", testRecord()))

	first, err := store.Load(ctx, "ACME")
	require.NoError(t, err)
	first.AccessToken = "mutated"

	second, err := store.Load(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, "access-abc", second.AccessToken, "callers must not share a mutable reference")
}

func TestStore_Revoke(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "ACME", testRecord()))

	require.NoError(t, store.Revoke(ctx, "ACME", time.Now()))

	got, err := store.Load(ctx, "ACME")
	require.NoError(t, err)
	assert.True(t, got.Revoked())
}

func TestStore_Lock_Blocks(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	release, err := store.Lock(ctx, "ACME")
	require.NoError(t, err)

	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = store.Lock(shortCtx, "ACME")
	require.Error(t, err)

	release()

	release2, err := store.Lock(ctx, "ACME")
	require.NoError(t, err)
	release2()
}
