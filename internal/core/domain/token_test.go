package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func completeRecord() TokenRecord {
	now := time.Now()
	return TokenRecord{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-xyz",
		IssuedAt:     now,
		ExpiresAt:    now.Add(time.Hour),
		Scope:        []string{"read", "write"},
	}
}

func TestTokenRecord_Valid_Complete(t *testing.T) {
	rec := completeRecord()
	assert.True(t, rec.Valid())
}

func TestTokenRecord_Valid_MissingAccessToken(t *testing.T) {
	rec := completeRecord()
	rec.AccessToken = ""
	assert.False(t, rec.Valid(), "partial record must be treated as corrupt")
}

func TestTokenRecord_Valid_MissingRefreshToken(t *testing.T) {
	rec := completeRecord()
	rec.RefreshToken = ""
	assert.False(t, rec.Valid(), "partial record must be treated as corrupt")
}

func TestTokenRecord_Valid_ExpiryBeforeIssue(t *testing.T) {
	rec := completeRecord()
	rec.ExpiresAt = rec.IssuedAt.Add(-time.Minute)
	assert.False(t, rec.Valid())
}

func TestTokenRecord_Valid_ExpiryEqualsIssue(t *testing.T) {
	rec := completeRecord()
	rec.ExpiresAt = rec.IssuedAt
	assert.False(t, rec.Valid(), "expires_at must be strictly after issued_at")
}

func TestTokenRecord_Valid_ZeroTimestamps(t *testing.T) {
	rec := completeRecord()
	rec.IssuedAt = time.Time{}
	rec.ExpiresAt = time.Time{}
	assert.False(t, rec.Valid())
}

func TestTokenRecord_Revoked(t *testing.T) {
	rec := completeRecord()
	assert.False(t, rec.Revoked())

	at := time.Now()
	rec.RevokedAt = &at
	assert.True(t, rec.Revoked())
	assert.True(t, rec.Valid(), "revoked record keeps its fields")
}
