package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNeedsRefresh_WellBeforeExpiry(t *testing.T) {
	now := time.Now()
	rec := &TokenRecord{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, NeedsRefresh(rec, now, 5*time.Minute))
}

func TestNeedsRefresh_InsideBuffer(t *testing.T) {
	now := time.Now()
	rec := &TokenRecord{ExpiresAt: now.Add(2 * time.Minute)}

	assert.True(t, NeedsRefresh(rec, now, 5*time.Minute))
}

func TestNeedsRefresh_ExactBoundary(t *testing.T) {
	now := time.Now()
	rec := &TokenRecord{ExpiresAt: now.Add(5 * time.Minute)}

	assert.True(t, NeedsRefresh(rec, now, 5*time.Minute),
		"now+buffer == expires_at must count as needing refresh")
}

func TestNeedsRefresh_AlreadyExpired(t *testing.T) {
	now := time.Now()
	rec := &TokenRecord{ExpiresAt: now.Add(-time.Minute)}

	assert.True(t, NeedsRefresh(rec, now, 5*time.Minute))
}

func TestNeedsRefresh_ZeroBuffer(t *testing.T) {
	now := time.Now()
	rec := &TokenRecord{ExpiresAt: now.Add(time.Second)}

	assert.False(t, NeedsRefresh(rec, now, 0))
	assert.True(t, NeedsRefresh(rec, now.Add(time.Second), 0))
}

func TestTimeRemaining_Positive(t *testing.T) {
	now := time.Now()
	rec := &TokenRecord{ExpiresAt: now.Add(90 * time.Minute)}

	assert.Equal(t, 90*time.Minute, TimeRemaining(rec, now))
}

func TestTimeRemaining_ClampedToZero(t *testing.T) {
	now := time.Now()
	rec := &TokenRecord{ExpiresAt: now.Add(-time.Hour)}

	assert.Equal(t, time.Duration(0), TimeRemaining(rec, now), "remaining time never goes negative")
}
