package domain

import "time"

// DefaultSafetyBuffer is the margin subtracted from a token's real expiry to
// force a proactive refresh. Five minutes keeps a long-running extraction
// from losing its token partway through.
const DefaultSafetyBuffer = 5 * time.Minute

// NeedsRefresh reports whether the record must be refreshed before use.
// True when now plus the safety buffer reaches or passes the expiry; the
// boundary case counts as needing refresh so there is never a false negative.
func NeedsRefresh(r *TokenRecord, now time.Time, buffer time.Duration) bool {
	return !now.Add(buffer).Before(r.ExpiresAt)
}

// TimeRemaining returns how long the record stays valid from now, clamped to
// zero for already-expired records.
func TimeRemaining(r *TokenRecord, now time.Time) time.Duration {
	remaining := r.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
