package domain

import "time"

// TokenRecord is the durable credential state for one tenant: the bearer
// token used for API calls, the long-lived refresh token, and the validity
// window reported by the authorization server.
//
// A record is created only by a successful code or refresh exchange and is
// always replaced wholesale; no partial field updates happen after creation.
type TokenRecord struct {
	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is used to obtain new access tokens.
	RefreshToken string `json:"refresh_token"`
	// IssuedAt is when the record was obtained from the authorization server.
	IssuedAt time.Time `json:"issued_at"`
	// ExpiresAt is when the access token stops being usable, derived from the
	// issuer-reported TTL.
	ExpiresAt time.Time `json:"expires_at"`
	// Scope is the set of scopes granted with the token.
	Scope []string `json:"scope,omitempty"`
	// RevokedAt marks the record unusable after a terminal auth failure
	// (revoked or expired refresh token). The record is kept rather than
	// deleted so status reporting can distinguish a revoked credential from
	// one that was never bootstrapped.
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Valid reports whether the record is complete and internally consistent.
// A record missing either token, or whose expiry does not strictly follow
// its issue time, is corrupt and must be treated as absent by stores.
func (r *TokenRecord) Valid() bool {
	if r.AccessToken == "" || r.RefreshToken == "" {
		return false
	}
	if r.IssuedAt.IsZero() || r.ExpiresAt.IsZero() {
		return false
	}
	return r.ExpiresAt.After(r.IssuedAt)
}

// Revoked reports whether the record was invalidated by a terminal auth
// failure and a new bootstrap is required.
func (r *TokenRecord) Revoked() bool {
	return r.RevokedAt != nil
}
