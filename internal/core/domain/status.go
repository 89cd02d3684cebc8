package domain

import "time"

// TokenState is the lifecycle state of a tenant's credential.
type TokenState string

const (
	// StateUnbootstrapped means no credential record exists yet.
	StateUnbootstrapped TokenState = "unbootstrapped"
	// StateValid means the access token has more than the safety buffer of
	// validity left.
	StateValid TokenState = "valid"
	// StateNeedsRefresh means the token is inside the safety buffer and the
	// next request for it will trigger a refresh.
	StateNeedsRefresh TokenState = "needs_refresh"
	// StateRevoked means the refresh token was rejected and a new bootstrap
	// is required.
	StateRevoked TokenState = "revoked"
)

// TenantStatus is a read-only view over the store and the expiry evaluator.
// Building one never touches the network.
type TenantStatus struct {
	Tenant          string
	State           TokenState
	HasAccessToken  bool
	HasRefreshToken bool
	ExpiresAt       time.Time
	Remaining       time.Duration
	Scope           []string
}

// HealthState classifies the result of a live end-to-end token check.
type HealthState string

const (
	// HealthOK means a valid token was obtained end to end.
	HealthOK HealthState = "ok"
	// HealthDegraded means a credential exists but the authorization server
	// could not be reached or answered with a transient failure. Distinct
	// from a missing credential; usually worth retrying, not re-bootstrapping.
	HealthDegraded HealthState = "degraded"
	// HealthNeedsBootstrap means no usable credential exists.
	HealthNeedsBootstrap HealthState = "needs_bootstrap"
)

// HealthReport combines the offline status with a live round trip.
type HealthReport struct {
	TenantStatus
	Health HealthState
	// LiveErr is the error from the live GetValidToken round trip, empty on
	// success.
	LiveErr string
}
