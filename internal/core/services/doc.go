// Package services contains the core orchestration logic: the OAuth2Client
// that keeps access tokens valid across unattended runs, and the read-only
// status and health reporters used by operational tooling.
package services
