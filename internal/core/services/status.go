package services

import (
	"context"
	"errors"
	"time"

	"github.com/datamat-io/tokenkeeper/internal/core/domain"
	"github.com/datamat-io/tokenkeeper/internal/core/ports/driven"
	"github.com/datamat-io/tokenkeeper/internal/core/ports/driving"
)

// Ensure ReportService implements the interface.
var _ driving.StatusReporter = (*ReportService)(nil)

// ReportService builds the read-only operational views. Status never touches
// the network; Health adds one live GetValidToken round trip.
type ReportService struct {
	store  driven.CredentialStore
	tokens driving.TokenService
	buffer time.Duration
	now    func() time.Time
}

// ReportOption configures a ReportService.
type ReportOption func(*ReportService)

// WithReportClock overrides the time source, for tests.
func WithReportClock(now func() time.Time) ReportOption {
	return func(s *ReportService) { s.now = now }
}

// WithReportBuffer overrides the safety buffer used to classify a token as
// needing refresh. Should match the orchestrator's buffer.
func WithReportBuffer(d time.Duration) ReportOption {
	return func(s *ReportService) { s.buffer = d }
}

// NewReportService creates the status/health reporter.
func NewReportService(store driven.CredentialStore, tokens driving.TokenService, opts ...ReportOption) *ReportService {
	s := &ReportService{
		store:  store,
		tokens: tokens,
		buffer: domain.DefaultSafetyBuffer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status reports credential presence and remaining TTL for a tenant. A
// missing record is reported as unbootstrapped, not returned as an error, so
// operational checks exit cleanly on a fresh installation.
func (s *ReportService) Status(ctx context.Context, tenant string) (*domain.TenantStatus, error) {
	status := &domain.TenantStatus{Tenant: tenant, State: domain.StateUnbootstrapped}

	rec, err := s.store.Load(ctx, tenant)
	if errors.Is(err, domain.ErrNotFound) {
		return status, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	status.HasAccessToken = rec.AccessToken != ""
	status.HasRefreshToken = rec.RefreshToken != ""
	status.ExpiresAt = rec.ExpiresAt
	status.Remaining = domain.TimeRemaining(rec, now)
	status.Scope = rec.Scope

	switch {
	case rec.Revoked():
		status.State = domain.StateRevoked
	case domain.NeedsRefresh(rec, now, s.buffer):
		status.State = domain.StateNeedsRefresh
	default:
		status.State = domain.StateValid
	}
	return status, nil
}

// Health composes Status with a live token round trip. A failing exchange on
// an existing credential is degraded, not fatal: the credential may work
// again once the authorization server recovers, unlike a missing or revoked
// one which always needs a human.
func (s *ReportService) Health(ctx context.Context, tenant string) (*domain.HealthReport, error) {
	status, err := s.Status(ctx, tenant)
	if err != nil {
		return nil, err
	}

	report := &domain.HealthReport{TenantStatus: *status}
	if status.State == domain.StateUnbootstrapped || status.State == domain.StateRevoked {
		report.Health = domain.HealthNeedsBootstrap
		return report, nil
	}

	if _, err := s.tokens.GetValidToken(ctx, tenant); err != nil {
		report.LiveErr = err.Error()
		if errors.Is(err, domain.ErrNeedsBootstrap) || errors.Is(err, domain.ErrInvalidGrant) {
			report.Health = domain.HealthNeedsBootstrap
		} else {
			report.Health = domain.HealthDegraded
		}
		return report, nil
	}

	// The round trip may have refreshed the record; re-report so remaining
	// TTL reflects what is on disk now.
	refreshed, err := s.Status(ctx, tenant)
	if err == nil {
		report.TenantStatus = *refreshed
	}
	report.Health = domain.HealthOK
	return report, nil
}
