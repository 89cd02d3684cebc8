package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/datamat-io/tokenkeeper/internal/core/domain"
	"github.com/datamat-io/tokenkeeper/internal/core/ports/driven"
	"github.com/datamat-io/tokenkeeper/internal/core/ports/driving"
	"github.com/datamat-io/tokenkeeper/internal/logger"
)

// Ensure OAuth2Client implements the interface.
var _ driving.TokenService = (*OAuth2Client)(nil)

// OAuth2Client keeps access tokens valid for unattended jobs. Expiry is
// evaluated lazily on every request; an idle tenant consumes nothing between
// runs. The client holds no cached token state: every read goes back to the
// store so concurrent callers and processes never act on a stale copy.
type OAuth2Client struct {
	tenants   driven.TenantStore
	store     driven.CredentialStore
	exchanger driven.TokenExchanger
	buffer    time.Duration
	now       func() time.Time

	// group collapses concurrent refresh attempts for the same tenant into
	// one exchange within this process; the store lock does the same across
	// processes.
	group singleflight.Group
}

// ClientOption configures an OAuth2Client.
type ClientOption func(*OAuth2Client)

// WithSafetyBuffer overrides the proactive-refresh margin.
func WithSafetyBuffer(d time.Duration) ClientOption {
	return func(c *OAuth2Client) { c.buffer = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ClientOption {
	return func(c *OAuth2Client) { c.now = now }
}

// NewOAuth2Client creates the orchestrator over the given store, exchanger
// and tenant configuration.
func NewOAuth2Client(tenants driven.TenantStore, store driven.CredentialStore, exchanger driven.TokenExchanger, opts ...ClientOption) *OAuth2Client {
	c := &OAuth2Client{
		tenants:   tenants,
		store:     store,
		exchanger: exchanger,
		buffer:    domain.DefaultSafetyBuffer,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SafetyBuffer returns the configured proactive-refresh margin.
func (c *OAuth2Client) SafetyBuffer() time.Duration { return c.buffer }

// GetValidToken returns a bearer token with at least the safety buffer of
// validity left at the moment of return. The needs-refresh decision is
// lock-free; only the refresh-and-persist sequence is mutually exclusive.
func (c *OAuth2Client) GetValidToken(ctx context.Context, tenant string) (string, error) {
	rec, err := c.load(ctx, tenant)
	if err != nil {
		return "", err
	}
	if !domain.NeedsRefresh(rec, c.now(), c.buffer) {
		return rec.AccessToken, nil
	}
	return c.refresh(ctx, tenant, false)
}

// ForceRefresh refreshes the tenant's token regardless of remaining
// validity. For callers recovering from a 401 on a token the evaluator still
// considered valid.
func (c *OAuth2Client) ForceRefresh(ctx context.Context, tenant string) (string, error) {
	if _, err := c.load(ctx, tenant); err != nil {
		return "", err
	}
	return c.refresh(ctx, tenant, true)
}

// Bootstrap trades a one-time authorization code for the tenant's first
// TokenRecord and persists it. If the server omits the refresh token on a
// repeated exchange, the previously stored one is carried forward; some
// providers only send it once.
func (c *OAuth2Client) Bootstrap(ctx context.Context, tenant, code string) error {
	creds, err := c.tenants.Get(tenant)
	if err != nil {
		return err
	}

	rec, err := c.exchanger.ExchangeCode(ctx, *creds, code)
	if err != nil {
		return err
	}
	if rec.RefreshToken == "" {
		if old, loadErr := c.store.Load(ctx, tenant); loadErr == nil && !old.Revoked() {
			rec.RefreshToken = old.RefreshToken
		}
	}
	if !rec.Valid() {
		return fmt.Errorf("%w: exchange produced an incomplete credential", domain.ErrInvalidGrant)
	}

	if err := c.store.Save(ctx, tenant, *rec); err != nil {
		return err
	}
	logger.Info("tenant %s bootstrapped, token valid until %s", tenant, rec.ExpiresAt.Format(time.RFC3339))
	return nil
}

// load fetches the tenant's record and maps absence and revocation onto
// ErrNeedsBootstrap so callers get one terminal signal for "a human has to
// authorize again".
func (c *OAuth2Client) load(ctx context.Context, tenant string) (*domain.TokenRecord, error) {
	rec, err := c.store.Load(ctx, tenant)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("tenant %s has no credential: %w", tenant, domain.ErrNeedsBootstrap)
	}
	if err != nil {
		return nil, err
	}
	if rec.Revoked() {
		return nil, fmt.Errorf("tenant %s credential was revoked: %w", tenant, domain.ErrNeedsBootstrap)
	}
	return rec, nil
}

// refresh performs the mutually exclusive refresh-and-persist sequence.
// Within the process, singleflight makes N concurrent callers share one
// exchange; across processes, the store lock serializes. After acquiring the
// lock the record is re-read: a caller that lost the race observes the
// already-refreshed record and returns it without its own exchange.
func (c *OAuth2Client) refresh(ctx context.Context, tenant string, force bool) (string, error) {
	token, err, _ := c.group.Do(tenant, func() (any, error) {
		release, err := c.store.Lock(ctx, tenant)
		if err != nil {
			return "", err
		}
		defer release()

		rec, err := c.load(ctx, tenant)
		if err != nil {
			return "", err
		}
		if !force && !domain.NeedsRefresh(rec, c.now(), c.buffer) {
			// Another process refreshed while we waited for the lock.
			return rec.AccessToken, nil
		}

		creds, err := c.tenants.Get(tenant)
		if err != nil {
			return "", err
		}

		logger.Debug("refreshing token for tenant %s", tenant)
		fresh, err := c.exchanger.Refresh(ctx, *creds, rec.RefreshToken)
		if errors.Is(err, domain.ErrInvalidGrant) {
			// The refresh token itself is dead. Mark the record so the next
			// caller fails fast without a network call.
			if revokeErr := c.store.Revoke(ctx, tenant, c.now()); revokeErr != nil {
				logger.Error(revokeErr, "marking tenant %s credential revoked", tenant)
			}
			logger.Warn("tenant %s refresh token rejected, bootstrap required", tenant)
			return "", err
		}
		if err != nil {
			return "", err
		}

		if fresh.RefreshToken == "" {
			fresh.RefreshToken = rec.RefreshToken
		}
		if !fresh.Valid() {
			return "", fmt.Errorf("%w: refresh produced an incomplete credential", domain.ErrInvalidGrant)
		}
		if err := c.store.Save(ctx, tenant, *fresh); err != nil {
			// Surfaced, never swallowed: with the new token unwritten the
			// next run would repeat this refresh.
			return "", err
		}
		logger.Info("tenant %s token refreshed, valid until %s", tenant, fresh.ExpiresAt.Format(time.RFC3339))
		return fresh.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}
