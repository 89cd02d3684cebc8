// Package oauth implements the TokenExchanger port: HTTP calls against a
// tenant's token endpoint for the authorization-code and refresh-token
// grants, with bounded retry for transient failures.
package oauth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/datamat-io/tokenkeeper/internal/core/domain"
	"github.com/datamat-io/tokenkeeper/internal/core/ports/driven"
	"github.com/datamat-io/tokenkeeper/internal/logger"
)

// Ensure Exchanger implements the interface.
var _ driven.TokenExchanger = (*Exchanger)(nil)

const (
	defaultTimeout         = 30 * time.Second
	defaultMaxAttempts     = 3
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 5 * time.Second

	// expirySkew is subtracted from the issuer-reported TTL when computing
	// expires_at, absorbing clock differences between the broker host and
	// the authorization server.
	expirySkew = 60 * time.Second

	// defaultExpiresIn applies when the token response omits expires_in.
	defaultExpiresIn = 3600
)

// Exchanger performs token exchanges over HTTP. Client credentials go in an
// HTTP Basic Authorization header unless the tenant opts into body
// credentials. A token-bucket limiter caps calls to the token endpoint;
// providers rate-limit it and a nightly run with many tenants can burst.
type Exchanger struct {
	client          *http.Client
	limiter         *rate.Limiter
	maxAttempts     int
	initialInterval time.Duration
	maxInterval     time.Duration
	now             func() time.Time
}

// Option configures an Exchanger.
type Option func(*Exchanger)

// WithHTTPClient replaces the HTTP client, including its timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Exchanger) { e.client = c }
}

// WithTimeout bounds each HTTP call so a hung authorization server cannot
// stall a nightly job.
func WithTimeout(d time.Duration) Option {
	return func(e *Exchanger) { e.client.Timeout = d }
}

// WithMaxAttempts sets the total number of attempts per exchange, counting
// the first one. Only transient failures consume extra attempts.
func WithMaxAttempts(n int) Option {
	return func(e *Exchanger) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithBackoff sets the retry curve: the first wait and its cap.
func WithBackoff(initial, max time.Duration) Option {
	return func(e *Exchanger) {
		e.initialInterval = initial
		e.maxInterval = max
	}
}

// WithRateLimit caps sustained calls to the token endpoint.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(e *Exchanger) { e.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

func withClock(now func() time.Time) Option {
	return func(e *Exchanger) { e.now = now }
}

// NewExchanger creates an exchanger with a 30s timeout and up to 3 attempts
// per exchange.
func NewExchanger(opts ...Option) *Exchanger {
	e := &Exchanger{
		client:          &http.Client{Timeout: defaultTimeout},
		limiter:         rate.NewLimiter(rate.Limit(3), 3),
		maxAttempts:     defaultMaxAttempts,
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExchangeCode trades an authorization code for the first TokenRecord.
func (e *Exchanger) ExchangeCode(ctx context.Context, creds domain.TenantCredentials, code string) (*domain.TokenRecord, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", domain.ErrInvalidInput)
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", creds.RedirectURI)
	if len(creds.Scope) > 0 {
		form.Set("scope", strings.Join(creds.Scope, " "))
	}
	return e.exchange(ctx, creds, "authorization_code", form)
}

// Refresh exchanges a refresh token for a new TokenRecord.
func (e *Exchanger) Refresh(ctx context.Context, creds domain.TenantCredentials, refreshToken string) (*domain.TokenRecord, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", domain.ErrInvalidInput)
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return e.exchange(ctx, creds, "refresh_token", form)
}

func (e *Exchanger) exchange(ctx context.Context, creds domain.TenantCredentials, op string, form url.Values) (*domain.TokenRecord, error) {
	if creds.CredentialsInBody {
		form.Set("client_id", creds.ClientID)
		form.Set("client_secret", creds.ClientSecret)
	}
	body := form.Encode()

	attempt := 0
	operation := func() (*domain.TokenRecord, error) {
		attempt++
		rec, err := e.post(ctx, creds, op, body)
		if err != nil && attempt < e.maxAttempts && errors.Is(err, domain.ErrTransient) {
			logger.Debug("token %s exchange attempt %d/%d failed, retrying: %v", op, attempt, e.maxAttempts, err)
		}
		return rec, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.initialInterval
	bo.MaxInterval = e.maxInterval
	policy := backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(e.maxAttempts-1)), ctx)

	return backoff.RetryWithData(operation, policy)
}

// post performs one attempt. Transient failures come back wrapped in
// domain.ErrTransient so the retry policy keeps going; everything else is
// marked permanent.
func (e *Exchanger) post(ctx context.Context, creds domain.TenantCredentials, op, body string) (*domain.TokenRecord, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.TokenURL, strings.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(&domain.ExchangeError{Op: op, Err: err})
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if !creds.CredentialsInBody {
		req.Header.Set("Authorization", "Basic "+basicAuth(creds.ClientID, creds.ClientSecret))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(&domain.ExchangeError{Op: op, Err: ctx.Err()})
		}
		return nil, &domain.ExchangeError{Op: op, Err: fmt.Errorf("%w: %v", domain.ErrTransient, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, e.classify(op, resp)
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
		Scope        string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, backoff.Permanent(&domain.ExchangeError{
			Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode token response: %w", err)})
	}
	if tokenResp.AccessToken == "" {
		return nil, backoff.Permanent(&domain.ExchangeError{
			Op: op, StatusCode: resp.StatusCode, Err: errors.New("token response has no access_token")})
	}

	return e.buildRecord(tokenResp.AccessToken, tokenResp.RefreshToken, tokenResp.Scope, tokenResp.ExpiresIn), nil
}

// classify turns a non-200 answer into a retryable or permanent error.
// Retryable: 429 and 5xx. invalid_grant is terminal for the credential.
// Any other 4xx indicates a configuration or grant problem retrying cannot
// fix.
func (e *Exchanger) classify(op string, resp *http.Response) error {
	var errResp struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&errResp)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &domain.ExchangeError{
			Op: op, StatusCode: resp.StatusCode, OAuthCode: errResp.Error,
			Err: fmt.Errorf("%w: %s", domain.ErrTransient, describe(errResp.Error, errResp.Description)),
		}
	case errResp.Error == "invalid_grant":
		return backoff.Permanent(&domain.ExchangeError{
			Op: op, StatusCode: resp.StatusCode, OAuthCode: errResp.Error,
			Err: fmt.Errorf("%w: %s", domain.ErrInvalidGrant, errResp.Description),
		})
	default:
		return backoff.Permanent(&domain.ExchangeError{
			Op: op, StatusCode: resp.StatusCode, OAuthCode: errResp.Error,
			Err: errors.New(describe(errResp.Error, errResp.Description)),
		})
	}
}

func describe(code, description string) string {
	switch {
	case code == "" && description == "":
		return "no error body"
	case description == "":
		return code
	default:
		return fmt.Sprintf("%s - %s", code, description)
	}
}

// buildRecord converts a token response into a TokenRecord, subtracting the
// skew allowance from the reported TTL.
func (e *Exchanger) buildRecord(accessToken, refreshToken, scope string, expiresIn int) *domain.TokenRecord {
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}
	ttl := time.Duration(expiresIn)*time.Second - expirySkew
	if ttl <= 0 {
		// TTLs shorter than the skew allowance are kept as reported; an
		// expires_at at or before issued_at would make the record corrupt.
		ttl = time.Duration(expiresIn) * time.Second
	}
	now := e.now()
	rec := &domain.TokenRecord{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IssuedAt:     now,
		ExpiresAt:    now.Add(ttl),
	}
	if scope != "" {
		rec.Scope = strings.Fields(scope)
	}
	return rec
}

func basicAuth(clientID, clientSecret string) string {
	return base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
}
