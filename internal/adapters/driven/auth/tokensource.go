// Package auth bridges the token service to the oauth2 ecosystem so HTTP
// clients built on oauth2.NewClient or option.WithTokenSource pick up managed
// credentials transparently.
package auth

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/datamat-io/tokenkeeper/internal/core/ports/driving"
)

// TokenSourceAdapter adapts a TokenService tenant to oauth2.TokenSource. Every
// Token call goes through GetValidToken, so the source never hands out a token
// inside the safety buffer.
type TokenSourceAdapter struct {
	tokens driving.TokenService
	tenant string
	ctx    context.Context
}

// NewTokenSource creates an oauth2.TokenSource bound to one tenant. The
// context bounds every subsequent Token call; oauth2.TokenSource has no
// context parameter of its own.
func NewTokenSource(ctx context.Context, tokens driving.TokenService, tenant string) oauth2.TokenSource {
	return &TokenSourceAdapter{
		tokens: tokens,
		tenant: tenant,
		ctx:    ctx,
	}
}

// Token implements oauth2.TokenSource.
func (t *TokenSourceAdapter) Token() (*oauth2.Token, error) {
	accessToken, err := t.tokens.GetValidToken(t.ctx, t.tenant)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}, nil
}
