package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokenService struct {
	token  string
	err    error
	tenant string
}

func (s *stubTokenService) GetValidToken(_ context.Context, tenant string) (string, error) {
	s.tenant = tenant
	return s.token, s.err
}

func (s *stubTokenService) ForceRefresh(_ context.Context, tenant string) (string, error) {
	return s.token, s.err
}

func (s *stubTokenService) Bootstrap(context.Context, string, string) error {
	return s.err
}

func TestTokenSource_WrapsValidToken(t *testing.T) {
	svc := &stubTokenService{token: "access-abc"}
	source := NewTokenSource(context.Background(), svc, "ACME")

	tok, err := source.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-abc", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, "ACME", svc.tenant)
}

func TestTokenSource_PropagatesError(t *testing.T) {
	wantErr := errors.New("refresh failed")
	source := NewTokenSource(context.Background(), &stubTokenService{err: wantErr}, "ACME")

	_, err := source.Token()
	assert.ErrorIs(t, err, wantErr)
}
