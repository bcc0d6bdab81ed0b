package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelforge/novelforge/internal/auth"
	"github.com/novelforge/novelforge/internal/shared"
	"github.com/novelforge/novelforge/internal/token"
)

type countingResolver struct {
	calls int
	seen  []string
	id    shared.Identity
	err   error
}

func (c *countingResolver) Resolve(_ context.Context, raw string) (shared.Identity, error) {
	c.calls++
	c.seen = append(c.seen, raw)
	return c.id, c.err
}

func newCodec(t *testing.T, secret string) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec(secret, time.Hour)
	require.NoError(t, err)
	return codec
}

func TestAuthorizeWithoutCredentialSkipsResolver(t *testing.T) {
	resolver := &countingResolver{id: shared.Identity{UserID: 1}}
	authz, err := auth.NewAuthorizer(resolver)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/novels", nil)
	_, err = authz.Authorize(context.Background(), auth.FromRequest(req))
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
	assert.Zero(t, resolver.calls)
}

func TestAuthorizeHeaderWinsOverCookie(t *testing.T) {
	resolver := &countingResolver{id: shared.Identity{UserID: 3, Role: shared.RoleUser}}
	authz, err := auth.NewAuthorizer(resolver)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "cookie-token"})

	id, err := authz.Authorize(context.Background(), auth.FromRequest(req))
	require.NoError(t, err)
	assert.Equal(t, []string{"header-token"}, resolver.seen)
	assert.False(t, id.ViaCookie)
}

func TestAuthorizeFallsBackToCookie(t *testing.T) {
	resolver := &countingResolver{id: shared.Identity{UserID: 3, Role: shared.RoleUser}}
	authz, err := auth.NewAuthorizer(resolver)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "cookie-token"})

	id, err := authz.Authorize(context.Background(), auth.FromRequest(req))
	require.NoError(t, err)
	assert.Equal(t, []string{"cookie-token"}, resolver.seen)
	assert.True(t, id.ViaCookie)
}

func TestAuthorizeResolverFailureIsUnauthorized(t *testing.T) {
	resolver := &countingResolver{err: errors.New("boom")}
	authz, err := auth.NewAuthorizer(resolver)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer x")
	_, err = authz.Authorize(context.Background(), auth.FromRequest(req))
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestAuthorizeRejectsTokenSignedWithOtherSecret(t *testing.T) {
	raw, err := newCodec(t, "s1").Issue(token.Claim{SubjectID: 5, Username: "ana", Role: shared.RoleUser})
	require.NoError(t, err)

	authz, err := auth.NewAuthorizer(auth.CodecResolver{Codec: newCodec(t, "s2")})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	_, err = authz.Authorize(context.Background(), auth.FromRequest(req))
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestCodecResolverRoundTrip(t *testing.T) {
	codec := newCodec(t, "s1")
	raw, err := codec.Issue(token.Claim{SubjectID: 5, Username: "ana", Role: shared.RoleAdmin})
	require.NoError(t, err)

	authz, err := auth.NewAuthorizer(auth.CodecResolver{Codec: codec})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+raw)
	id, err := authz.Authorize(context.Background(), auth.FromRequest(req))
	require.NoError(t, err)
	assert.Equal(t, int64(5), id.UserID)
	assert.True(t, id.IsAdmin())
}

func TestCodecResolverRejectsUnknownRole(t *testing.T) {
	codec := newCodec(t, "s1")
	raw, err := codec.Issue(token.Claim{SubjectID: 5, Username: "ana", Role: "root"})
	require.NoError(t, err)

	_, err = auth.CodecResolver{Codec: codec}.Resolve(context.Background(), raw)
	assert.Error(t, err)
}

func TestNewAuthorizerRequiresResolver(t *testing.T) {
	_, err := auth.NewAuthorizer(nil)
	assert.Error(t, err)
}
