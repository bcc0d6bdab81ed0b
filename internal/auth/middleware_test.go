package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelforge/novelforge/internal/auth"
	"github.com/novelforge/novelforge/internal/shared"
)

func staticMiddleware(t *testing.T, id shared.Identity) (auth.Middleware, *shared.CSRFManager) {
	t.Helper()
	authz, err := auth.NewAuthorizer(auth.ResolverFunc(func(context.Context, string) (shared.Identity, error) {
		return id, nil
	}))
	require.NoError(t, err)
	csrf := shared.NewCSRFManager("csrf")
	return auth.Middleware{Authorizer: authz, CSRF: csrf}, csrf
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := shared.IdentityFromContext(r.Context())
		w.Header().Set("X-User", id.Username)
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireIdentityRejectsAnonymous(t *testing.T) {
	mw, _ := staticMiddleware(t, shared.Identity{UserID: 1})
	rec := httptest.NewRecorder()
	mw.RequireIdentity(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRequireIdentityStoresIdentity(t *testing.T) {
	mw, _ := staticMiddleware(t, shared.Identity{UserID: 1, Username: "ana"})
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer t")
	rec := httptest.NewRecorder()
	mw.RequireIdentity(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana", rec.Header().Get("X-User"))
}

func TestRequireIdentityCookieMutationNeedsCSRF(t *testing.T) {
	id := shared.Identity{UserID: 1, Username: "ana", IssuedAt: time.Unix(1700000000, 0)}
	mw, csrf := staticMiddleware(t, id)

	req := httptest.NewRequest(http.MethodPut, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "t"})
	rec := httptest.NewRecorder()
	mw.RequireIdentity(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "t"})
	req.Header.Set(shared.CSRFHeader, csrf.Token(id))
	rec = httptest.NewRecorder()
	mw.RequireIdentity(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "t"})
	rec = httptest.NewRecorder()
	mw.RequireIdentity(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	mw, _ := staticMiddleware(t, shared.Identity{UserID: 1})
	handler := mw.RequireRole(shared.RoleAdmin)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(shared.ContextWithIdentity(req.Context(), shared.Identity{UserID: 2, Role: shared.RoleUser}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(shared.ContextWithIdentity(req.Context(), shared.Identity{UserID: 3, Role: shared.RoleAdmin}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
