package auth

import (
	"log/slog"
	"net/http"

	"github.com/novelforge/novelforge/internal/platform/httpx"
	"github.com/novelforge/novelforge/internal/shared"
)

// Middleware wires authentication and role checks for HTTP handlers.
type Middleware struct {
	Authorizer *Authorizer
	CSRF       *shared.CSRFManager
	Logger     *slog.Logger
}

// RequireIdentity rejects requests without a valid credential. Mutating
// requests authenticated by cookie must also present the CSRF header.
func (m Middleware) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.Authorizer.Authorize(r.Context(), FromRequest(r))
		if err != nil {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		if id.ViaCookie && isMutating(r.Method) && m.CSRF != nil {
			if err := m.CSRF.VerifyToken(id, r.Header.Get(shared.CSRFHeader)); err != nil {
				if m.Logger != nil {
					m.Logger.Warn("csrf rejected", slog.Int64("user_id", id.UserID), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), id)))
	})
}

// RequireRole ensures the identity in context carries role.
func (m Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if id.Role != role {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
