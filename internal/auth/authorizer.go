package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/novelforge/novelforge/internal/shared"
	"github.com/novelforge/novelforge/internal/token"
)

// CookieName is the fallback cookie carrying the session token.
const CookieName = "novelforge_token"

// CredentialSource exposes the parts of a request that may carry a credential.
type CredentialSource interface {
	Header(name string) string
	Cookie(name string) (string, bool)
}

type requestSource struct {
	r *http.Request
}

// FromRequest adapts an HTTP request into a CredentialSource.
func FromRequest(r *http.Request) CredentialSource {
	return requestSource{r: r}
}

func (s requestSource) Header(name string) string {
	return s.r.Header.Get(name)
}

func (s requestSource) Cookie(name string) (string, bool) {
	c, err := s.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

// Credential is a raw bearer token plus where it was found.
type Credential struct {
	Token     string
	ViaCookie bool
}

// ExtractCredential returns the first credential found: the Authorization
// bearer header wins over the cookie.
func ExtractCredential(src CredentialSource) (Credential, bool) {
	if src == nil {
		return Credential{}, false
	}
	if raw := bearerToken(src.Header("Authorization")); raw != "" {
		return Credential{Token: raw}, true
	}
	if raw, ok := src.Cookie(CookieName); ok {
		raw = strings.TrimSpace(raw)
		if raw != "" {
			return Credential{Token: raw, ViaCookie: true}, true
		}
	}
	return Credential{}, false
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Resolver turns a raw credential into an identity.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (shared.Identity, error)
}

// ResolverFunc adapts a function into a Resolver.
type ResolverFunc func(ctx context.Context, raw string) (shared.Identity, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, raw string) (shared.Identity, error) {
	return f(ctx, raw)
}

// CodecResolver resolves identities from signed session tokens alone. It
// does not consult the database, so a disabled account keeps working until
// its token expires.
type CodecResolver struct {
	Codec *token.Codec
}

// Resolve verifies raw and converts its claim into an identity.
func (c CodecResolver) Resolve(_ context.Context, raw string) (shared.Identity, error) {
	claim, err := c.Codec.Verify(raw)
	if err != nil {
		return shared.Identity{}, err
	}
	if !shared.ValidRole(claim.Role) {
		return shared.Identity{}, token.ErrInvalidToken
	}
	return shared.Identity{
		UserID:   claim.SubjectID,
		Username: claim.Username,
		Role:     claim.Role,
		IssuedAt: claim.IssuedAt,
	}, nil
}

// Authorizer decides whether a request carries a valid identity.
type Authorizer struct {
	resolver Resolver
}

// NewAuthorizer constructs an Authorizer around resolver.
func NewAuthorizer(resolver Resolver) (*Authorizer, error) {
	if resolver == nil {
		return nil, errors.New("auth: resolver required")
	}
	return &Authorizer{resolver: resolver}, nil
}

// Authorize returns the identity behind the request credential or
// shared.ErrUnauthorized. Requests without a credential are rejected before
// the resolver is consulted.
func (a *Authorizer) Authorize(ctx context.Context, src CredentialSource) (shared.Identity, error) {
	cred, ok := ExtractCredential(src)
	if !ok {
		return shared.Identity{}, shared.ErrUnauthorized
	}
	id, err := a.resolver.Resolve(ctx, cred.Token)
	if err != nil || id.UserID <= 0 {
		return shared.Identity{}, shared.ErrUnauthorized
	}
	id.ViaCookie = cred.ViaCookie
	return id, nil
}
