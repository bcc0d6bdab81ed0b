// Package token issues and verifies signed session tokens.
//
// Tokens are HS256 JWTs in compact form. The claim set is the subject id,
// username, role, issue time and expiry. There is no server-side revocation:
// a token stays valid until it expires.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of a session token unless configured otherwise.
const DefaultTTL = 7 * 24 * time.Hour

var (
	// ErrMissingSecret is returned when no signing secret is configured.
	ErrMissingSecret = errors.New("token: signing secret is empty")
	// ErrInvalidToken covers forged, malformed and expired tokens alike.
	ErrInvalidToken = errors.New("token: invalid or expired")
)

// Claim is the identity carried by a session token.
type Claim struct {
	SubjectID int64
	Username  string
	Role      string
	IssuedAt  time.Time
}

type sessionClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs claim with secret. The token expires ttl after claim.IssuedAt,
// or after the current time when IssuedAt is zero. JWT dates have whole
// second precision, so IssuedAt is truncated to the second and Verify returns
// the truncated value in UTC.
func Issue(claim Claim, secret string, ttl time.Duration) (string, error) {
	return issue(claim, []byte(secret), ttl, time.Now)
}

// Verify checks the signature and expiry of token and returns its claim.
func Verify(token, secret string) (Claim, error) {
	return verify(token, []byte(secret), time.Now)
}

func issue(claim Claim, secret []byte, ttl time.Duration, now func() time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	issuedAt := claim.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = now()
	}
	issuedAt = issuedAt.UTC().Truncate(time.Second)

	claims := sessionClaims{
		Username: claim.Username,
		Role:     claim.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(claim.SubjectID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

func verify(raw string, secret []byte, now func() time.Time) (Claim, error) {
	if len(secret) == 0 {
		return Claim{}, ErrMissingSecret
	}
	if raw == "" {
		return Claim{}, ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	var claims sessionClaims
	parsed, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claim{}, ErrInvalidToken
	}
	subject, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || subject <= 0 {
		return Claim{}, ErrInvalidToken
	}
	out := Claim{
		SubjectID: subject,
		Username:  claims.Username,
		Role:      claims.Role,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return out, nil
}

// Codec bundles the signing secret, token lifetime and clock used by the
// server.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec constructs a Codec. A non-positive ttl selects DefaultTTL.
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock returns a copy of the codec reading time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	clone := *c
	clone.now = now
	return &clone
}

// TTL reports the lifetime of issued tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs claim. A zero IssuedAt is stamped with the codec clock.
func (c *Codec) Issue(claim Claim) (string, error) {
	return issue(claim, c.secret, c.ttl, c.now)
}

// Verify returns the claim of a valid, unexpired token.
func (c *Codec) Verify(raw string) (Claim, error) {
	return verify(raw, c.secret, c.now)
}
