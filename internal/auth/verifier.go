package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier turns a raw bearer token into a Principal.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*Principal, error)
}

// idTokenClaims are the provider claims this service consumes.
type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Nickname      string `json:"nickname"`
}

// Verifier validates RS256 bearer tokens against the provider's JWKS and
// the configured issuer/audience. It never talks to the provider beyond
// the key set: the login/callback choreography is the provider's problem.
type Verifier struct {
	issuer   string
	audience string
	jwks     *jwksCache
}

// NewVerifier creates a token verifier. audience may be empty to skip the
// aud check (single-tenant deployments behind a fixed client).
func NewVerifier(issuer, audience, jwksURL string, client *http.Client) *Verifier {
	return &Verifier{
		issuer:   issuer,
		audience: audience,
		jwks:     newJWKSCache(jwksURL, client),
	}
}

// Verify parses and validates raw, returning the asserted principal.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Principal, error) {
	keyfunc := func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return v.jwks.key(ctx, kid)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &idTokenClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, keyfunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token")
	}

	return &Principal{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Nickname:      claims.Nickname,
	}, nil
}
