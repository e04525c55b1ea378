package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testKid = "test-key-1"

func newTestKeys(t *testing.T) (*rsa.PrivateKey, *httptest.Server) {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating RSA key: %v", err)
	}

	doc := jwksDocument{Keys: []jwk{{
		Kty: "RSA",
		Kid: testKid,
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(priv.PublicKey.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString([]byte{1, 0, 1}),
	}}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(srv.Close)

	return priv, srv
}

type tokenOpts struct {
	issuer   string
	audience string
	subject  string
	expires  time.Time
	kid      string
}

func signToken(t *testing.T, priv *rsa.PrivateKey, opts tokenOpts, extra map[string]any) string {
	t.Helper()

	claims := jwt.MapClaims{
		"iss": opts.issuer,
		"sub": opts.subject,
		"exp": jwt.NewNumericDate(opts.expires),
		"iat": jwt.NewNumericDate(time.Now()),
	}
	if opts.audience != "" {
		claims["aud"] = opts.audience
	}
	for k, v := range extra {
		claims[k] = v
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if opts.kid != "" {
		tok.Header["kid"] = opts.kid
	}
	signed, err := tok.SignedString(priv)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	priv, srv := newTestKeys(t)
	v := NewVerifier("https://issuer.test/", "api://onboard", srv.URL, nil)

	raw := signToken(t, priv, tokenOpts{
		issuer:   "https://issuer.test/",
		audience: "api://onboard",
		subject:  "auth0|1",
		expires:  time.Now().Add(time.Hour),
		kid:      testKid,
	}, map[string]any{
		"email":          "u@test.com",
		"email_verified": true,
		"name":           "Ada",
		"nickname":       "ada",
	})

	p, err := v.Verify(context.Background(), raw)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if p.Subject != "auth0|1" {
		t.Errorf("expected subject auth0|1, got %q", p.Subject)
	}
	if p.Email != "u@test.com" {
		t.Errorf("expected email u@test.com, got %q", p.Email)
	}
	if !p.EmailVerified {
		t.Error("expected email_verified=true")
	}
	if p.DisplayName() != "Ada" {
		t.Errorf("expected display name Ada, got %q", p.DisplayName())
	}
}

func TestVerifyDisplayNameFallsBackToNickname(t *testing.T) {
	priv, srv := newTestKeys(t)
	v := NewVerifier("https://issuer.test/", "", srv.URL, nil)

	raw := signToken(t, priv, tokenOpts{
		issuer:  "https://issuer.test/",
		subject: "auth0|2",
		expires: time.Now().Add(time.Hour),
		kid:     testKid,
	}, map[string]any{"nickname": "grace"})

	p, err := v.Verify(context.Background(), raw)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if p.DisplayName() != "grace" {
		t.Errorf("expected nickname fallback grace, got %q", p.DisplayName())
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	priv, srv := newTestKeys(t)
	v := NewVerifier("https://issuer.test/", "", srv.URL, nil)

	raw := signToken(t, priv, tokenOpts{
		issuer:  "https://evil.test/",
		subject: "auth0|1",
		expires: time.Now().Add(time.Hour),
		kid:     testKid,
	}, nil)

	if _, err := v.Verify(context.Background(), raw); err == nil {
		t.Error("expected error for wrong issuer")
	}
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	priv, srv := newTestKeys(t)
	v := NewVerifier("https://issuer.test/", "api://onboard", srv.URL, nil)

	raw := signToken(t, priv, tokenOpts{
		issuer:   "https://issuer.test/",
		audience: "api://other",
		subject:  "auth0|1",
		expires:  time.Now().Add(time.Hour),
		kid:      testKid,
	}, nil)

	if _, err := v.Verify(context.Background(), raw); err == nil {
		t.Error("expected error for wrong audience")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	priv, srv := newTestKeys(t)
	v := NewVerifier("https://issuer.test/", "", srv.URL, nil)

	raw := signToken(t, priv, tokenOpts{
		issuer:  "https://issuer.test/",
		subject: "auth0|1",
		expires: time.Now().Add(-time.Hour),
		kid:     testKid,
	}, nil)

	if _, err := v.Verify(context.Background(), raw); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestVerifyRejectsUnknownKey(t *testing.T) {
	priv, srv := newTestKeys(t)
	v := NewVerifier("https://issuer.test/", "", srv.URL, nil)

	raw := signToken(t, priv, tokenOpts{
		issuer:  "https://issuer.test/",
		subject: "auth0|1",
		expires: time.Now().Add(time.Hour),
		kid:     "other-key",
	}, nil)

	if _, err := v.Verify(context.Background(), raw); err == nil {
		t.Error("expected error for unknown kid")
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	_, srv := newTestKeys(t)
	v := NewVerifier("https://issuer.test/", "", srv.URL, nil)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	raw := signToken(t, other, tokenOpts{
		issuer:  "https://issuer.test/",
		subject: "auth0|1",
		expires: time.Now().Add(time.Hour),
		kid:     testKid,
	}, nil)

	if _, err := v.Verify(context.Background(), raw); err == nil {
		t.Error("expected error for signature from a different key")
	}
}
