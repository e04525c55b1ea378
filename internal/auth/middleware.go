package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lekana/onboard/internal/cache"
)

// Rejection codes surfaced to callers so the frontend can route the user
// to the right remediation step instead of a generic denial.
const (
	CodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	CodeOnboardingRequired = "ONBOARDING_REQUIRED"
)

// CompletionLookup resolves a subject to its onboarding-completed flag.
type CompletionLookup interface {
	OnboardingCompleted(ctx context.Context, subject string) (bool, error)
}

// CompletionLookupFunc adapts a function to CompletionLookup.
type CompletionLookupFunc func(ctx context.Context, subject string) (bool, error)

// OnboardingCompleted calls f.
func (f CompletionLookupFunc) OnboardingCompleted(ctx context.Context, subject string) (bool, error) {
	return f(ctx, subject)
}

// GateMetrics counts gate rejections. Implemented by the metrics package;
// a nil value disables counting.
type GateMetrics interface {
	IncGateRejection(reason string)
}

// OnboardingCacheKey is the cache key under which the gate remembers a
// completed onboarding for a subject. The onboarding save drops it after
// commit.
func OnboardingCacheKey(subject string) string {
	return "onboarded:" + subject
}

// RequireAuth returns middleware that verifies the bearer token and
// injects the principal into the request context. Missing or invalid
// credentials are rejected as unauthenticated.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				writeNotAuthenticated(w)
				return
			}

			p, err := verifier.Verify(r.Context(), token)
			if err != nil {
				slog.Debug("token verification failed", "error", err)
				writeNotAuthenticated(w)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireVerifiedEmail rejects principals whose email the provider has
// not verified. Runs after RequireAuth; a missing principal is treated as
// unauthenticated, never as unverified.
func RequireVerifiedEmail(metrics GateMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil {
				writeNotAuthenticated(w)
				return
			}
			if !p.EmailVerified {
				if metrics != nil {
					metrics.IncGateRejection(CodeEmailNotVerified)
				}
				writeGateRejection(w, CodeEmailNotVerified,
					"Please verify your email before accessing the app.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOnboarded rejects principals that have not completed onboarding.
// Positive lookups are cached for cacheTTL; a missing user row reads as
// not onboarded. Runs after RequireVerifiedEmail so the two 403s stay
// distinct.
func RequireOnboarded(lookup CompletionLookup, c cache.Client, cacheTTL time.Duration, metrics GateMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil {
				writeNotAuthenticated(w)
				return
			}

			if c != nil {
				v, err := c.Get(r.Context(), OnboardingCacheKey(p.Subject))
				if err == nil && v == "1" {
					next.ServeHTTP(w, r)
					return
				}
				if err != nil && !errors.Is(err, cache.ErrNotFound) {
					slog.Warn("onboarding cache read failed", "error", err)
				}
			}

			completed, err := lookup.OnboardingCompleted(r.Context(), p.Subject)
			if err != nil {
				slog.Error("onboarding lookup failed", "subject", p.Subject, "error", err)
				writeServerError(w)
				return
			}
			if !completed {
				if metrics != nil {
					metrics.IncGateRejection(CodeOnboardingRequired)
				}
				writeGateRejection(w, CodeOnboardingRequired, "User must complete onboarding")
				return
			}

			if c != nil {
				if err := c.Set(r.Context(), OnboardingCacheKey(p.Subject), "1", cacheTTL); err != nil {
					slog.Warn("onboarding cache write failed", "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func writeNotAuthenticated(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"success": false,
		"message": "Not authenticated",
	})
}

func writeGateRejection(w http.ResponseWriter, code, message string) {
	writeJSON(w, http.StatusForbidden, map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	})
}

func writeServerError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"message": "Server error",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
