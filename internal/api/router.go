package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lekana/onboard/internal/auth"
	"github.com/lekana/onboard/internal/cache"
	"github.com/lekana/onboard/internal/metrics"
	"github.com/lekana/onboard/internal/storage"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	DB         storage.Querier
	PingDB     func(ctx context.Context) error
	Verifier   auth.TokenVerifier
	Onboarding OnboardingService
	Profiles   LegacyProfileStore
	Lookup     auth.CompletionLookup
	GateCache  cache.Client
	GateTTL    time.Duration
	Sender     VerificationSender
	Metrics    *metrics.Metrics

	AllowedOrigins []string
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(slogRequestLogger)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	verifier := deps.Verifier
	var gateMetrics auth.GateMetrics
	if deps.Metrics != nil {
		verifier = &instrumentedVerifier{inner: deps.Verifier, metrics: deps.Metrics}
		gateMetrics = deps.Metrics
	}

	// Handlers.
	onboardingH := newOnboardingHandler(deps.Onboarding, deps.Metrics)
	account := newAccountHandler(deps.Sender, deps.Metrics)
	profiles := newProfileHandler(deps.DB, deps.Profiles)

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.PingDB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.PingDB(ctx); err != nil {
				slog.Error("health check db ping failed", "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded","db":"down"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Metrics endpoints.
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			deps.Metrics.Registry(), promhttp.HandlerOpts{},
		))
		r.Get("/metrics/summary", deps.Metrics.Handler())
	}

	// Account routes: authenticated only, verification not required (an
	// unverified user must be able to ask for another email).
	r.Route("/auth", func(ar chi.Router) {
		ar.Use(auth.RequireAuth(verifier))
		ar.Post("/resend-verification", account.ResendVerification)
	})

	r.Route("/api", func(ar chi.Router) {
		ar.Use(auth.RequireAuth(verifier))

		ar.Get("/me", account.Me)
		ar.Post("/users/onboarding", profiles.Create)

		// Onboarding routes need authentication only: an unverified user
		// still fills in the form, and the full gate applies to /api/app.
		ar.Route("/onboarding", func(or chi.Router) {
			or.Post("/save", onboardingH.Save)
			or.Get("/me", onboardingH.Me)
		})

		// The full gate: authenticated, verified, onboarded.
		ar.Route("/app", func(gr chi.Router) {
			gr.Use(auth.RequireVerifiedEmail(gateMetrics))
			gr.Use(auth.RequireOnboarded(deps.Lookup, deps.GateCache, deps.GateTTL, gateMetrics))
			gr.Get("/test", account.AppTest)
		})
	})

	return r
}

// instrumentedVerifier counts verification outcomes around the real
// verifier.
type instrumentedVerifier struct {
	inner   auth.TokenVerifier
	metrics *metrics.Metrics
}

func (v *instrumentedVerifier) Verify(ctx context.Context, raw string) (*auth.Principal, error) {
	p, err := v.inner.Verify(ctx, raw)
	if err != nil {
		v.metrics.IncAuthFailure()
		return nil, err
	}
	v.metrics.IncAuthSuccess()
	return p, nil
}

// slogRequestLogger is a simple structured logging middleware using slog.
func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", ww.BytesWritten(),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}
