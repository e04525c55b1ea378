package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/lekana/onboard/internal/api"
	"github.com/lekana/onboard/internal/auth"
	"github.com/lekana/onboard/internal/billing"
	"github.com/lekana/onboard/internal/cache"
	"github.com/lekana/onboard/internal/config"
	"github.com/lekana/onboard/internal/identity"
	"github.com/lekana/onboard/internal/idp"
	"github.com/lekana/onboard/internal/metrics"
	"github.com/lekana/onboard/internal/onboarding"
	"github.com/lekana/onboard/internal/workspace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the onboarding API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.OIDC.Issuer == "" {
		return fmt.Errorf("oidc.issuer is required to serve")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	gateCache, err := cache.New(cache.Config{
		Driver:   cfg.Cache.Driver,
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	if err != nil {
		return err
	}
	defer gateCache.Close()
	slog.Info("cache ready", "driver", cfg.Cache.Driver)

	m := metrics.New()
	m.RegisterDBPoolCollector(func() (total, idle, acquired int32) {
		st := pool.Stat()
		return st.TotalConns(), st.IdleConns(), st.AcquiredConns()
	})

	userStore := identity.NewStore()
	workspaceStore := workspace.NewStore()
	subscriptionStore := billing.NewStore()
	service := onboarding.NewService(pool, userStore, workspaceStore, subscriptionStore, gateCache)

	verifier := auth.NewVerifier(cfg.OIDC.Issuer, cfg.OIDC.Audience, cfg.ResolvedJWKSURL(), nil)

	var sender api.VerificationSender
	if cfg.OIDC.Management.Domain != "" {
		sender = idp.NewManagementClient(
			cfg.OIDC.Management.Domain,
			cfg.OIDC.Management.ClientID,
			cfg.OIDC.Management.ClientSecret,
			nil,
		)
	} else {
		slog.Warn("no management API configured, resend-verification disabled")
	}

	router := api.NewRouter(api.RouterDeps{
		DB:         pool,
		PingDB:     pool.Ping,
		Verifier:   verifier,
		Onboarding: service,
		Profiles:   userStore,
		Lookup: auth.CompletionLookupFunc(func(ctx context.Context, subject string) (bool, error) {
			return userStore.OnboardingCompleted(ctx, pool, subject)
		}),
		GateCache:      gateCache,
		GateTTL:        cfg.Cache.OnboardingTTL,
		Sender:         sender,
		Metrics:        m,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}
