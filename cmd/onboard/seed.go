package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/lekana/onboard/internal/auth"
	"github.com/lekana/onboard/internal/billing"
	"github.com/lekana/onboard/internal/config"
	"github.com/lekana/onboard/internal/identity"
	"github.com/lekana/onboard/internal/onboarding"
	"github.com/lekana/onboard/internal/workspace"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a demo onboarded user with a workspace and subscription",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	userStore := identity.NewStore()
	service := onboarding.NewService(pool, userStore, workspace.NewStore(), billing.NewStore(), nil)

	demo := &auth.Principal{
		Subject:       "auth0|demo-user",
		Email:         "demo@example.com",
		EmailVerified: true,
		Name:          "Demo User",
	}

	// Check if seed has already run.
	existing, err := userStore.Resolve(ctx, pool, demo)
	if err != nil {
		return fmt.Errorf("resolving demo user: %w", err)
	}
	if existing.OnboardingCompleted {
		slog.Info("demo data already exists, skipping seed")
		return nil
	}

	res, err := service.Save(ctx, demo, onboarding.SaveRequest{
		AccountType:  workspace.AccountTypeTeam,
		Name:         "Demo User",
		CompanyName:  "Example Co",
		Role:         "founder",
		TeamEmails:   []string{"teammate-one@example.com", "teammate-two@example.com"},
		PlanID:       "pro",
		BillingCycle: "monthly",
	})
	if err != nil {
		return fmt.Errorf("seeding demo onboarding: %w", err)
	}

	slog.Info("seeded demo user",
		"user_id", res.User.ID,
		"workspace_id", res.Workspace.ID,
		"collaborators", len(res.Collaborators),
	)
	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("Subject:     %s\n", demo.Subject)
	fmt.Printf("Workspace:   %s (%s)\n", res.Workspace.CompanyName, res.Workspace.ID)
	fmt.Printf("Plan:        %s/%s\n", res.Subscription.PlanID, res.Subscription.BillingCycle)
	fmt.Printf("\nTry it with a token minted for %s:\n", demo.Subject)
	fmt.Printf("  curl -H 'Authorization: Bearer <token>' http://localhost:%d/api/onboarding/me\n", cfg.Server.Port)

	return nil
}
