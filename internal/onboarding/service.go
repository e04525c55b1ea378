// Package onboarding coordinates the one-time onboarding flow: one atomic
// save that reconciles the user, their workspace, its collaborator set and
// an optional subscription, and a mutation-free read of the same shape.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/lekana/onboard/internal/auth"
	"github.com/lekana/onboard/internal/billing"
	"github.com/lekana/onboard/internal/cache"
	"github.com/lekana/onboard/internal/identity"
	"github.com/lekana/onboard/internal/storage"
	"github.com/lekana/onboard/internal/workspace"
)

// ErrNotAuthenticated is returned when Save or Read is called without a
// resolvable principal.
var ErrNotAuthenticated = errors.New("onboarding: not authenticated")

// SaveRequest is the onboarding form payload.
type SaveRequest struct {
	AccountType  string   `json:"accountType"`
	Name         string   `json:"name"`
	CompanyName  string   `json:"companyName"`
	Role         string   `json:"role"`
	TeamEmails   []string `json:"teamEmails"`
	PlanID       string   `json:"planId"`
	BillingCycle string   `json:"billingCycle"`
}

// Result is what both operations return: the user plus whatever related
// records exist. Workspace and Subscription are nil when absent;
// Collaborators is empty, never nil.
type Result struct {
	Completed     bool
	User          *identity.User
	Workspace     *workspace.Workspace
	Collaborators []workspace.Collaborator
	Subscription  *billing.Subscription
}

// DB is the connection handle the service needs: plain queries for reads
// and transactions for saves. *pgxpool.Pool satisfies it.
type DB interface {
	storage.Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UserStore is the identity-resolver dependency.
type UserStore interface {
	Resolve(ctx context.Context, db storage.Querier, p *auth.Principal) (*identity.User, error)
	Complete(ctx context.Context, db storage.Querier, userID, name string) (*identity.User, error)
}

// WorkspaceStore is the workspace-reconciler and collaborator-set
// dependency.
type WorkspaceStore interface {
	Reconcile(ctx context.Context, db storage.Querier, ownerUserID string, in workspace.ReconcileInput) (*workspace.Workspace, error)
	GetByOwner(ctx context.Context, db storage.Querier, ownerUserID string) (*workspace.Workspace, error)
	ReplaceCollaborators(ctx context.Context, db storage.Querier, workspaceID string, emails []string) ([]workspace.Collaborator, error)
	ListCollaborators(ctx context.Context, db storage.Querier, workspaceID string) ([]workspace.Collaborator, error)
}

// SubscriptionStore is the subscription-reconciler dependency.
type SubscriptionStore interface {
	Reconcile(ctx context.Context, db storage.Querier, userID, workspaceID, planID, billingCycle string) (*billing.Subscription, error)
	Get(ctx context.Context, db storage.Querier, userID, workspaceID string) (*billing.Subscription, error)
}

// Service is the onboarding transaction coordinator.
type Service struct {
	db            DB
	users         UserStore
	workspaces    WorkspaceStore
	subscriptions SubscriptionStore
	gateCache     cache.Client
}

// NewService creates the coordinator. gateCache may be nil; when set, Save
// drops the access gate's cached onboarding flag for the subject after a
// successful commit.
func NewService(db DB, users UserStore, workspaces WorkspaceStore, subscriptions SubscriptionStore, gateCache cache.Client) *Service {
	return &Service{
		db:            db,
		users:         users,
		workspaces:    workspaces,
		subscriptions: subscriptions,
		gateCache:     gateCache,
	}
}

// Save runs the five onboarding steps in one transaction: resolve the
// user, reconcile the workspace, replace its collaborators, conditionally
// reconcile the subscription, and mark onboarding complete with the
// form's display name. Any failure rolls the whole thing back; callers
// never observe a partial save.
func (s *Service) Save(ctx context.Context, p *auth.Principal, req SaveRequest) (*Result, error) {
	if p == nil || p.Subject == "" {
		return nil, ErrNotAuthenticated
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning onboarding save: %w", err)
	}
	// No-op after a successful commit; the rollback on every other exit
	// path is what keeps the five tables consistent.
	defer func() { _ = tx.Rollback(ctx) }()

	user, err := s.users.Resolve(ctx, tx, p)
	if err != nil {
		return nil, err
	}

	ws, err := s.workspaces.Reconcile(ctx, tx, user.ID, workspace.ReconcileInput{
		AccountType: req.AccountType,
		Name:        req.Name,
		CompanyName: req.CompanyName,
		Role:        req.Role,
	})
	if err != nil {
		return nil, err
	}

	collaborators, err := s.workspaces.ReplaceCollaborators(ctx, tx, ws.ID, req.TeamEmails)
	if err != nil {
		return nil, err
	}

	sub, err := s.subscriptions.Reconcile(ctx, tx, user.ID, ws.ID, req.PlanID, req.BillingCycle)
	if err != nil {
		return nil, err
	}

	user, err = s.users.Complete(ctx, tx, user.ID, req.Name)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing onboarding save: %w", err)
	}

	if s.gateCache != nil {
		if err := s.gateCache.Delete(ctx, auth.OnboardingCacheKey(p.Subject)); err != nil {
			slog.Warn("dropping onboarding cache entry failed", "subject", p.Subject, "error", err)
		}
	}

	if collaborators == nil {
		collaborators = []workspace.Collaborator{}
	}
	return &Result{
		Completed:     user.OnboardingCompleted,
		User:          user,
		Workspace:     ws,
		Collaborators: collaborators,
		Subscription:  sub,
	}, nil
}

// Read resolves the user (creating one on first contact, the only write
// this path can make) and returns the current onboarding state without
// touching workspace, collaborator or subscription rows.
func (s *Service) Read(ctx context.Context, p *auth.Principal) (*Result, error) {
	if p == nil || p.Subject == "" {
		return nil, ErrNotAuthenticated
	}

	user, err := s.users.Resolve(ctx, s.db, p)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Completed:     user.OnboardingCompleted,
		User:          user,
		Collaborators: []workspace.Collaborator{},
	}

	ws, err := s.workspaces.GetByOwner(ctx, s.db, user.ID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return res, nil
	}
	res.Workspace = ws

	collaborators, err := s.workspaces.ListCollaborators(ctx, s.db, ws.ID)
	if err != nil {
		return nil, err
	}
	if collaborators != nil {
		res.Collaborators = collaborators
	}

	sub, err := s.subscriptions.Get(ctx, s.db, user.ID, ws.ID)
	if err != nil {
		return nil, err
	}
	res.Subscription = sub

	return res, nil
}
