package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lekana/onboard/internal/storage"
)

const subscriptionColumns = `id, user_id, workspace_id, plan_id, billing_cycle, created_at, updated_at`

// Store provides database operations for subscriptions.
type Store struct{}

// NewStore creates a new subscription store.
func NewStore() *Store {
	return &Store{}
}

// Reconcile upserts the subscription for the (user, workspace) pair. When
// either planID or billingCycle is empty it does nothing and returns nil:
// billing is never touched unless both fields are explicitly supplied, so
// an existing row survives a save that omits them.
func (s *Store) Reconcile(ctx context.Context, db storage.Querier, userID, workspaceID, planID, billingCycle string) (*Subscription, error) {
	if planID == "" || billingCycle == "" {
		return nil, nil
	}

	sub := &Subscription{}
	err := db.QueryRow(ctx,
		`INSERT INTO subscriptions (user_id, workspace_id, plan_id, billing_cycle)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, workspace_id) DO UPDATE
		 SET plan_id       = EXCLUDED.plan_id,
		     billing_cycle = EXCLUDED.billing_cycle,
		     updated_at    = now()
		 RETURNING `+subscriptionColumns,
		userID, workspaceID, planID, billingCycle,
	).Scan(&sub.ID, &sub.UserID, &sub.WorkspaceID, &sub.PlanID, &sub.BillingCycle, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("reconciling subscription: %w", err)
	}
	return sub, nil
}

// Get returns the subscription for the (user, workspace) pair, or nil if
// none exists.
func (s *Store) Get(ctx context.Context, db storage.Querier, userID, workspaceID string) (*Subscription, error) {
	sub := &Subscription{}
	err := db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions WHERE user_id = $1 AND workspace_id = $2`,
		userID, workspaceID,
	).Scan(&sub.ID, &sub.UserID, &sub.WorkspaceID, &sub.PlanID, &sub.BillingCycle, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting subscription: %w", err)
	}
	return sub, nil
}
