package billing

import "time"

// Subscription is the billing selection made during onboarding. At most
// one exists per (user, workspace) pair, and it is only ever written when
// both plan and cycle are supplied.
type Subscription struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	WorkspaceID  string    `json:"workspace_id"`
	PlanID       string    `json:"plan_id"`
	BillingCycle string    `json:"billing_cycle"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
