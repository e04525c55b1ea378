package workspace

import "time"

// Account types persisted as given; validation, if any, belongs to the
// request layer.
const (
	AccountTypeIndividual = "individual"
	AccountTypeTeam       = "team"
)

// Workspace is the organizational unit a user configures during
// onboarding. At most one exists per owning user.
type Workspace struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"owner_user_id"`
	AccountType string    `json:"account_type"`
	Name        string    `json:"name"`
	CompanyName string    `json:"company_name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Collaborator is an invited team-member email scoped to one workspace.
// The live set always equals the most recently submitted list.
type Collaborator struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReconcileInput holds the workspace fields taken from the onboarding form.
type ReconcileInput struct {
	AccountType string
	Name        string
	CompanyName string
	Role        string
}
