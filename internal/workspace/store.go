package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lekana/onboard/internal/storage"
)

const workspaceColumns = `id, owner_user_id, account_type, name, company_name, role, created_at, updated_at`

// Store provides database operations for workspaces and collaborators.
type Store struct{}

// NewStore creates a new workspace store.
func NewStore() *Store {
	return &Store{}
}

func scanWorkspace(scan func(dest ...any) error) (*Workspace, error) {
	w := &Workspace{}
	err := scan(&w.ID, &w.OwnerUserID, &w.AccountType, &w.Name, &w.CompanyName, &w.Role, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Reconcile upserts the single workspace owned by ownerUserID with the
// given fields. The upsert is one atomic statement keyed on the
// owner_user_id unique constraint, so concurrent saves cannot both insert;
// the row lock it takes also serializes the rest of the save for this
// owner until the transaction ends.
func (s *Store) Reconcile(ctx context.Context, db storage.Querier, ownerUserID string, in ReconcileInput) (*Workspace, error) {
	w, err := scanWorkspace(func(dest ...any) error {
		return db.QueryRow(ctx,
			`INSERT INTO workspaces (owner_user_id, account_type, name, company_name, role)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (owner_user_id) DO UPDATE
			 SET account_type = EXCLUDED.account_type,
			     name         = EXCLUDED.name,
			     company_name = EXCLUDED.company_name,
			     role         = EXCLUDED.role,
			     updated_at   = now()
			 RETURNING `+workspaceColumns,
			ownerUserID, in.AccountType, in.Name, in.CompanyName, in.Role,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("reconciling workspace: %w", err)
	}
	return w, nil
}

// GetByOwner returns the workspace owned by ownerUserID, or nil if the
// user has none yet.
func (s *Store) GetByOwner(ctx context.Context, db storage.Querier, ownerUserID string) (*Workspace, error) {
	w, err := scanWorkspace(func(dest ...any) error {
		return db.QueryRow(ctx,
			`SELECT `+workspaceColumns+` FROM workspaces WHERE owner_user_id = $1`, ownerUserID,
		).Scan(dest...)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting workspace by owner: %w", err)
	}
	return w, nil
}

// ReplaceCollaborators swaps the workspace's entire collaborator set for
// the given emails: every prior row is deleted, then one row is inserted
// per non-empty trimmed entry in input order. An empty or absent list
// clears the set. Duplicates are stored as submitted.
func (s *Store) ReplaceCollaborators(ctx context.Context, db storage.Querier, workspaceID string, emails []string) ([]Collaborator, error) {
	if _, err := db.Exec(ctx,
		`DELETE FROM collaborators WHERE workspace_id = $1`, workspaceID,
	); err != nil {
		return nil, fmt.Errorf("clearing collaborators: %w", err)
	}

	collaborators := []Collaborator{}
	for _, email := range NormalizeEmails(emails) {
		c := Collaborator{}
		err := db.QueryRow(ctx,
			`INSERT INTO collaborators (workspace_id, email)
			 VALUES ($1, $2)
			 RETURNING id, workspace_id, email, created_at`,
			workspaceID, email,
		).Scan(&c.ID, &c.WorkspaceID, &c.Email, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("inserting collaborator: %w", err)
		}
		collaborators = append(collaborators, c)
	}
	return collaborators, nil
}

// ListCollaborators returns the workspace's collaborators in insertion
// order.
func (s *Store) ListCollaborators(ctx context.Context, db storage.Querier, workspaceID string) ([]Collaborator, error) {
	rows, err := db.Query(ctx,
		`SELECT id, workspace_id, email, created_at
		 FROM collaborators WHERE workspace_id = $1
		 ORDER BY created_at, id`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("listing collaborators: %w", err)
	}
	defer rows.Close()

	collaborators := []Collaborator{}
	for rows.Next() {
		c := Collaborator{}
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.Email, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning collaborator row: %w", err)
		}
		collaborators = append(collaborators, c)
	}
	return collaborators, rows.Err()
}
