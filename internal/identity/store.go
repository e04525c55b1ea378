package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lekana/onboard/internal/auth"
	"github.com/lekana/onboard/internal/storage"
)

const userColumns = `id, subject, email, name, onboarding_completed, created_at, updated_at`

// Store provides database operations for users.
type Store struct{}

// NewStore creates a new user store. Methods take an explicit Querier so
// they run against the pool or inside the onboarding transaction alike.
func NewStore() *Store {
	return &Store{}
}

func scanUser(scan func(dest ...any) error) (*User, error) {
	u := &User{}
	err := scan(&u.ID, &u.Subject, &u.Email, &u.Name, &u.OnboardingCompleted, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Resolve finds the user for the given principal by subject, creating one
// with onboarding_completed=false on first sight. An existing row is
// returned unchanged; provider profile fields are never synced here.
//
// Two concurrent first logins for one subject race on the insert; the
// loser's ON CONFLICT DO NOTHING returns no row and the winner's row is
// re-read, so both calls resolve to the same user.
func (s *Store) Resolve(ctx context.Context, db storage.Querier, p *auth.Principal) (*User, error) {
	u, err := s.getBySubject(ctx, db, p.Subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("resolving user: %w", err)
	}

	u, err = scanUser(func(dest ...any) error {
		return db.QueryRow(ctx,
			`INSERT INTO users (subject, email, name, onboarding_completed)
			 VALUES ($1, $2, $3, FALSE)
			 ON CONFLICT (subject) DO NOTHING
			 RETURNING `+userColumns,
			p.Subject, p.Email, nullIfEmpty(p.DisplayName()),
		).Scan(dest...)
	})
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	// Lost the insert race; the row exists now.
	u, err = s.getBySubject(ctx, db, p.Subject)
	if err != nil {
		return nil, fmt.Errorf("re-reading user after insert conflict: %w", err)
	}
	return u, nil
}

func (s *Store) getBySubject(ctx context.Context, db storage.Querier, subject string) (*User, error) {
	return scanUser(func(dest ...any) error {
		return db.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE subject = $1`, subject,
		).Scan(dest...)
	})
}

// Complete marks onboarding finished and syncs the display name from the
// submitted form value. The form, not the provider profile, is
// authoritative for the name here.
func (s *Store) Complete(ctx context.Context, db storage.Querier, userID, name string) (*User, error) {
	u, err := scanUser(func(dest ...any) error {
		return db.QueryRow(ctx,
			`UPDATE users
			 SET onboarding_completed = TRUE, name = $2, updated_at = now()
			 WHERE id = $1
			 RETURNING `+userColumns,
			userID, nullIfEmpty(name),
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("completing onboarding: %w", err)
	}
	return u, nil
}

// OnboardingCompleted reports whether the user identified by subject has
// finished onboarding. A missing row reads as false, not as an error.
func (s *Store) OnboardingCompleted(ctx context.Context, db storage.Querier, subject string) (bool, error) {
	var completed bool
	err := db.QueryRow(ctx,
		`SELECT onboarding_completed FROM users WHERE subject = $1`, subject,
	).Scan(&completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up onboarding flag: %w", err)
	}
	return completed, nil
}

// InsertLegacyProfile appends a row for the old profile endpoint. Insert
// only; nothing in the onboarding flow reads this table.
func (s *Store) InsertLegacyProfile(ctx context.Context, db storage.Querier, in LegacyProfile) (*LegacyProfile, error) {
	p := &LegacyProfile{}
	err := db.QueryRow(ctx,
		`INSERT INTO legacy_profiles
		 (auth0_id, email, first_name, last_name, company_name, company_size,
		  job_title, document_volume, industry, phone_number, country)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, auth0_id, email, first_name, last_name, company_name,
		           company_size, job_title, document_volume, industry,
		           phone_number, country, created_at`,
		in.Auth0ID, in.Email, in.FirstName, in.LastName, in.CompanyName,
		in.CompanySize, in.JobTitle, in.DocumentVolume, in.Industry,
		in.PhoneNumber, in.Country,
	).Scan(&p.ID, &p.Auth0ID, &p.Email, &p.FirstName, &p.LastName,
		&p.CompanyName, &p.CompanySize, &p.JobTitle, &p.DocumentVolume,
		&p.Industry, &p.PhoneNumber, &p.Country, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting legacy profile: %w", err)
	}
	return p, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
