package identity

import "time"

// User is the local profile anchored to an identity-provider subject.
// Exactly one row exists per subject; rows are created on first resolution
// and never deleted by this service.
type User struct {
	ID                  string    `json:"id"`
	Subject             string    `json:"subject"`
	Email               string    `json:"email"`
	Name                *string   `json:"name"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// LegacyProfile is the row shape of the old insert-only profile endpoint.
// The wire field names are fixed by external callers.
type LegacyProfile struct {
	ID             string    `json:"id"`
	Auth0ID        string    `json:"auth0_id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	CompanyName    string    `json:"company_name"`
	CompanySize    string    `json:"company_size"`
	JobTitle       string    `json:"job_title"`
	DocumentVolume string    `json:"document_volume"`
	Industry       string    `json:"industry"`
	PhoneNumber    string    `json:"phone_number"`
	Country        string    `json:"country"`
	CreatedAt      time.Time `json:"created_at"`
}
