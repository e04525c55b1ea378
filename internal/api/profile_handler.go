package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lekana/onboard/internal/auth"
	"github.com/lekana/onboard/internal/identity"
	"github.com/lekana/onboard/internal/storage"
)

// LegacyProfileStore is the insert-only store behind the old profile
// endpoint.
type LegacyProfileStore interface {
	InsertLegacyProfile(ctx context.Context, db storage.Querier, in identity.LegacyProfile) (*identity.LegacyProfile, error)
}

type profileHandler struct {
	db    storage.Querier
	store LegacyProfileStore
}

func newProfileHandler(db storage.Querier, store LegacyProfileStore) *profileHandler {
	return &profileHandler{db: db, store: store}
}

type legacyProfileRequest struct {
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	CompanyName    string `json:"company_name"`
	CompanySize    string `json:"company_size"`
	JobTitle       string `json:"job_title"`
	DocumentVolume string `json:"document_volume"`
	Industry       string `json:"industry"`
	PhoneNumber    string `json:"phone_number"`
	Country        string `json:"country"`
}

type legacyProfileResponse struct {
	Success bool                    `json:"success"`
	User    *identity.LegacyProfile `json:"user"`
}

// Create handles POST /api/users/onboarding, the pre-workspace profile
// endpoint kept for old clients. Every call appends a row; there is no
// upsert here on purpose.
func (h *profileHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		writeNotAuthenticated(w)
		return
	}

	var req legacyProfileRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := req.Email
	if email == "" {
		email = p.Email
	}

	profile, err := h.store.InsertLegacyProfile(r.Context(), h.db, identity.LegacyProfile{
		Auth0ID:        p.Subject,
		Email:          email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		CompanyName:    req.CompanyName,
		CompanySize:    req.CompanySize,
		JobTitle:       req.JobTitle,
		DocumentVolume: req.DocumentVolume,
		Industry:       req.Industry,
		PhoneNumber:    req.PhoneNumber,
		Country:        req.Country,
	})
	if err != nil {
		slog.Error("inserting legacy profile failed",
			"request_id", RequestIDFromContext(r.Context()),
			"subject", p.Subject,
			"error", err,
		)
		writeServerError(w)
		return
	}

	writeJSON(w, http.StatusCreated, legacyProfileResponse{Success: true, User: profile})
}
