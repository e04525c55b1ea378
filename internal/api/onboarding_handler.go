package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lekana/onboard/internal/auth"
	"github.com/lekana/onboard/internal/billing"
	"github.com/lekana/onboard/internal/identity"
	"github.com/lekana/onboard/internal/metrics"
	"github.com/lekana/onboard/internal/onboarding"
	"github.com/lekana/onboard/internal/workspace"
)

// OnboardingService is the coordinator surface the handlers need.
type OnboardingService interface {
	Save(ctx context.Context, p *auth.Principal, req onboarding.SaveRequest) (*onboarding.Result, error)
	Read(ctx context.Context, p *auth.Principal) (*onboarding.Result, error)
}

type onboardingHandler struct {
	svc     OnboardingService
	metrics *metrics.Metrics
}

func newOnboardingHandler(svc OnboardingService, m *metrics.Metrics) *onboardingHandler {
	return &onboardingHandler{svc: svc, metrics: m}
}

type saveResponse struct {
	Success       bool                     `json:"success"`
	User          *identity.User           `json:"user"`
	Workspace     *workspace.Workspace     `json:"workspace"`
	Collaborators []workspace.Collaborator `json:"collaborators"`
	Subscription  *billing.Subscription    `json:"subscription"`
}

type meResponse struct {
	Success             bool                     `json:"success"`
	OnboardingCompleted bool                     `json:"onboardingCompleted"`
	User                *identity.User           `json:"user"`
	Workspace           *workspace.Workspace     `json:"workspace"`
	Collaborators       []workspace.Collaborator `json:"collaborators"`
	Subscription        *billing.Subscription    `json:"subscription"`
}

// Save handles POST /api/onboarding/save.
func (h *onboardingHandler) Save(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	var req onboarding.SaveRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	start := time.Now()
	res, err := h.svc.Save(r.Context(), p, req)
	if err != nil {
		if errors.Is(err, onboarding.ErrNotAuthenticated) {
			writeNotAuthenticated(w)
			return
		}
		slog.Error("onboarding save failed",
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		if h.metrics != nil {
			h.metrics.IncOnboardingSave("error")
		}
		writeServerError(w)
		return
	}
	if h.metrics != nil {
		h.metrics.IncOnboardingSave("ok")
		h.metrics.ObserveSaveDuration(time.Since(start).Seconds())
	}

	writeJSON(w, http.StatusOK, saveResponse{
		Success:       true,
		User:          res.User,
		Workspace:     res.Workspace,
		Collaborators: res.Collaborators,
		Subscription:  res.Subscription,
	})
}

// Me handles GET /api/onboarding/me.
func (h *onboardingHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	res, err := h.svc.Read(r.Context(), p)
	if err != nil {
		if errors.Is(err, onboarding.ErrNotAuthenticated) {
			writeNotAuthenticated(w)
			return
		}
		slog.Error("onboarding read failed",
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeServerError(w)
		return
	}
	if h.metrics != nil {
		h.metrics.IncOnboardingRead()
	}

	writeJSON(w, http.StatusOK, meResponse{
		Success:             true,
		OnboardingCompleted: res.Completed,
		User:                res.User,
		Workspace:           res.Workspace,
		Collaborators:       res.Collaborators,
		Subscription:        res.Subscription,
	})
}
