package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lekana/onboard/internal/auth"
	"github.com/lekana/onboard/internal/metrics"
)

// VerificationSender queues a verification email at the identity provider.
type VerificationSender interface {
	SendVerificationEmail(ctx context.Context, subject string) error
}

type accountHandler struct {
	sender  VerificationSender
	metrics *metrics.Metrics
}

func newAccountHandler(sender VerificationSender, m *metrics.Metrics) *accountHandler {
	return &accountHandler{sender: sender, metrics: m}
}

type principalResponse struct {
	Success bool          `json:"success"`
	User    principalInfo `json:"user"`
}

type principalInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	Nickname      string `json:"nickname,omitempty"`
}

// Me handles GET /api/me: echo the verified token claims back to the
// caller. Useful for frontends and for debugging token setup.
func (h *accountHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		writeNotAuthenticated(w)
		return
	}
	writeJSON(w, http.StatusOK, principalResponse{
		Success: true,
		User: principalInfo{
			Subject:       p.Subject,
			Email:         p.Email,
			EmailVerified: p.EmailVerified,
			Name:          p.Name,
			Nickname:      p.Nickname,
		},
	})
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ResendVerification handles POST /auth/resend-verification.
func (h *accountHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		writeNotAuthenticated(w)
		return
	}
	if p.EmailVerified {
		writeFailure(w, http.StatusBadRequest, "Email already verified.")
		return
	}
	if h.sender == nil {
		slog.Error("resend verification requested but no management client configured")
		writeServerError(w)
		return
	}

	if err := h.sender.SendVerificationEmail(r.Context(), p.Subject); err != nil {
		slog.Error("sending verification email failed",
			"request_id", RequestIDFromContext(r.Context()),
			"subject", p.Subject,
			"error", err,
		)
		if h.metrics != nil {
			h.metrics.IncVerificationEmail("error")
		}
		writeServerError(w)
		return
	}
	if h.metrics != nil {
		h.metrics.IncVerificationEmail("ok")
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Verification email sent",
	})
}

// AppTest handles GET /api/app/test, a sample route behind the full access
// gate. Reaching it proves the caller is authenticated, verified and
// onboarded.
func (h *accountHandler) AppTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "You have access to the app",
	})
}
