package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lekana/onboard/internal/auth"
	"github.com/lekana/onboard/internal/identity"
	"github.com/lekana/onboard/internal/onboarding"
	"github.com/lekana/onboard/internal/storage"
	"github.com/lekana/onboard/internal/workspace"
)

type stubVerifier struct {
	principal *auth.Principal
	err       error
}

func (s *stubVerifier) Verify(_ context.Context, _ string) (*auth.Principal, error) {
	return s.principal, s.err
}

type stubService struct {
	saveResult *onboarding.Result
	saveErr    error
	readResult *onboarding.Result
	readErr    error
	lastSave   onboarding.SaveRequest
}

func (s *stubService) Save(_ context.Context, p *auth.Principal, req onboarding.SaveRequest) (*onboarding.Result, error) {
	if p == nil {
		return nil, onboarding.ErrNotAuthenticated
	}
	s.lastSave = req
	return s.saveResult, s.saveErr
}

func (s *stubService) Read(_ context.Context, p *auth.Principal) (*onboarding.Result, error) {
	if p == nil {
		return nil, onboarding.ErrNotAuthenticated
	}
	return s.readResult, s.readErr
}

type stubProfiles struct {
	inserted *identity.LegacyProfile
	err      error
}

func (s *stubProfiles) InsertLegacyProfile(_ context.Context, _ storage.Querier, in identity.LegacyProfile) (*identity.LegacyProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := in
	out.ID = "lp-1"
	out.CreatedAt = time.Now()
	s.inserted = &out
	return &out, nil
}

type stubSender struct {
	subjects []string
	err      error
}

func (s *stubSender) SendVerificationEmail(_ context.Context, subject string) error {
	if s.err != nil {
		return s.err
	}
	s.subjects = append(s.subjects, subject)
	return nil
}

func verifiedPrincipal() *auth.Principal {
	return &auth.Principal{Subject: "auth0|1", Email: "u@test.com", EmailVerified: true, Name: "Ada"}
}

type routerOpts struct {
	verifier  *stubVerifier
	svc       *stubService
	profiles  *stubProfiles
	sender    *stubSender
	completed bool
	pingErr   error
	ping      bool
}

func newTestRouter(opts routerOpts) http.Handler {
	if opts.verifier == nil {
		opts.verifier = &stubVerifier{principal: verifiedPrincipal()}
	}
	if opts.svc == nil {
		opts.svc = &stubService{}
	}
	if opts.profiles == nil {
		opts.profiles = &stubProfiles{}
	}

	deps := RouterDeps{
		Verifier:   opts.verifier,
		Onboarding: opts.svc,
		Profiles:   opts.profiles,
		Lookup: auth.CompletionLookupFunc(func(_ context.Context, _ string) (bool, error) {
			return opts.completed, nil
		}),
		GateTTL: time.Minute,
		Sender:  opts.sender,
	}
	if opts.ping {
		deps.PingDB = func(_ context.Context) error { return opts.pingErr }
	}
	return NewRouter(deps)
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return body
}

func TestHealthOK(t *testing.T) {
	h := newTestRouter(routerOpts{ping: true})

	rec := doRequest(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeJSON(t, rec); body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestHealthDegradedWhenDBDown(t *testing.T) {
	h := newTestRouter(routerOpts{ping: true, pingErr: errors.New("connection refused")})

	rec := doRequest(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	h := newTestRouter(routerOpts{ping: true})

	rec := doRequest(t, h, http.MethodGet, "/health", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestSaveHappyPath(t *testing.T) {
	name := "Ada"
	svc := &stubService{
		saveResult: &onboarding.Result{
			Completed:     true,
			User:          &identity.User{ID: "u-1", Subject: "auth0|1", Email: "u@test.com", Name: &name, OnboardingCompleted: true},
			Workspace:     &workspace.Workspace{ID: "w-1", OwnerUserID: "u-1", AccountType: workspace.AccountTypeTeam},
			Collaborators: []workspace.Collaborator{{ID: "c-1", WorkspaceID: "w-1", Email: "a@b.co"}},
		},
	}
	h := newTestRouter(routerOpts{svc: svc})

	body := `{"accountType":"team","name":"Ada","companyName":"Acme","teamEmails":["a@b.co"],"planId":"pro","billingCycle":"monthly"}`
	rec := doRequest(t, h, http.MethodPost, "/api/onboarding/save", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got := decodeJSON(t, rec)
	if got["success"] != true {
		t.Errorf("expected success=true, got %v", got["success"])
	}
	if got["subscription"] != nil {
		t.Errorf("expected null subscription, got %v", got["subscription"])
	}
	if _, ok := got["collaborators"].([]any); !ok {
		t.Errorf("expected collaborators array, got %T", got["collaborators"])
	}
	if svc.lastSave.PlanID != "pro" || svc.lastSave.BillingCycle != "monthly" {
		t.Errorf("request not forwarded to service: %+v", svc.lastSave)
	}
}

func TestSaveRejectsInvalidBody(t *testing.T) {
	h := newTestRouter(routerOpts{})

	rec := doRequest(t, h, http.MethodPost, "/api/onboarding/save", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSaveServiceErrorIsGeneric500(t *testing.T) {
	svc := &stubService{saveErr: errors.New("pq: relation users does not exist")}
	h := newTestRouter(routerOpts{svc: svc})

	rec := doRequest(t, h, http.MethodPost, "/api/onboarding/save", `{}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	got := decodeJSON(t, rec)
	if got["message"] != "Server error" {
		t.Errorf("expected generic message, got %v", got["message"])
	}
	if strings.Contains(rec.Body.String(), "relation") {
		t.Error("internal error detail leaked to the client")
	}
}

func TestSaveWithoutTokenIs401(t *testing.T) {
	h := newTestRouter(routerOpts{})

	req := httptest.NewRequest(http.MethodPost, "/api/onboarding/save", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	got := decodeJSON(t, rec)
	if got["message"] != "Not authenticated" {
		t.Errorf("expected Not authenticated, got %v", got["message"])
	}
}

func TestOnboardingMeIncludesCompletionFlag(t *testing.T) {
	svc := &stubService{
		readResult: &onboarding.Result{
			Completed:     false,
			User:          &identity.User{ID: "u-1", Subject: "auth0|1"},
			Collaborators: []workspace.Collaborator{},
		},
	}
	h := newTestRouter(routerOpts{svc: svc})

	rec := doRequest(t, h, http.MethodGet, "/api/onboarding/me", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decodeJSON(t, rec)
	if v, ok := got["onboardingCompleted"].(bool); !ok || v {
		t.Errorf("expected onboardingCompleted=false, got %v", got["onboardingCompleted"])
	}
	if got["workspace"] != nil {
		t.Errorf("expected null workspace before onboarding, got %v", got["workspace"])
	}
}

func TestOnboardingAllowsUnverifiedEmail(t *testing.T) {
	// Onboarding only needs authentication; the verified-email check
	// belongs to the /api/app gate, not here.
	v := &stubVerifier{principal: &auth.Principal{Subject: "auth0|1", Email: "u@test.com", EmailVerified: false}}
	svc := &stubService{
		saveResult: &onboarding.Result{
			User:          &identity.User{ID: "u-1", Subject: "auth0|1"},
			Workspace:     &workspace.Workspace{ID: "w-1", OwnerUserID: "u-1"},
			Collaborators: []workspace.Collaborator{},
		},
	}
	h := newTestRouter(routerOpts{verifier: v, svc: svc})

	rec := doRequest(t, h, http.MethodPost, "/api/onboarding/save", `{"accountType":"individual"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unverified principal, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeJSON(t, rec); got["success"] != true {
		t.Errorf("expected success=true, got %v", got["success"])
	}
}

func TestAppGateRejectsUnverifiedEmail(t *testing.T) {
	v := &stubVerifier{principal: &auth.Principal{Subject: "auth0|1", Email: "u@test.com", EmailVerified: false}}
	h := newTestRouter(routerOpts{verifier: v, completed: true})

	rec := doRequest(t, h, http.MethodGet, "/api/app/test", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	got := decodeJSON(t, rec)
	if got["error"] != auth.CodeEmailNotVerified {
		t.Errorf("expected %s, got %v", auth.CodeEmailNotVerified, got["error"])
	}
}

func TestAppGateBlocksUntilOnboarded(t *testing.T) {
	h := newTestRouter(routerOpts{completed: false})

	rec := doRequest(t, h, http.MethodGet, "/api/app/test", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	got := decodeJSON(t, rec)
	if got["error"] != auth.CodeOnboardingRequired {
		t.Errorf("expected %s, got %v", auth.CodeOnboardingRequired, got["error"])
	}
}

func TestAppGatePassesOnboardedUser(t *testing.T) {
	h := newTestRouter(routerOpts{completed: true})

	rec := doRequest(t, h, http.MethodGet, "/api/app/test", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMeEchoesPrincipal(t *testing.T) {
	h := newTestRouter(routerOpts{})

	rec := doRequest(t, h, http.MethodGet, "/api/me", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decodeJSON(t, rec)
	user, ok := got["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user object, got %T", got["user"])
	}
	if user["sub"] != "auth0|1" || user["email_verified"] != true {
		t.Errorf("unexpected principal echo: %v", user)
	}
}

func unverifiedVerifier() *stubVerifier {
	return &stubVerifier{principal: &auth.Principal{Subject: "auth0|1", Email: "u@test.com", EmailVerified: false}}
}

func TestResendVerification(t *testing.T) {
	sender := &stubSender{}
	h := newTestRouter(routerOpts{verifier: unverifiedVerifier(), sender: sender})

	rec := doRequest(t, h, http.MethodPost, "/auth/resend-verification", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(sender.subjects) != 1 || sender.subjects[0] != "auth0|1" {
		t.Errorf("expected one job for auth0|1, got %v", sender.subjects)
	}
}

func TestResendVerificationAlreadyVerified(t *testing.T) {
	sender := &stubSender{}
	h := newTestRouter(routerOpts{sender: sender})

	rec := doRequest(t, h, http.MethodPost, "/auth/resend-verification", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeJSON(t, rec)
	if got["message"] != "Email already verified." {
		t.Errorf("unexpected message %v", got["message"])
	}
	if len(sender.subjects) != 0 {
		t.Errorf("no job should be queued for a verified email, got %v", sender.subjects)
	}
}

func TestResendVerificationProviderError(t *testing.T) {
	sender := &stubSender{err: errors.New("rate limited")}
	h := newTestRouter(routerOpts{verifier: unverifiedVerifier(), sender: sender})

	rec := doRequest(t, h, http.MethodPost, "/auth/resend-verification", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestLegacyProfileInsert(t *testing.T) {
	profiles := &stubProfiles{}
	h := newTestRouter(routerOpts{profiles: profiles})

	body := `{"first_name":"Ada","last_name":"L","company_name":"Acme","country":"UK"}`
	rec := doRequest(t, h, http.MethodPost, "/api/users/onboarding", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if profiles.inserted == nil {
		t.Fatal("expected a profile insert")
	}
	if profiles.inserted.Auth0ID != "auth0|1" {
		t.Errorf("expected subject from token, got %q", profiles.inserted.Auth0ID)
	}
	// Body omitted the email, so the token's email fills in.
	if profiles.inserted.Email != "u@test.com" {
		t.Errorf("expected token email fallback, got %q", profiles.inserted.Email)
	}
}
