package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jjenkins/publiccomment/internal/auth"
	"github.com/jjenkins/publiccomment/internal/model"
	"github.com/jjenkins/publiccomment/internal/service"
	"github.com/jjenkins/publiccomment/internal/service/servicetest"
)

type testServer struct {
	app       *fiber.App
	active    *model.Rulemaking
	closed    *model.Rulemaking
	drafter   *servicetest.Drafter
	scheduler *servicetest.Scheduler
	tokens    *auth.Tokens
	admins    *service.AdminService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()

	active := &model.Rulemaking{
		Agency:             "CFPB",
		Title:              "Supervisory Designation",
		DocketID:           "CFPB-2025-0018",
		FederalRegisterURL: "https://www.regulations.gov/docket/CFPB-2025-0018",
		CommentDeadline:    model.NewDate(time.Now().AddDate(0, 1, 0)),
		Status:             model.RulemakingActive,
	}
	closed := &model.Rulemaking{
		Agency:          "CFPB",
		Title:           "Old Rule",
		DocketID:        "CFPB-2020-0001",
		CommentDeadline: model.NewDate(time.Now().AddDate(0, -1, 0)),
		Status:          model.RulemakingActive,
	}

	rulemakingRepo := servicetest.NewRulemakings(active, closed)
	submissionRepo := servicetest.NewSubmissions(rulemakingRepo)
	drafter := &servicetest.Drafter{Text: "Dear CFPB,\n\nI oppose this rule."}
	scheduler := &servicetest.Scheduler{}

	tokens, err := auth.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)

	admins := service.NewAdminService(servicetest.NewAdmins(), bcrypt.MinCost, logger)
	_, err = admins.Create(context.Background(), service.CreateAdminRequest{
		Email: "ops@example.gov", Password: "correct-horse", Name: "Ops",
	})
	require.NoError(t, err)

	deps := Deps{
		Rulemakings: service.NewRulemakingService(rulemakingRepo, logger),
		Submissions: service.NewSubmissionService(rulemakingRepo, submissionRepo, drafter, &servicetest.Verifier{}, scheduler, logger),
		Analytics:   service.NewAnalyticsService(submissionRepo, servicetest.NewAnalytics(), logger),
		Admins:      admins,
		Tokens:      tokens,
	}

	app := NewApp(Options{
		Env:       "test",
		ClientURL: "http://localhost:3000",
		Logger:    logger,
	}, deps)

	return &testServer{
		app:       app,
		active:    active,
		closed:    closed,
		drafter:   drafter,
		scheduler: scheduler,
		tokens:    tokens,
		admins:    admins,
	}
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/auth/admin/login", "", map[string]string{
		"email": "ops@example.gov", "password": "correct-horse",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var out struct {
		Token string             `json:"token"`
		User  model.AdminProfile `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (s *testServer) do(t *testing.T, method, path, token string, payload any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestCommentLifecycle(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/comments/generate", "", map[string]string{
		"rulemaking_id":   s.active.ID,
		"user_name":       "Jane Doe",
		"user_state":      "OH",
		"recaptcha_token": "token",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var created struct {
		SubmissionID     string `json:"submission_id"`
		GeneratedComment string `json:"generated_comment"`
		Rulemaking       struct {
			DocketID        string `json:"docket_id"`
			CommentDeadline string `json:"comment_deadline"`
		} `json:"rulemaking"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "Dear CFPB,\n\nI oppose this rule.", created.GeneratedComment)
	assert.Equal(t, "CFPB-2025-0018", created.Rulemaking.DocketID)
	assert.Equal(t, s.active.CommentDeadline.String(), created.Rulemaking.CommentDeadline)

	// public read is sanitized
	resp, body = s.do(t, http.MethodGet, "/comments/"+created.SubmissionID, "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	sub := decode(t, body)["submission"].(map[string]any)
	assert.Equal(t, "draft", sub["submission_status"])
	assert.NotContains(t, sub, "ip_address")
	assert.NotContains(t, sub, "user_agent")

	resp, body = s.do(t, http.MethodPut, "/comments/"+created.SubmissionID, "", map[string]string{
		"final_comment":     "My final letter",
		"submission_status": "submitted",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, map[string]any{
		"message":       "Comment updated successfully",
		"submission_id": created.SubmissionID,
	}, decode(t, body))
	require.Len(t, s.scheduler.Calls(), 1)
	assert.Equal(t, s.active.ID, s.scheduler.Calls()[0].RulemakingID)

	// the admin view keeps request metadata
	token := s.adminToken(t)
	resp, body = s.do(t, http.MethodGet, "/submissions/"+created.SubmissionID, token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	sub = decode(t, body)["submission"].(map[string]any)
	assert.Equal(t, "submitted", sub["submission_status"])
	assert.Equal(t, "My final letter", sub["final_comment"])
	assert.NotEmpty(t, sub["submitted_at"])
	assert.Contains(t, sub, "ip_address")

	resp, body = s.do(t, http.MethodGet, "/comments/"+created.SubmissionID+"/letter", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/html")
	assert.Contains(t, string(body), "<p>My final letter</p>")
}

func TestGenerateRejections(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/comments/generate", "", map[string]string{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	out := decode(t, body)
	assert.Equal(t, "Validation failed", out["error"])
	assert.Len(t, out["details"], 3)
	assert.NotEmpty(t, out["timestamp"])

	resp, body = s.do(t, http.MethodPost, "/comments/generate", "", map[string]string{
		"rulemaking_id": "missing", "user_name": "Jane", "recaptcha_token": "t",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Rulemaking not found", decode(t, body)["error"])

	resp, body = s.do(t, http.MethodPost, "/comments/generate", "", map[string]string{
		"rulemaking_id": s.closed.ID, "user_name": "Jane", "recaptcha_token": "t",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "This rulemaking is no longer accepting comments", decode(t, body)["error"])

	s.drafter.Err = service.ErrGenerationFailed
	resp, body = s.do(t, http.MethodPost, "/comments/generate", "", map[string]string{
		"rulemaking_id": s.active.ID, "user_name": "Jane", "recaptcha_token": "t",
	})
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "AI Service Error", decode(t, body)["error"])

	req := httptest.NewRequest(http.MethodPost, "/comments/generate", strings.NewReader("{"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	raw, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, raw.StatusCode)
}

func TestFinalizeRejections(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPut, "/comments/nope", "", map[string]string{"final_comment": "x"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Submission not found", decode(t, body)["error"])

	resp, _ = s.do(t, http.MethodPut, "/comments/nope", "", map[string]string{"final_comment": "  "})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/comments/generate", "", map[string]string{
		"rulemaking_id": s.active.ID, "user_name": "Jane", "recaptcha_token": "t",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	id := decode(t, body)["submission_id"].(string)

	for name, payload := range map[string]any{
		"empty body":   map[string]any{},
		"null comment": map[string]any{"final_comment": nil, "status": "submitted"},
	} {
		t.Run(name, func(t *testing.T) {
			resp, body := s.do(t, http.MethodPut, "/comments/"+id, "", payload)
			require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, string(body))
			out := decode(t, body)
			assert.Equal(t, "Validation failed", out["error"])
			assert.Contains(t, string(body), "Final comment is required")

			resp, body = s.do(t, http.MethodGet, "/comments/"+id, "", nil)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			sub := decode(t, body)["submission"].(map[string]any)
			assert.Equal(t, "draft", sub["submission_status"])
			assert.Empty(t, sub["final_comment"])
		})
	}
	assert.Empty(t, s.scheduler.Calls())
}

func TestAdminGate(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodGet, "/submissions", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Access token required", decode(t, body)["error"])

	resp, body = s.do(t, http.MethodGet, "/submissions", "bm90LWEtand0", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Invalid token", decode(t, body)["error"])

	other, err := auth.NewTokens("another-secret", time.Hour)
	require.NoError(t, err)
	forged, err := other.Issue(model.AdminProfile{ID: "x", Email: "x@example.gov"})
	require.NoError(t, err)
	resp, _ = s.do(t, http.MethodPost, "/rulemakings", forged, map[string]string{})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/auth/admin/login", "", map[string]string{
		"email": "ops@example.gov", "password": "wrong-password",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", decode(t, body)["error"])

	resp, body = s.do(t, http.MethodPost, "/auth/admin/logout", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode(t, body)["success"])
}

func TestAdminGateRevokedAccounts(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	ops, err := s.admins.GetByEmail(ctx, "ops@example.gov")
	require.NoError(t, err)
	token := s.adminToken(t)

	resp, _ := s.do(t, http.MethodGet, "/submissions", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	inactive := false
	_, err = s.admins.Update(ctx, ops.ID, model.AdminUpdate{IsActive: &inactive})
	require.NoError(t, err)

	resp, body := s.do(t, http.MethodGet, "/submissions", token, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Invalid token", decode(t, body)["error"])

	active := true
	_, err = s.admins.Update(ctx, ops.ID, model.AdminUpdate{IsActive: &active})
	require.NoError(t, err)
	resp, _ = s.do(t, http.MethodGet, "/admin/admins", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NoError(t, s.admins.Delete(ctx, ops.ID))
	resp, body = s.do(t, http.MethodGet, "/admin/admins", token, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Invalid token", decode(t, body)["error"])
}

func TestRulemakingRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.adminToken(t)

	resp, body := s.do(t, http.MethodGet, "/rulemakings", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode(t, body)["rulemakings"], 2, "listing filters on status, not deadline")

	resp, body = s.do(t, http.MethodGet, "/rulemakings/missing", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Rulemaking not found", decode(t, body)["error"])

	resp, body = s.do(t, http.MethodPost, "/rulemakings", token, map[string]string{
		"agency": "EPA", "title": "Clean Water", "docket_id": "EPA-1", "comment_deadline": "2030-01-31",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	created := decode(t, body)["rulemaking"].(map[string]any)
	assert.Equal(t, "active", created["status"])
	id := created["id"].(string)

	resp, body = s.do(t, http.MethodPost, "/rulemakings", token, map[string]string{
		"agency": "EPA", "title": "Clean Water", "docket_id": "EPA-2", "comment_deadline": "soon", "status": "open",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Len(t, decode(t, body)["details"], 2)

	resp, body = s.do(t, http.MethodPut, "/rulemakings/"+id, token, map[string]string{"status": "closed"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "closed", decode(t, body)["rulemaking"].(map[string]any)["status"])

	resp, body = s.do(t, http.MethodGet, "/rulemakings/"+s.active.ID+"/analytics?startDate=2024-01-01", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	analytics := decode(t, body)["analytics"].(map[string]any)
	assert.Equal(t, "2024-01-01", analytics["start_date"])

	resp, _ = s.do(t, http.MethodGet, "/rulemakings/"+s.active.ID+"/analytics?endDate=nope", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmissionAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.adminToken(t)

	for _, name := range []string{"Ana", "Ben, Jr."} {
		resp, body := s.do(t, http.MethodPost, "/comments/generate", "", map[string]string{
			"rulemaking_id": s.active.ID, "user_name": name, "user_state": "OH", "recaptcha_token": "t",
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	}

	resp, body := s.do(t, http.MethodGet, "/submissions?limit=1", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	subs := decode(t, body)["submissions"].([]any)
	require.Len(t, subs, 1)
	assert.NotContains(t, subs[0], "ip_address")

	resp, body = s.do(t, http.MethodGet, "/submissions/stats?rulemaking_id="+s.active.ID, token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	stats := decode(t, body)["stats"].(map[string]any)
	assert.Equal(t, float64(2), stats["total_submissions"])
	assert.Equal(t, float64(1), stats["states_represented"])

	resp, body = s.do(t, http.MethodGet, "/submissions/export?format=csv", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get(fiber.HeaderContentType))
	assert.Regexp(t, `^attachment; filename="submissions_\d{4}-\d{2}-\d{2}\.csv"$`, resp.Header.Get(fiber.HeaderContentDisposition))
	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, service.ExportColumns, records[0])

	resp, body = s.do(t, http.MethodGet, "/submissions/export", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode(t, body)["submissions"], 2)

	resp, _ = s.do(t, http.MethodGet, "/submissions/export?format=xml", token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAdminManagementRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.adminToken(t)

	resp, body := s.do(t, http.MethodPost, "/admin/admins", token, map[string]string{
		"email": "new@example.gov", "password": "long-enough", "name": "New",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	admin := decode(t, body)["admin"].(map[string]any)
	assert.NotContains(t, admin, "password_hash")
	id := admin["id"].(string)

	resp, body = s.do(t, http.MethodPost, "/admin/admins", token, map[string]string{
		"email": "NEW@example.gov", "password": "long-enough", "name": "Dup",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Admin with this email already exists", decode(t, body)["error"])

	resp, body = s.do(t, http.MethodPut, "/admin/admins/"+id, token, map[string]string{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No valid fields to update", decode(t, body)["error"])

	resp, _ = s.do(t, http.MethodPut, "/admin/admins/"+id+"/password", token, map[string]string{"newPassword": "another-secret"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/admin/admins", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode(t, body)["admins"], 2)

	resp, _ = s.do(t, http.MethodDelete, "/admin/admins/"+id, token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, body = s.do(t, http.MethodDelete, "/admin/admins/"+id, token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Admin not found", decode(t, body)["error"])
}

func TestHealthAndFallback(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	out := decode(t, body)
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, "test", out["environment"])
	assert.Equal(t, "not configured", out["checks"].(map[string]any)["redis"])

	resp, body = s.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Route not found", decode(t, body)["error"])
}
