package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/applyhub/internal/auth"
	"github.com/geocoder89/applyhub/internal/config"
	"github.com/geocoder89/applyhub/internal/domain/invitation"
	"github.com/geocoder89/applyhub/internal/domain/question"
	"github.com/geocoder89/applyhub/internal/domain/user"
	apphttp "github.com/geocoder89/applyhub/internal/http"
	"github.com/geocoder89/applyhub/internal/observability"
	"github.com/geocoder89/applyhub/internal/repo/memory"
	"github.com/geocoder89/applyhub/internal/security"
	"github.com/geocoder89/applyhub/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type env struct {
	router http.Handler
	store  *memory.Store
	creds  security.Hasher
}

func testConfig() config.Config {
	return config.Config{
		Env:               "test",
		JWTSecret:         "test-secret-key",
		JWTAccessTTL:      time.Hour,
		JWTRefreshTTL:     24 * time.Hour,
		SessionTTL:        time.Hour,
		AuthRatePerMinute: 1000,
		ExportDir:         "",
	}
}

func setup(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	cfg.ExportDir = t.TempDir()

	store := memory.NewStore()
	creds := security.Hasher{Cost: bcrypt.MinCost}
	reg := prometheus.NewRegistry()

	router, err := apphttp.NewRouter(apphttp.RouterDeps{
		Config:        cfg,
		Log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:         store,
		Credentials:   creds,
		RefreshTokens: memory.NewRefreshTokensRepo(),
		Sessions:      session.NewMemoryStore(cfg.SessionTTL),
		JWT:           auth.NewManager(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL),
		Prom:          observability.NewProm(reg),
		Gatherer:      reg,
	})
	require.NoError(t, err)

	return &env{router: router, store: store, creds: creds}
}

func (e *env) user(t *testing.T, id, email, password string, role user.Role) {
	t.Helper()
	hash, err := e.creds.Hash(password)
	require.NoError(t, err)
	require.NoError(t, e.store.Users().Create(context.Background(), user.User{
		ID: id, Email: email, PasswordHash: hash, Name: id, Role: role, CreatedAt: time.Now().UTC(),
	}))
}

func (e *env) questions(t *testing.T, n int, typ question.Type) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, e.store.Questions().Create(context.Background(), question.Question{
			ID:         fmt.Sprintf("%s-%02d", typ, i),
			Title:      fmt.Sprintf("Question %d", i),
			Link:       fmt.Sprintf("https://leetcode.com/problems/q%d", i),
			Type:       typ,
			Difficulty: question.DifficultyMedium,
			Active:     true,
			CreatedAt:  time.Now().UTC(),
		}))
	}
}

type request struct {
	method string
	path   string
	body   any
	token  string
	cookie *http.Cookie
}

func (e *env) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}

	req := httptest.NewRequest(r.method, r.path, body)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.cookie != nil {
		req.AddCookie(r.cookie)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type apiError struct {
	Error struct {
		Code      string         `json:"code"`
		Message   string         `json:"message"`
		RequestID string         `json:"requestId"`
		Details   map[string]any `json:"details"`
	} `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body=%s", w.Body.String())
	return out
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	t.Fatalf("refresh_token cookie not found")
	return nil
}

func (e *env) login(t *testing.T, email, password string) (string, *http.Cookie) {
	t.Helper()
	w := e.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"email": email, "password": password,
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	out := decode[struct {
		AccessToken string `json:"accessToken"`
	}](t, w)
	require.NotEmpty(t, out.AccessToken)
	return out.AccessToken, refreshCookie(t, w)
}

func TestRegister_ThenTokenIsSpent(t *testing.T) {
	e := setup(t)
	require.NoError(t, e.store.Invitations().Create(context.Background(), invitation.Invitation{
		Token: "ABC123", Email: "new@x.com", ExpiresAt: time.Now().Add(time.Hour), CreatedAt: time.Now(),
	}))

	body := map[string]string{"token": "ABC123", "name": "Newbie", "password": "secret1", "passwordConfirm": "secret1"}

	w := e.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: body})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	out := decode[struct {
		AccessToken string    `json:"accessToken"`
		User        user.User `json:"user"`
	}](t, w)
	require.Equal(t, "new@x.com", out.User.Email)
	require.Equal(t, user.RoleApplicant, out.User.Role)
	require.NotContains(t, w.Body.String(), "passwordHash")

	w = e.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: body})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "token_used", decode[apiError](t, w).Error.Code)
}

func TestRegister_ValidationEnvelope(t *testing.T) {
	e := setup(t)

	w := e.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: map[string]string{"token": "ABC123"}})
	require.Equal(t, http.StatusBadRequest, w.Code)

	out := decode[apiError](t, w)
	require.Equal(t, "invalid_request", out.Error.Code)
	require.NotEmpty(t, out.Error.RequestID)
	require.Equal(t, w.Header().Get("X-Request-Id"), out.Error.RequestID)
}

func TestLogin_WrongPassword(t *testing.T) {
	e := setup(t)
	e.user(t, "u1", "ada@x.com", "secret1", user.RoleApplicant)

	w := e.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"email": "ada@x.com", "password": "wrong",
	}})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "invalid_credentials", decode[apiError](t, w).Error.Code)
}

func TestRefresh_RotatesAndRejectsReuse(t *testing.T) {
	e := setup(t)
	e.user(t, "u1", "ada@x.com", "secret1", user.RoleApplicant)
	_, cookie := e.login(t, "ada@x.com", "secret1")

	w := e.do(t, request{method: http.MethodPost, path: "/api/auth/refresh", cookie: cookie})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rotated := refreshCookie(t, w)
	require.NotEqual(t, cookie.Value, rotated.Value)

	w = e.do(t, request{method: http.MethodPost, path: "/api/auth/refresh", cookie: cookie})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, request{method: http.MethodPost, path: "/api/auth/logout", cookie: rotated})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = e.do(t, request{method: http.MethodPost, path: "/api/auth/refresh", cookie: rotated})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleGates(t *testing.T) {
	e := setup(t)
	e.user(t, "u1", "ada@x.com", "secret1", user.RoleApplicant)
	e.user(t, "boss", "boss@x.com", "secret1", user.RoleAdmin)

	w := e.do(t, request{method: http.MethodGet, path: "/api/questions"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	applicant, _ := e.login(t, "ada@x.com", "secret1")
	w = e.do(t, request{method: http.MethodGet, path: "/api/admin/applicants", token: applicant})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "forbidden", decode[apiError](t, w).Error.Code)

	admin, _ := e.login(t, "boss@x.com", "secret1")
	w = e.do(t, request{method: http.MethodGet, path: "/api/profile", token: admin})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, request{method: http.MethodGet, path: "/api/admin/stats", token: admin})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSubmitAndFinalizeFlow(t *testing.T) {
	e := setup(t)
	e.user(t, "u1", "ada@x.com", "secret1", user.RoleApplicant)
	e.questions(t, 15, question.TypeMandatory)
	e.questions(t, 1, question.TypeRecommended)
	token, _ := e.login(t, "ada@x.com", "secret1")

	submit := func(id, link string) *httptest.ResponseRecorder {
		return e.do(t, request{
			method: http.MethodPost, path: "/api/questions/" + id + "/submission", token: token,
			body: map[string]string{"link": link},
		})
	}

	for i := 0; i < 14; i++ {
		w := submit(fmt.Sprintf("MANDATORY-%02d", i), "https://github.com/ada/solution")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := submit("MANDATORY-00", "https://github.com/ada/better")
	require.Equal(t, http.StatusOK, w.Code)

	w = submit("nope", "https://github.com/ada/x")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, request{method: http.MethodPost, path: "/api/finalize", token: token})
	require.Equal(t, http.StatusConflict, w.Code)
	quota := decode[apiError](t, w)
	require.Equal(t, "quota_not_met", quota.Error.Code)
	require.EqualValues(t, 14, quota.Error.Details["current"])
	require.EqualValues(t, 15, quota.Error.Details["required"])

	w = submit("RECOMMENDED-00", "https://github.com/ada/rec")
	require.Equal(t, http.StatusCreated, w.Code)
	w = submit("MANDATORY-14", "https://github.com/ada/last")
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, request{method: http.MethodPost, path: "/api/finalize", token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, request{method: http.MethodGet, path: "/api/profile", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[struct {
		User     user.User `json:"user"`
		Progress struct {
			MandatoryCount int  `json:"mandatoryCount"`
			TotalCount     int  `json:"totalCount"`
			Finalized      bool `json:"finalized"`
		} `json:"progress"`
	}](t, w)
	require.True(t, profile.User.Finalized)
	require.Equal(t, 15, profile.Progress.MandatoryCount)
	require.Equal(t, 16, profile.Progress.TotalCount)
	require.True(t, profile.Progress.Finalized)
}

func TestQuestions_ETagRevalidation(t *testing.T) {
	e := setup(t)
	e.user(t, "u1", "ada@x.com", "secret1", user.RoleApplicant)
	e.questions(t, 2, question.TypeMandatory)
	token, _ := e.login(t, "ada@x.com", "secret1")

	w := e.do(t, request{method: http.MethodGet, path: "/api/questions", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/questions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotModified, w.Code)
}

func TestAdminQuestionLifecycleAndExport(t *testing.T) {
	e := setup(t)
	e.user(t, "boss", "boss@x.com", "secret1", user.RoleAdmin)
	e.user(t, "u1", "ada@x.com", "secret1", user.RoleApplicant)
	token, _ := e.login(t, "boss@x.com", "secret1")

	w := e.do(t, request{method: http.MethodPost, path: "/api/admin/questions", token: token, body: map[string]string{
		"title": "Two Sum", "link": "https://leetcode.com/problems/two-sum", "type": "MANDATORY", "difficulty": "EASY",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[question.Question](t, w)
	require.True(t, created.Active)

	w = e.do(t, request{method: http.MethodPut, path: "/api/admin/questions/" + created.ID, token: token, body: map[string]string{
		"difficulty": "HARD",
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, question.DifficultyHard, decode[question.Question](t, w).Difficulty)

	w = e.do(t, request{method: http.MethodDelete, path: "/api/admin/questions/" + created.ID, token: token})
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, decode[question.Question](t, w).Active)

	w = e.do(t, request{method: http.MethodGet, path: "/api/admin/applicants/export", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Rank,Name,Email,Total Submissions,Finalized")
	require.Contains(t, w.Body.String(), "1,u1,ada@x.com,0,No")

	w = e.do(t, request{method: http.MethodPost, path: "/api/admin/exports", token: token})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	job := decode[struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, w)
	require.NotEmpty(t, job.ID)

	w = e.do(t, request{method: http.MethodGet, path: "/api/admin/exports/" + job.ID + "/file", token: token})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "export_not_ready", decode[apiError](t, w).Error.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	e := setup(t)

	w := e.do(t, request{method: http.MethodGet, path: "/healthz"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, request{method: http.MethodGet, path: "/readyz"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, request{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "applyhub_http_requests_total")
}
