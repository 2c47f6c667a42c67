package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/applyhub/internal/auth"
	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type fakeVerifier struct {
	claims *auth.Claims
	err    error
}

func (f fakeVerifier) VerifyAccessToken(string) (*auth.Claims, error) {
	return f.claims, f.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	handlers := append(mw, func(c *gin.Context) {
		p, _ := PrincipalFromContext(c)
		c.JSON(http.StatusOK, gin.H{"userId": p.UserID})
	})
	r.GET("/x", handlers...)
	r.POST("/x", handlers...)
	return r
}

func TestRequireAuthAndRole(t *testing.T) {
	applicant := fakeVerifier{claims: &auth.Claims{UserID: "u1", Email: "a@x.com", Role: string(user.RoleApplicant)}}

	tests := []struct {
		name     string
		verifier fakeVerifier
		header   string
		role     user.Role
		want     int
	}{
		{"no header", applicant, "", user.RoleApplicant, http.StatusUnauthorized},
		{"not bearer", applicant, "Basic abc", user.RoleApplicant, http.StatusUnauthorized},
		{"bad token", fakeVerifier{err: auth.ErrInvalidToken}, "Bearer abc", user.RoleApplicant, http.StatusUnauthorized},
		{"role matches", applicant, "Bearer abc", user.RoleApplicant, http.StatusOK},
		{"wrong role", applicant, "Bearer abc", user.RoleAdmin, http.StatusForbidden},
		{"unknown role claim", fakeVerifier{claims: &auth.Claims{UserID: "u1", Role: "user"}}, "Bearer abc", user.RoleApplicant, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAuthMiddleware(tt.verifier)
			r := newRouter(m.RequireAuth(), RequireRole(tt.role))

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want != http.StatusOK && !strings.Contains(w.Body.String(), `"requestId"`) {
				t.Fatalf("expected error envelope with requestId, got %s", w.Body.String())
			}
		})
	}
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(2)
	r := newRouter(rl.Middleware(KeyByIP))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)

		if w.Code == http.StatusTooManyRequests && w.Header().Get("Retry-After") == "" {
			t.Fatal("missing Retry-After")
		}
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	// other clients have their own bucket
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("second client status = %d", w.Code)
	}
}

func TestRequireJSON(t *testing.T) {
	r := newRouter(RequireJSON())

	tests := []struct {
		name string
		body string
		ct   string
		want int
	}{
		{"json body", `{"a":1}`, "application/json; charset=utf-8", http.StatusOK},
		{"form body", "a=1", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"no body", "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body))
			if tt.ct != "" {
				req.Header.Set("Content-Type", tt.ct)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRequestID_EchoesOrGenerates(t *testing.T) {
	r := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-Id"); got != "abc-123" {
		t.Fatalf("X-Request-Id = %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected generated request id")
	}
}

