package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/applyhub/internal/auth"
	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// RequireAuth resolves the Bearer access token into a service.Principal.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortError(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if raw == "" {
			abortError(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid access token")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortError(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired access token")
			return
		}

		SetPrincipal(c, service.Principal{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   user.Role(claims.Role),
		})

		c.Next()
	}
}

func SetPrincipal(c *gin.Context, p service.Principal) {
	c.Set(CtxPrincipal, p)
}

func PrincipalFromContext(c *gin.Context) (service.Principal, bool) {
	v, ok := c.Get(CtxPrincipal)
	if !ok {
		return service.Principal{}, false
	}
	p, ok := v.(service.Principal)
	return p, ok
}
