package middlewares

import (
	"errors"
	"net/http"

	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/gin-gonic/gin"
)

// RequireRole is a route-level gate over service.Authorize. Services check
// again, so this only saves a round trip.
func RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := PrincipalFromContext(c)

		err := service.Authorize(p, required)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, service.ErrUnauthorized):
			abortError(c, http.StatusUnauthorized, "unauthorized", "Missing identity context")
		default:
			abortError(c, http.StatusForbidden, "forbidden", string(required)+" role required")
		}
	}
}
