package handlers

import (
	"github.com/geocoder89/applyhub/internal/http/middlewares"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/gin-gonic/gin"
)

// principal returns the caller set by the auth middleware, or the zero
// Principal, which every service rejects with ErrUnauthorized.
func principal(ctx *gin.Context) service.Principal {
	p, _ := middlewares.PrincipalFromContext(ctx)
	return p
}
