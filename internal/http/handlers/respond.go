package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/applyhub/internal/http/middlewares"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if v, ok := ctx.Get(middlewares.CtxRequestID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details any) {
	ctx.AbortWithStatusJSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details any) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string, details any) {
	RespondError(ctx, http.StatusConflict, code, message, details)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

type errorMapping struct {
	target error
	status int
	code   string
}

// checked in order; QuotaNotMetError matches ErrQuotaNotMet through its Is method
var serviceErrors = []errorMapping{
	{service.ErrValidation, http.StatusBadRequest, "invalid_request"},
	{service.ErrInvalidToken, http.StatusBadRequest, "invalid_token"},
	{service.ErrTokenExpired, http.StatusBadRequest, "token_expired"},
	{service.ErrTokenAlreadyUsed, http.StatusConflict, "token_used"},
	{service.ErrAccountExists, http.StatusConflict, "account_exists"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
	{service.ErrQuestionNotFound, http.StatusNotFound, "question_not_found"},
	{service.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{service.ErrJobNotFound, http.StatusNotFound, "job_not_found"},
	{service.ErrQuotaNotMet, http.StatusConflict, "quota_not_met"},
}

// ServiceErrorStatus maps a service error to its HTTP status and error code.
func ServiceErrorStatus(err error) (int, string) {
	if m, ok := lookupServiceError(err); ok {
		return m.status, m.code
	}
	return http.StatusInternalServerError, "internal_error"
}

func lookupServiceError(err error) (errorMapping, bool) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			return m, true
		}
	}
	return errorMapping{}, false
}

// RespondServiceError writes the envelope for an error returned by a service.
// Unexpected errors are logged and hidden behind a generic message.
func RespondServiceError(ctx *gin.Context, log *slog.Logger, err error) {
	m, ok := lookupServiceError(err)
	if !ok {
		if log != nil {
			log.ErrorContext(ctx.Request.Context(), "request failed",
				slog.String("route", ctx.FullPath()),
				slog.Any("err", err),
			)
		}
		RespondInternal(ctx, "Something went wrong")
		return
	}

	message := m.target.Error()
	var details any

	var quota *service.QuotaNotMetError
	var verr *service.ValidationError
	switch {
	case errors.As(err, &quota):
		message = quota.Error()
		details = gin.H{"current": quota.Current, "required": quota.Required}
	case errors.As(err, &verr):
		message = "Invalid request"
		details = gin.H{"fields": verr.Fields}
	}

	RespondError(ctx, m.status, m.code, message, details)
}
