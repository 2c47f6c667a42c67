package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/geocoder89/applyhub/internal/service"
	"github.com/gin-gonic/gin"
)

var userMessages = []struct {
	target  error
	message string
}{
	{service.ErrInvalidToken, "This invitation link is not valid."},
	{service.ErrTokenAlreadyUsed, "This invitation has already been used."},
	{service.ErrTokenExpired, "This invitation has expired."},
	{service.ErrAccountExists, "An account already exists for this email. Please log in."},
	{service.ErrInvalidCredentials, "Invalid email or password."},
	{service.ErrUnauthorized, "Please log in to continue."},
	{service.ErrForbidden, "You do not have access to that page."},
	{service.ErrQuestionNotFound, "That question is not available."},
}

// messageFor turns a service error into text for a flash or form. ok is
// false for unexpected errors, which the caller should log.
func messageFor(err error) (msg string, ok bool) {
	var quota *service.QuotaNotMetError
	if errors.As(err, &quota) {
		return fmt.Sprintf("You need at least %d mandatory submissions to finalize. You have %d.", quota.Required, quota.Current), true
	}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return fieldsMessage(verr.Fields), true
	}

	for _, m := range userMessages {
		if errors.Is(err, m.target) {
			return m.message, true
		}
	}
	return "Something went wrong. Please try again.", false
}

func fieldsMessage(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, strings.ReplaceAll(k, "_", " ")+" "+fields[k])
	}
	return "Please fix: " + strings.Join(parts, "; ") + "."
}

// failMessage logs unexpected errors and returns the text to show.
func (h *Handler) failMessage(c *gin.Context, err error) string {
	msg, ok := messageFor(err)
	if !ok {
		h.log.ErrorContext(c.Request.Context(), "request failed",
			slog.String("path", c.Request.URL.Path),
			slog.Any("err", err),
		)
	}
	return msg
}

// statusFor picks the page status for a redisplayed form.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTokenAlreadyUsed), errors.Is(err, service.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		if _, ok := messageFor(err); ok {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}
}

func isTokenError(err error) bool {
	return errors.Is(err, service.ErrInvalidToken) ||
		errors.Is(err, service.ErrTokenExpired) ||
		errors.Is(err, service.ErrTokenAlreadyUsed)
}
