package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidToken       = errors.New("invitation token is invalid")
	ErrTokenAlreadyUsed   = errors.New("invitation token has already been used")
	ErrTokenExpired       = errors.New("invitation token has expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("authentication required")
	ErrForbidden          = errors.New("insufficient role")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrQuotaNotMet        = errors.New("mandatory submission quota not met")
	ErrValidation         = errors.New("validation failed")
	ErrAccountExists      = errors.New("an account already exists for this email")
	ErrUserNotFound       = errors.New("user not found")
	ErrJobNotFound        = errors.New("job not found")
)

// QuotaNotMetError carries the counts behind a refused finalize.
type QuotaNotMetError struct {
	Current  int
	Required int
}

func (e *QuotaNotMetError) Error() string {
	return fmt.Sprintf("%s: %d of %d mandatory questions submitted", ErrQuotaNotMet, e.Current, e.Required)
}

func (e *QuotaNotMetError) Is(target error) bool {
	return target == ErrQuotaNotMet
}

// ValidationError maps input field names to a human readable problem.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}

	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}
