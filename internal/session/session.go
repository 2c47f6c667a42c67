// Package session holds server-side state for the form-based surface:
// who is signed in, the CSRF token for that browser, and pending flash messages.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/service"
)

var ErrNotFound = errors.New("session not found")

const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type Session struct {
	ID        string    `json:"-"`
	UserID    string    `json:"userId,omitempty"`
	Email     string    `json:"email,omitempty"`
	Role      user.Role `json:"role,omitempty"`
	CSRFToken string    `json:"csrf"`
	Flashes   []Flash   `json:"flashes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
}

// New starts an anonymous session with fresh ID and CSRF token.
func New(now time.Time) (Session, error) {
	id, err := NewToken()
	if err != nil {
		return Session{}, err
	}
	csrf, err := NewToken()
	if err != nil {
		return Session{}, err
	}
	return Session{ID: id, CSRFToken: csrf, CreatedAt: now}, nil
}

// NewToken returns 32 random bytes, base64url encoded.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s Session) Principal() service.Principal {
	return service.Principal{UserID: s.UserID, Email: s.Email, Role: s.Role}
}

func (s *Session) SignIn(p service.Principal) {
	s.UserID = p.UserID
	s.Email = p.Email
	s.Role = p.Role
}

func (s *Session) AddFlash(kind, message string) {
	s.Flashes = append(s.Flashes, Flash{Kind: kind, Message: message})
}

// PopFlashes returns pending flashes and clears them. The caller must Save
// the session for the removal to stick.
func (s *Session) PopFlashes() []Flash {
	out := s.Flashes
	s.Flashes = nil
	return out
}
