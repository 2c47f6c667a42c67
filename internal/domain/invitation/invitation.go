package invitation

import (
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

const (
	CodeLength      = 6
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultValidFor = 7 * 24 * time.Hour
)

var (
	ErrNotFound   = errors.New("invitation not found")
	ErrTokenTaken = errors.New("invitation token already exists")
)

// Invitation is a single-use registration token bound to one email.
type Invitation struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	Used      bool      `json:"used"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

func (i Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

func (i Invitation) Redeemable(now time.Time) bool {
	return !i.Used && !i.Expired(now)
}

// GenerateCode returns a random code drawn from [A-Z0-9].
func GenerateCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, CodeLength)

	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}

	return string(b), nil
}
