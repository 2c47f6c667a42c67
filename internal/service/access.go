package service

import "github.com/geocoder89/applyhub/internal/domain/user"

// Principal is the caller identity as established by either surface.
type Principal struct {
	UserID string
	Email  string
	Role   user.Role
}

func (p Principal) Authenticated() bool {
	return p.UserID != "" && p.Role.Valid()
}

// Authorize is the single role gate. Every service operation that needs a
// role calls it before touching a store.
func Authorize(p Principal, required user.Role) error {
	if !p.Authenticated() {
		return ErrUnauthorized
	}
	if p.Role != required {
		return ErrForbidden
	}
	return nil
}

func PrincipalFor(u user.User) Principal {
	return Principal{UserID: u.ID, Email: u.Email, Role: u.Role}
}
