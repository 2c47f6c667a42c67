package security

import "golang.org/x/crypto/bcrypt"

// Hasher wraps bcrypt with a configurable cost so tests can run at MinCost.
type Hasher struct {
	Cost int
}

func NewHasher() Hasher {
	return Hasher{Cost: bcrypt.DefaultCost}
}

func (h Hasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Compare returns nil when plain matches hash.
func (h Hasher) Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// HashPassword hashes a plain text password with the default cost.
func HashPassword(plain string) (string, error) {
	return NewHasher().Hash(plain)
}

func CheckPassword(hash, plain string) error {
	return NewHasher().Compare(hash, plain)
}
