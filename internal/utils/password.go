package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword returns the bcrypt hash of a registration password.  A cost
// outside bcrypt's accepted range falls back to bcrypt.DefaultCost.
// Passwords longer than 72 bytes are rejected by bcrypt itself.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored hash.  A
// malformed hash never verifies.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
