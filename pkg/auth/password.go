package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyPassword = errors.New("password required")

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(password, stored string) bool {
	if stored == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// IsHash reports whether stored is a bcrypt hash.
func IsHash(stored string) bool {
	_, err := bcrypt.Cost([]byte(stored))
	return err == nil
}

// VerifyPassword checks password against a stored credential. Records created
// before hashing keep the plaintext password; those compare in constant time
// and report rehash so the caller can replace them with HashPassword output.
func VerifyPassword(password, stored string) (ok, rehash bool) {
	if stored == "" {
		return false, false
	}
	if IsHash(stored) {
		return CheckPassword(password, stored), false
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(stored)) != 1 {
		return false, false
	}
	return true, true
}
