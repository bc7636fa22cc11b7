package authkit

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidPassword indicates the supplied password does not match the configured hash.
	ErrInvalidPassword = errors.New("auth.invalid_password")
	// ErrMissingPasswordHash indicates no owner password hash is configured.
	ErrMissingPasswordHash = errors.New("auth.missing_password_hash")
)

// PasswordVerifier checks the owner password.
type PasswordVerifier interface {
	Verify(password string) error
}

// BcryptPasswordVerifier compares passwords against one bcrypt hash.
type BcryptPasswordVerifier struct {
	hash []byte
}

// NewBcryptPasswordVerifier validates the encoded hash up front so a typo fails at startup.
func NewBcryptPasswordVerifier(encodedHash string) (*BcryptPasswordVerifier, error) {
	trimmed := strings.TrimSpace(encodedHash)
	if trimmed == "" {
		return nil, ErrMissingPasswordHash
	}
	if _, err := bcrypt.Cost([]byte(trimmed)); err != nil {
		return nil, fmt.Errorf("auth.password_hash: %w", err)
	}
	return &BcryptPasswordVerifier{hash: []byte(trimmed)}, nil
}

// Verify returns ErrInvalidPassword on mismatch.
func (verifier *BcryptPasswordVerifier) Verify(password string) error {
	if password == "" {
		return ErrInvalidPassword
	}
	if err := bcrypt.CompareHashAndPassword(verifier.hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("auth.verify_password: %w", err)
	}
	return nil
}

// HashPassword produces a bcrypt hash suitable for the password_hash setting.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth.hash_password: %w", err)
	}
	return string(hash), nil
}
