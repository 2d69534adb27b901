// Package password hashes and verifies user passwords with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength stays under bcrypt's 72 byte input limit so that no part of a
// password is silently ignored.
const MaxLength = 64

var (
	ErrEmptyPassword   = errors.New("password is empty")
	ErrPasswordTooLong = fmt.Errorf("password exceeds %d bytes", MaxLength)
	ErrMalformedDigest = errors.New("stored password digest is unusable")
)

type Hasher struct {
	cost int
}

// NewHasher clamps cost into bcrypt's accepted range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted digest. The salt is random per call and embedded in
// the digest along with the cost.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if err := checkLength(plaintext); err != nil {
		return "", err
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A digest that cannot be
// parsed fails closed with ErrMalformedDigest; the parse detail is dropped.
func (h *Hasher) Verify(plaintext, digest string) (bool, error) {
	if err := checkLength(plaintext); err != nil {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrMalformedDigest
	}
}

func checkLength(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	if len(plaintext) > MaxLength {
		return ErrPasswordTooLong
	}
	return nil
}
