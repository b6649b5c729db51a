package auth

import (
	"errors"
	"sync"
	"unicode/utf8"

	"github.com/remessasegura/backend/internal/core"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength counts characters, not bytes.
	MinPasswordLength = 6
	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
)

// checkPassword applies the length rules shared by account creation and
// password reset.
func checkPassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return core.Validation("password must have at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return core.Validation("password must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// BcryptHasher uses bcrypt with Cost, or bcrypt.DefaultCost when zero.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", core.Validation("password must be at most %d bytes", MaxPasswordBytes)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// burn runs one comparison against a throwaway hash so a login for an
// unknown account costs about as much as a wrong password.
func burn(h Hasher, password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = h.Hash("remessa-segura-placeholder")
	})
	if dummyHash != "" {
		_ = h.Compare(dummyHash, password)
	}
}
