package codec

import (
	"errors"

	kuerrors "github.com/systmms/karafusers/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptStrength is the work factor used when none is configured.
const DefaultBcryptStrength = 10

// BcryptHasher produces $2a$ modular-crypt hashes.
type BcryptHasher struct {
	Strength int
}

// NewBcrypt validates strength against the bcrypt cost range.
func NewBcrypt(strength int) (*BcryptHasher, error) {
	if strength < bcrypt.MinCost || strength > bcrypt.MaxCost {
		return nil, invalidParam("encryption.bcrypt.strength", strength, "must be between 4 and 31")
	}
	return &BcryptHasher{Strength: strength}, nil
}

func (h *BcryptHasher) Algorithm() Algorithm { return Bcrypt }

func (h *BcryptHasher) Hash(plain []byte) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(plain, h.Strength)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", kuerrors.ValidationError{
				Kind:    kuerrors.ErrInvalidInput,
				Message: "Password is longer than the 72 bytes bcrypt can hash",
			}
		}
		return "", err
	}
	return string(hash), nil
}

func (h *BcryptHasher) Matches(plain []byte, encoded string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encoded), plain) == nil
}
