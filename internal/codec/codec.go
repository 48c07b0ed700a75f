// Package codec encodes and verifies stored passwords for the users file.
//
// A Codec is assembled from a Hasher (one variant per supported algorithm)
// and the prefix/suffix envelope configured in org.apache.karaf.jaas.cfg.
// Encodings are compatible with Spring Security Crypto, which is what Karaf
// uses to check them at login.
package codec

import (
	"crypto/rand"
	"fmt"
	"strings"

	kuerrors "github.com/systmms/karafusers/internal/errors"
)

// Algorithm names a hashing scheme.
type Algorithm string

const (
	Bcrypt Algorithm = "bcrypt"
	PBKDF2 Algorithm = "pbkdf2"
	Scrypt Algorithm = "scrypt"
	Argon2 Algorithm = "argon2"
)

// Codec turns a plaintext password into its stored representation and back
// into a yes/no answer.
type Codec interface {
	Encode(plain []byte) (string, error)
	Verify(plain []byte, stored string) (bool, error)
	Algorithm() Algorithm
}

// Hasher is the algorithm-specific part of a Codec.
type Hasher interface {
	Algorithm() Algorithm
	Hash(plain []byte) (string, error)
	Matches(plain []byte, encoded string) bool
}

// Wrapped applies a fixed prefix and suffix around a Hasher's output.
type Wrapped struct {
	hasher Hasher
	prefix string
	suffix string
}

// New wraps hasher with prefix and suffix (either may be empty).
func New(hasher Hasher, prefix, suffix string) *Wrapped {
	return &Wrapped{hasher: hasher, prefix: prefix, suffix: suffix}
}

// Algorithm reports the underlying hasher's algorithm.
func (w *Wrapped) Algorithm() Algorithm {
	return w.hasher.Algorithm()
}

// Encode hashes plain and wraps the result.
func (w *Wrapped) Encode(plain []byte) (string, error) {
	if len(plain) == 0 {
		return "", emptyPassword()
	}
	inner, err := w.hasher.Hash(plain)
	if err != nil {
		return "", err
	}
	return w.prefix + inner + w.suffix, nil
}

// Verify reports whether plain matches stored. A stored value that does not
// carry the configured envelope, or that the algorithm cannot parse, is a
// mismatch rather than an error.
func (w *Wrapped) Verify(plain []byte, stored string) (bool, error) {
	if len(plain) == 0 {
		return false, emptyPassword()
	}
	inner, ok := w.Unwrap(stored)
	if !ok || inner == "" {
		return false, nil
	}
	return w.hasher.Matches(plain, inner), nil
}

// Unwrap strips the envelope; ok is false when stored does not carry it.
func (w *Wrapped) Unwrap(stored string) (string, bool) {
	if len(stored) < len(w.prefix)+len(w.suffix) {
		return "", false
	}
	if !strings.HasPrefix(stored, w.prefix) || !strings.HasSuffix(stored, w.suffix) {
		return "", false
	}
	return stored[len(w.prefix) : len(stored)-len(w.suffix)], true
}

func emptyPassword() error {
	return kuerrors.ValidationError{
		Kind:    kuerrors.ErrInvalidInput,
		Message: "Password cannot be empty",
	}
}

func randomSalt(n int) ([]byte, error) {
	salt := make([]byte, n)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}
