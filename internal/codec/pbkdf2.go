package codec

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"strings"

	kuerrors "github.com/systmms/karafusers/internal/errors"
	"golang.org/x/crypto/pbkdf2"
)

// Canonical PBKDF2 digest identifiers.
const (
	DigestSHA1   = "PBKDF2WithHmacSHA1"
	DigestSHA256 = "PBKDF2WithHmacSHA256"
	DigestSHA512 = "PBKDF2WithHmacSHA512"
)

// PBKDF2 defaults.
const (
	DefaultPBKDF2Iterations = 310000
	DefaultPBKDF2SaltLength = 16
	DefaultPBKDF2Digest     = DigestSHA256

	pbkdf2HashWidth = 32
)

// PBKDF2Hasher derives hex(salt || PBKDF2(password, salt || secret)).
type PBKDF2Hasher struct {
	Secret     []byte
	Iterations int
	SaltLength int
	Digest     string

	newHash func() hash.Hash
}

// NormalizeDigest maps shorthand spellings onto the canonical identifiers.
// Unknown spellings are returned trimmed and unchanged so that construction
// can reject them by name.
func NormalizeDigest(v string) string {
	s := strings.TrimSpace(v)
	if strings.HasPrefix(s, "PBKDF2WithHmac") {
		return s
	}
	switch strings.ToLower(s) {
	case "pbkdf2withhmacsha1", "hmacsha1", "sha1":
		return DigestSHA1
	case "pbkdf2withhmacsha256", "hmacsha256", "sha256":
		return DigestSHA256
	case "pbkdf2withhmacsha512", "hmacsha512", "sha512":
		return DigestSHA512
	}
	return s
}

func digestFunc(digest string) (func() hash.Hash, bool) {
	switch digest {
	case DigestSHA1:
		return sha1.New, true
	case DigestSHA256:
		return sha256.New, true
	case DigestSHA512:
		return sha512.New, true
	}
	return nil, false
}

// NewPBKDF2 validates the parameters. digest is normalized first.
func NewPBKDF2(secret string, iterations, saltLength int, digest string) (*PBKDF2Hasher, error) {
	if iterations < 1 {
		return nil, invalidParam("encryption.pbkdf2.iterations", iterations, "must be positive")
	}
	if saltLength < 1 {
		return nil, invalidParam("encryption.pbkdf2.saltLength", saltLength, "must be positive")
	}

	canonical := NormalizeDigest(digest)
	fn, ok := digestFunc(canonical)
	if !ok {
		return nil, kuerrors.ConfigError{
			Kind:       kuerrors.ErrUnrecognizedDigest,
			Field:      "encryption.pbkdf2.algorithm",
			Value:      canonical,
			Message:    "unrecognized digest",
			Suggestion: "Use PBKDF2WithHmacSHA1, PBKDF2WithHmacSHA256 or PBKDF2WithHmacSHA512",
		}
	}

	return &PBKDF2Hasher{
		Secret:     []byte(secret),
		Iterations: iterations,
		SaltLength: saltLength,
		Digest:     canonical,
		newHash:    fn,
	}, nil
}

func (h *PBKDF2Hasher) Algorithm() Algorithm { return PBKDF2 }

func (h *PBKDF2Hasher) Hash(plain []byte) (string, error) {
	salt, err := randomSalt(h.SaltLength)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(append(salt, h.derive(plain, salt)...)), nil
}

func (h *PBKDF2Hasher) Matches(plain []byte, encoded string) bool {
	raw, err := hex.DecodeString(encoded)
	if err != nil || len(raw) <= h.SaltLength {
		return false
	}
	salt, want := raw[:h.SaltLength], raw[h.SaltLength:]
	return subtle.ConstantTimeCompare(h.derive(plain, salt), want) == 1
}

func (h *PBKDF2Hasher) derive(plain, salt []byte) []byte {
	saltAndSecret := make([]byte, 0, len(salt)+len(h.Secret))
	saltAndSecret = append(saltAndSecret, salt...)
	saltAndSecret = append(saltAndSecret, h.Secret...)
	return pbkdf2.Key(plain, saltAndSecret, h.Iterations, pbkdf2HashWidth, h.newHash)
}
