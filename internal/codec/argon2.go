package codec

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2 defaults; Memory is in KiB.
const (
	DefaultArgon2SaltLength  = 16
	DefaultArgon2HashLength  = 32
	DefaultArgon2Parallelism = 1
	DefaultArgon2Memory      = 1 << 16
	DefaultArgon2Iterations  = 3
)

// Argon2Hasher produces PHC strings for argon2id:
// $argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt>$<hash>
type Argon2Hasher struct {
	SaltLength  int
	HashLength  int
	Parallelism int
	Memory      int
	Iterations  int
}

// NewArgon2 validates the parameters.
func NewArgon2(saltLength, hashLength, parallelism, memory, iterations int) (*Argon2Hasher, error) {
	if saltLength < 1 {
		return nil, invalidParam("encryption.argon2.saltLength", saltLength, "must be positive")
	}
	if hashLength < 4 {
		return nil, invalidParam("encryption.argon2.hashLength", hashLength, "must be at least 4")
	}
	if parallelism < 1 || parallelism > 255 {
		return nil, invalidParam("encryption.argon2.parallelism", parallelism, "must be between 1 and 255")
	}
	if memory < 8*parallelism {
		return nil, invalidParam("encryption.argon2.memory", memory, "must be at least 8 KiB per lane")
	}
	if iterations < 1 {
		return nil, invalidParam("encryption.argon2.iterations", iterations, "must be positive")
	}
	return &Argon2Hasher{
		SaltLength:  saltLength,
		HashLength:  hashLength,
		Parallelism: parallelism,
		Memory:      memory,
		Iterations:  iterations,
	}, nil
}

func (h *Argon2Hasher) Algorithm() Algorithm { return Argon2 }

func (h *Argon2Hasher) Hash(plain []byte) (string, error) {
	salt, err := randomSalt(h.SaltLength)
	if err != nil {
		return "", err
	}
	key := argon2.IDKey(plain, salt, uint32(h.Iterations), uint32(h.Memory), uint8(h.Parallelism), uint32(h.HashLength))

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.Memory, h.Iterations, h.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Matches accepts argon2id and argon2i strings and uses the parameters they
// carry.
func (h *Argon2Hasher) Matches(plain []byte, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false
	}
	if iterations == 0 || parallelism == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(parts[4], "="))
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(parts[5], "="))
	if err != nil || len(want) == 0 {
		return false
	}

	var got []byte
	switch parts[1] {
	case "argon2id":
		got = argon2.IDKey(plain, salt, iterations, memory, parallelism, uint32(len(want)))
	case "argon2i":
		got = argon2.Key(plain, salt, iterations, memory, parallelism, uint32(len(want)))
	default:
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}
