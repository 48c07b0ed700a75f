package codec

import (
	"crypto/subtle"
	"encoding/base64"
	"math/bits"
	"strconv"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt defaults.
const (
	DefaultScryptCPUCost         = 1 << 14
	DefaultScryptMemoryCost      = 8
	DefaultScryptParallelization = 1
	DefaultScryptKeyLength       = 32
	DefaultScryptSaltLength      = 16
)

// ScryptHasher produces $<params>$<salt>$<key>, where params is the hex form
// of log2(N)<<16 | r<<8 | p and salt/key are padded standard base64.
type ScryptHasher struct {
	CPUCost         int
	MemoryCost      int
	Parallelization int
	KeyLength       int
	SaltLength      int
}

// NewScrypt validates the parameters. The encoded form keeps r and p in one
// byte each, which bounds them to 255.
func NewScrypt(cpuCost, memoryCost, parallelization, keyLength, saltLength int) (*ScryptHasher, error) {
	if cpuCost <= 1 || cpuCost&(cpuCost-1) != 0 || cpuCost > 1<<30 {
		return nil, invalidParam("encryption.scrypt.cpuCost", cpuCost, "must be a power of 2 greater than 1")
	}
	if memoryCost < 1 || memoryCost > 255 {
		return nil, invalidParam("encryption.scrypt.memoryCost", memoryCost, "must be between 1 and 255")
	}
	if parallelization < 1 || parallelization > 255 {
		return nil, invalidParam("encryption.scrypt.parallelization", parallelization, "must be between 1 and 255")
	}
	if keyLength < 1 {
		return nil, invalidParam("encryption.scrypt.keyLength", keyLength, "must be positive")
	}
	if saltLength < 1 {
		return nil, invalidParam("encryption.scrypt.saltLength", saltLength, "must be positive")
	}
	return &ScryptHasher{
		CPUCost:         cpuCost,
		MemoryCost:      memoryCost,
		Parallelization: parallelization,
		KeyLength:       keyLength,
		SaltLength:      saltLength,
	}, nil
}

func (h *ScryptHasher) Algorithm() Algorithm { return Scrypt }

func (h *ScryptHasher) Hash(plain []byte) (string, error) {
	salt, err := randomSalt(h.SaltLength)
	if err != nil {
		return "", err
	}
	key, err := scrypt.Key(plain, salt, h.CPUCost, h.MemoryCost, h.Parallelization, h.KeyLength)
	if err != nil {
		return "", err
	}

	logN := bits.TrailingZeros(uint(h.CPUCost))
	params := int64(logN)<<16 | int64(h.MemoryCost)<<8 | int64(h.Parallelization)

	var b strings.Builder
	b.WriteByte('$')
	b.WriteString(strconv.FormatInt(params, 16))
	b.WriteByte('$')
	b.WriteString(base64.StdEncoding.EncodeToString(salt))
	b.WriteByte('$')
	b.WriteString(base64.StdEncoding.EncodeToString(key))
	return b.String(), nil
}

// Matches uses the cost parameters recorded in encoded, not the configured
// ones, so hashes survive a configuration change.
func (h *ScryptHasher) Matches(plain []byte, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != "" {
		return false
	}
	params, err := strconv.ParseInt(parts[1], 16, 64)
	if err != nil {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return false
	}

	logN := params >> 16 & 0xffff
	if logN < 1 || logN > 30 {
		return false
	}
	r := int(params >> 8 & 0xff)
	p := int(params & 0xff)

	got, err := scrypt.Key(plain, salt, 1<<logN, r, p, len(want))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}
