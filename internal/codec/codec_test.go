package codec

import (
	"encoding/hex"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kuerrors "github.com/systmms/karafusers/internal/errors"
)

// fastHashers keeps work factors low so the suite stays quick.
func fastHashers(t *testing.T) map[Algorithm]Hasher {
	t.Helper()

	bc, err := NewBcrypt(4)
	require.NoError(t, err)
	pb, err := NewPBKDF2("pepper", 1000, 16, "sha256")
	require.NoError(t, err)
	sc, err := NewScrypt(16, 8, 1, 32, 16)
	require.NoError(t, err)
	ar, err := NewArgon2(16, 32, 1, 64, 1)
	require.NoError(t, err)

	return map[Algorithm]Hasher{Bcrypt: bc, PBKDF2: pb, Scrypt: sc, Argon2: ar}
}

func TestRoundTripAllAlgorithms(t *testing.T) {
	t.Parallel()

	passwords := []string{"secret", "p@ss w0rd", "ünïcødé", strings.Repeat("x", 64)}

	for algo, hasher := range fastHashers(t) {
		algo, hasher := algo, hasher
		t.Run(string(algo), func(t *testing.T) {
			t.Parallel()

			c := New(hasher, "{CRYPT}", "{CRYPT}")
			assert.Equal(t, algo, c.Algorithm())

			for _, pw := range passwords {
				stored, err := c.Encode([]byte(pw))
				require.NoError(t, err)
				assert.True(t, strings.HasPrefix(stored, "{CRYPT}"))
				assert.True(t, strings.HasSuffix(stored, "{CRYPT}"))

				ok, err := c.Verify([]byte(pw), stored)
				require.NoError(t, err)
				assert.True(t, ok, "password %q should verify", pw)

				ok, err = c.Verify([]byte(pw+"!"), stored)
				require.NoError(t, err)
				assert.False(t, ok)
			}
		})
	}
}

func TestEncodeIsSalted(t *testing.T) {
	t.Parallel()

	for algo, hasher := range fastHashers(t) {
		c := New(hasher, "", "")
		a, err := c.Encode([]byte("same"))
		require.NoError(t, err)
		b, err := c.Encode([]byte("same"))
		require.NoError(t, err)
		assert.NotEqual(t, a, b, "%s encodings should differ by salt", algo)
	}
}

func TestEmptyPasswordIsInvalidInput(t *testing.T) {
	t.Parallel()

	c := New(fastHashers(t)[Bcrypt], "", "")

	_, err := c.Encode(nil)
	assert.ErrorIs(t, err, kuerrors.ErrInvalidInput)

	_, err = c.Verify([]byte{}, "$2a$04$abc")
	assert.ErrorIs(t, err, kuerrors.ErrInvalidInput)
}

func TestVerifyEnvelopeMismatchIsFalse(t *testing.T) {
	t.Parallel()

	hasher := fastHashers(t)[Bcrypt]
	wrapped := New(hasher, "{CRYPT}", "{CRYPT}")
	bare := New(hasher, "", "")

	stored, err := bare.Encode([]byte("secret"))
	require.NoError(t, err)

	tests := []string{
		stored,                        // no envelope
		"{CRYPT}" + stored,            // prefix only
		"{CRYPT}{CRYPT}",              // envelope without content
		"{CRY",                        // shorter than envelope
		"",                            // nothing stored
		"{CRYPT}not-a-hash{CRYPT}",    // algorithm cannot parse
	}
	for _, s := range tests {
		ok, err := wrapped.Verify([]byte("secret"), s)
		require.NoError(t, err, "stored %q", s)
		assert.False(t, ok, "stored %q", s)
	}
}

func TestUnwrap(t *testing.T) {
	t.Parallel()

	c := New(fastHashers(t)[Bcrypt], "{A}", "{B}")

	inner, ok := c.Unwrap("{A}hash{B}")
	assert.True(t, ok)
	assert.Equal(t, "hash", inner)

	_, ok = c.Unwrap("{A}hash")
	assert.False(t, ok)

	assert.Equal(t, "{A}", c.prefix)
	assert.Equal(t, "{B}", c.suffix)
}

func TestBcryptFormat(t *testing.T) {
	t.Parallel()

	h, err := NewBcrypt(4)
	require.NoError(t, err)

	s, err := h.Hash([]byte("secret"))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\$2a\$04\$[./A-Za-z0-9]{53}$`), s)
}

func TestBcryptStrengthRange(t *testing.T) {
	t.Parallel()

	for _, s := range []int{3, 32, -1} {
		_, err := NewBcrypt(s)
		assert.ErrorIs(t, err, kuerrors.ErrInvalidParameter, "strength %d", s)
	}
}

func TestBcryptTooLong(t *testing.T) {
	t.Parallel()

	h, err := NewBcrypt(4)
	require.NoError(t, err)

	_, err = h.Hash([]byte(strings.Repeat("a", 73)))
	assert.ErrorIs(t, err, kuerrors.ErrInvalidInput)
}

func TestPBKDF2Format(t *testing.T) {
	t.Parallel()

	h, err := NewPBKDF2("", 1000, 16, "")
	require.Error(t, err, "empty digest is not recognized")

	h, err = NewPBKDF2("", 1000, 16, DigestSHA512)
	require.NoError(t, err)

	s, err := h.Hash([]byte("secret"))
	require.NoError(t, err)

	raw, err := hex.DecodeString(s)
	require.NoError(t, err)
	assert.Len(t, raw, 16+32, "salt followed by a 256-bit hash")
}

func TestPBKDF2SecretMatters(t *testing.T) {
	t.Parallel()

	a, err := NewPBKDF2("one", 1000, 16, DigestSHA1)
	require.NoError(t, err)
	b, err := NewPBKDF2("two", 1000, 16, DigestSHA1)
	require.NoError(t, err)

	s, err := a.Hash([]byte("secret"))
	require.NoError(t, err)
	assert.True(t, a.Matches([]byte("secret"), s))
	assert.False(t, b.Matches([]byte("secret"), s))
	assert.False(t, a.Matches([]byte("secret"), "zz-not-hex"))
	assert.False(t, a.Matches([]byte("secret"), hex.EncodeToString(make([]byte, 16))))
}

func TestNormalizeDigest(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"sha1":                 DigestSHA1,
		"HmacSHA1":             DigestSHA1,
		"pbkdf2withhmacsha1":   DigestSHA1,
		"sha256":               DigestSHA256,
		"hmacsha256":           DigestSHA256,
		" SHA512 ":             DigestSHA512,
		"hmacsha512":           DigestSHA512,
		"PBKDF2WithHmacSHA256": DigestSHA256,
		"PBKDF2WithHmacMD5":    "PBKDF2WithHmacMD5",
		"md5":                  "md5",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeDigest(in), "input %q", in)
	}
}

func TestPBKDF2UnrecognizedDigest(t *testing.T) {
	t.Parallel()

	for _, d := range []string{"md5", "PBKDF2WithHmacMD5", "sha384"} {
		_, err := NewPBKDF2("", 1000, 16, d)
		require.Error(t, err)
		assert.ErrorIs(t, err, kuerrors.ErrUnrecognizedDigest)
		assert.Contains(t, err.Error(), "unrecognized digest")
	}
}

func TestScryptFormat(t *testing.T) {
	t.Parallel()

	h, err := NewScrypt(16, 8, 1, 32, 16)
	require.NoError(t, err)

	s, err := h.Hash([]byte("secret"))
	require.NoError(t, err)

	parts := strings.Split(s, "$")
	require.Len(t, parts, 4)
	assert.Equal(t, "", parts[0])
	assert.Equal(t, "40801", parts[1], "log2(16)=4, r=8, p=1")
}

func TestScryptMatchesUsesEncodedParameters(t *testing.T) {
	t.Parallel()

	small, err := NewScrypt(16, 8, 1, 32, 16)
	require.NoError(t, err)
	other, err := NewScrypt(32, 4, 2, 16, 8)
	require.NoError(t, err)

	s, err := small.Hash([]byte("secret"))
	require.NoError(t, err)
	assert.True(t, other.Matches([]byte("secret"), s))
	assert.False(t, other.Matches([]byte("secret"), "$zz$abc$def"))
	assert.False(t, other.Matches([]byte("secret"), "$40801$%%%$abc"))
}

func TestScryptParameterValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                        string
		cpu, mem, par, keyLen, salt int
		field                       string
	}{
		{"cpu not power of two", 1000, 8, 1, 32, 16, "cpuCost"},
		{"cpu one", 1, 8, 1, 32, 16, "cpuCost"},
		{"memory zero", 16, 0, 1, 32, 16, "memoryCost"},
		{"parallel zero", 16, 8, 0, 32, 16, "parallelization"},
		{"key zero", 16, 8, 1, 0, 16, "keyLength"},
		{"salt zero", 16, 8, 1, 32, 0, "saltLength"},
	}
	for _, tt := range tests {
		_, err := NewScrypt(tt.cpu, tt.mem, tt.par, tt.keyLen, tt.salt)
		require.Error(t, err, tt.name)
		assert.Contains(t, err.Error(), tt.field, tt.name)
	}
}

func TestArgon2Format(t *testing.T) {
	t.Parallel()

	h, err := NewArgon2(16, 32, 1, 64, 1)
	require.NoError(t, err)

	s, err := h.Hash([]byte("secret"))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\$argon2id\$v=19\$m=64,t=1,p=1\$[A-Za-z0-9+/]{22}\$[A-Za-z0-9+/]{43}$`), s)
}

func TestArgon2MatchesRejectsGarbage(t *testing.T) {
	t.Parallel()

	h, err := NewArgon2(16, 32, 1, 64, 1)
	require.NoError(t, err)

	for _, s := range []string{
		"",
		"$argon2d$v=19$m=64,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=16$m=64,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=64,t=0,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
	} {
		assert.False(t, h.Matches([]byte("secret"), s), "encoded %q", s)
	}
}

func TestArgon2ParameterValidation(t *testing.T) {
	t.Parallel()

	_, err := NewArgon2(0, 32, 1, 64, 1)
	assert.ErrorIs(t, err, kuerrors.ErrInvalidParameter)
	_, err = NewArgon2(16, 32, 4, 16, 1)
	assert.ErrorIs(t, err, kuerrors.ErrInvalidParameter)
	_, err = NewArgon2(16, 32, 1, 64, 0)
	assert.ErrorIs(t, err, kuerrors.ErrInvalidParameter)
}
