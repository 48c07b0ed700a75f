package secure

import (
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
)

// Password holds a plaintext password sealed in a memguard enclave.
// The zero value and nil are both an empty password.
type Password struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	destroyed bool
}

// NewPassword seals data into a Password. data is wiped by memguard once it
// has been copied; callers must not reuse it.
func NewPassword(data []byte) *Password {
	// memguard returns a nil enclave for empty input, which Empty reports.
	return &Password{enclave: memguard.NewEnclave(data)}
}

// PasswordFromString seals a copy of s. The string itself cannot be wiped,
// so prefer NewPassword for values read from a terminal.
func PasswordFromString(s string) *Password {
	return NewPassword([]byte(s))
}

// Empty reports whether the password has no content or has been destroyed.
func (p *Password) Empty() bool {
	if p == nil {
		return true
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.destroyed || p.enclave == nil || p.enclave.Size() == 0
}

// Use opens the enclave and passes the plaintext to fn. The plaintext slice
// is only valid for the duration of fn and is wiped afterwards.
func (p *Password) Use(fn func(plain []byte) error) error {
	if p.Empty() {
		return fn(nil)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	locked, err := p.enclave.Open()
	if err != nil {
		return fmt.Errorf("failed to open password enclave: %w", err)
	}
	defer locked.Destroy()

	return fn(locked.Bytes())
}

// Equal compares two passwords in constant time without exposing either
// outside a locked buffer.
func (p *Password) Equal(other *Password) (bool, error) {
	var equal bool
	err := p.Use(func(a []byte) error {
		return other.Use(func(b []byte) error {
			equal = subtle.ConstantTimeCompare(a, b) == 1
			return nil
		})
	})
	return equal, err
}

// Destroy drops the enclave. It is idempotent; after Destroy the password
// reports Empty.
func (p *Password) Destroy() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.enclave = nil
	p.destroyed = true
}
