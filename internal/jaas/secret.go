package jaas

import (
	"errors"
	"fmt"
	"strings"

	kuerrors "github.com/systmms/karafusers/internal/errors"
	"github.com/zalando/go-keyring"
)

// KeyringPrefix marks a value that lives in the OS keychain rather than in
// the .cfg file: keyring:<service>/<account>.
const KeyringPrefix = "keyring:"

// Sensitive reports whether key holds secret material that must not be
// logged.
func Sensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.HasSuffix(k, ".secret") || strings.Contains(k, "password")
}

// Secret returns the value of key, resolving keyring references. Absent keys
// yield def.
func (c *Config) Secret(key, def string) (string, error) {
	v, ok := c.String(key)
	if !ok {
		return def, nil
	}
	if !strings.HasPrefix(v, KeyringPrefix) {
		return v, nil
	}

	service, account, err := parseKeyringRef(strings.TrimPrefix(v, KeyringPrefix))
	if err != nil {
		return "", kuerrors.ConfigError{
			Kind:       kuerrors.ErrInvalidParameter,
			Field:      key,
			Value:      v,
			Message:    err.Error(),
			Suggestion: "Use keyring:<service>/<account>",
		}
	}

	secret, err := keyring.Get(service, account)
	if err != nil {
		msg := fmt.Sprintf("keyring lookup failed: %v", err)
		if errors.Is(err, keyring.ErrNotFound) {
			msg = fmt.Sprintf("no keyring entry for service %q account %q", service, account)
		}
		return "", kuerrors.ConfigError{
			Kind:    kuerrors.ErrInvalidParameter,
			Field:   key,
			Message: msg,
		}
	}
	return secret, nil
}

func parseKeyringRef(ref string) (string, string, error) {
	service, account, ok := strings.Cut(ref, "/")
	if !ok || service == "" || account == "" {
		return "", "", fmt.Errorf("malformed keyring reference %q", ref)
	}
	return service, account, nil
}
