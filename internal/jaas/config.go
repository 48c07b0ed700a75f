// Package jaas reads the encryption settings of org.apache.karaf.jaas.cfg.
package jaas

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/magiconair/properties"
	kuerrors "github.com/systmms/karafusers/internal/errors"
)

// Well-known keys.
const (
	KeyEnabled   = "encryption.enabled"
	KeyName      = "encryption.name"
	KeyAlgorithm = "encryption.algorithm"
	KeyPrefix    = "encryption.prefix"
	KeySuffix    = "encryption.suffix"
)

// Config is an immutable, typed view over the raw key/value pairs of a jaas
// .cfg file.
type Config struct {
	path string
	raw  map[string]string
}

// Load parses the file at path. A missing file is a ConfigError.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kuerrors.ConfigError{
				Field:      "jaas-cfg",
				Value:      path,
				Message:    "org.apache.karaf.jaas.cfg not found",
				Suggestion: "Pass --jaas-cfg or set KARAF_JAAS_CFG / KARAF_ETC",
			}
		}
		return nil, kuerrors.IOError{Op: "read", Path: path, Err: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.path = path
	return cfg, nil
}

// Parse reads .cfg content (Java properties syntax). ${...} references are
// kept verbatim since they are resolved by the OSGi container, not here.
func Parse(data []byte) (*Config, error) {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	props, err := loader.LoadBytes(data)
	if err != nil {
		return nil, kuerrors.ConfigError{
			Message:    fmt.Sprintf("invalid jaas configuration: %v", err),
			Suggestion: "Check the file uses key=value lines",
		}
	}
	return &Config{raw: props.Map()}, nil
}

// FromMap builds a Config from already parsed pairs.
func FromMap(m map[string]string) *Config {
	raw := make(map[string]string, len(m))
	for k, v := range m {
		raw[k] = v
	}
	return &Config{raw: raw}
}

// Path returns the file the configuration was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}

// Keys returns all keys in sorted order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.raw))
	for k := range c.raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EncryptionEnabled defaults to true when the key is absent, matching Karaf.
func (c *Config) EncryptionEnabled() (bool, error) {
	return c.Bool(KeyEnabled, true)
}

// ProviderName returns encryption.name, trimmed; ok is false when unset or blank.
func (c *Config) ProviderName() (string, bool) {
	return c.nonBlank(KeyName)
}

// Algorithm returns encryption.algorithm, trimmed; ok is false when unset or blank.
func (c *Config) Algorithm() (string, bool) {
	return c.nonBlank(KeyAlgorithm)
}

// Prefix wraps the stored encoding, e.g. "{CRYPT}".
func (c *Config) Prefix() string {
	v, _ := c.String(KeyPrefix)
	return v
}

// Suffix wraps the stored encoding.
func (c *Config) Suffix() string {
	v, _ := c.String(KeySuffix)
	return v
}

// String returns the raw value of key.
func (c *Config) String(key string) (string, bool) {
	v, ok := c.raw[key]
	return v, ok
}

// StringOr returns the raw value of key or def when absent.
func (c *Config) StringOr(key, def string) string {
	if v, ok := c.raw[key]; ok {
		return v
	}
	return def
}

// Int returns the integer value of key, def when absent or blank. A
// malformed number is a ConfigError naming the key.
func (c *Config) Int(key string, def int) (int, error) {
	v, ok := c.nonBlank(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, kuerrors.ConfigError{
			Kind:    kuerrors.ErrInvalidParameter,
			Field:   key,
			Value:   v,
			Message: "expected an integer",
		}
	}
	return n, nil
}

// Bool returns the boolean value of key, def when absent.
func (c *Config) Bool(key string, def bool) (bool, error) {
	v, ok := c.raw[key]
	if !ok {
		return def, nil
	}
	return ParseBool(key, v)
}

// ParseBool accepts true/yes/on/1 and false/no/off/0, case-insensitively.
// Anything else is a format error; there is no fallback.
func ParseBool(key, value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, kuerrors.ConfigError{
		Kind:       kuerrors.ErrInvalidParameter,
		Field:      key,
		Value:      value,
		Message:    "invalid boolean value",
		Suggestion: "Use one of true/yes/on/1 or false/no/off/0",
	}
}

func (c *Config) nonBlank(key string) (string, bool) {
	v, ok := c.raw[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
