package codec

import (
	"fmt"
	"sort"
	"strings"

	kuerrors "github.com/systmms/karafusers/internal/errors"
	"github.com/systmms/karafusers/internal/jaas"
)

// SpringSecurityCrypto is the only encryption provider currently supported.
const SpringSecurityCrypto = "spring-security-crypto"

// HasherFactory builds the algorithm-specific part of a codec from configuration.
type HasherFactory func(cfg *jaas.Config) (Hasher, error)

// Registry maps encryption.name values to the algorithms they offer.
type Registry struct {
	providers map[string]map[Algorithm]HasherFactory
}

// NewRegistry creates a registry with the built-in providers.
func NewRegistry() *Registry {
	r := &Registry{providers: make(map[string]map[Algorithm]HasherFactory)}

	r.Register(SpringSecurityCrypto, Bcrypt, newBcryptFromConfig)
	r.Register(SpringSecurityCrypto, PBKDF2, newPBKDF2FromConfig)
	r.Register(SpringSecurityCrypto, Scrypt, newScryptFromConfig)
	r.Register(SpringSecurityCrypto, Argon2, newArgon2FromConfig)

	return r
}

// Register adds or replaces an algorithm for a provider.
func (r *Registry) Register(provider string, algo Algorithm, factory HasherFactory) {
	provider = strings.ToLower(provider)
	if r.providers[provider] == nil {
		r.providers[provider] = make(map[Algorithm]HasherFactory)
	}
	r.providers[provider][algo] = factory
}

// Providers returns the supported provider names, sorted.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Algorithms returns the algorithms of provider, sorted.
func (r *Registry) Algorithms(provider string) []string {
	algos := make([]string, 0)
	for a := range r.providers[strings.ToLower(provider)] {
		algos = append(algos, string(a))
	}
	sort.Strings(algos)
	return algos
}

// Build constructs the codec described by cfg. Disabled encryption is an
// error: passwords are never stored in plaintext.
func (r *Registry) Build(cfg *jaas.Config) (*Wrapped, error) {
	enabled, err := cfg.EncryptionEnabled()
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, kuerrors.ConfigError{
			Kind:       kuerrors.ErrEncryptionDisabled,
			Field:      jaas.KeyEnabled,
			Value:      false,
			Message:    "password encryption is disabled; refusing to store or verify passwords",
			Suggestion: "Set encryption.enabled=true in org.apache.karaf.jaas.cfg",
		}
	}

	provider, ok := cfg.ProviderName()
	if !ok {
		return nil, kuerrors.ConfigError{
			Kind:       kuerrors.ErrMissingProvider,
			Field:      jaas.KeyName,
			Message:    "missing encryption provider",
			Suggestion: fmt.Sprintf("Set encryption.name to one of: %s", strings.Join(r.Providers(), ", ")),
		}
	}
	algos, ok := r.providers[strings.ToLower(provider)]
	if !ok {
		return nil, kuerrors.ConfigError{
			Kind:       kuerrors.ErrUnsupportedProvider,
			Field:      jaas.KeyName,
			Value:      provider,
			Message:    "unsupported encryption provider",
			Suggestion: fmt.Sprintf("Supported: %s", strings.Join(r.Providers(), ", ")),
		}
	}

	algo, ok := cfg.Algorithm()
	if !ok {
		return nil, kuerrors.ConfigError{
			Kind:       kuerrors.ErrMissingAlgorithm,
			Field:      jaas.KeyAlgorithm,
			Message:    fmt.Sprintf("missing encryption algorithm for %s", provider),
			Suggestion: fmt.Sprintf("Expected one of: %s", strings.Join(r.Algorithms(provider), ", ")),
		}
	}
	factory, ok := algos[Algorithm(strings.ToLower(algo))]
	if !ok {
		return nil, kuerrors.ConfigError{
			Kind:       kuerrors.ErrUnsupportedAlgorithm,
			Field:      jaas.KeyAlgorithm,
			Value:      algo,
			Message:    fmt.Sprintf("unsupported %s algorithm", provider),
			Suggestion: fmt.Sprintf("Supported: %s", strings.Join(r.Algorithms(provider), ", ")),
		}
	}

	hasher, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	return New(hasher, cfg.Prefix(), cfg.Suffix()), nil
}

// Build uses the built-in registry.
func Build(cfg *jaas.Config) (*Wrapped, error) {
	return NewRegistry().Build(cfg)
}

func newBcryptFromConfig(cfg *jaas.Config) (Hasher, error) {
	strength, err := cfg.Int("encryption.bcrypt.strength", DefaultBcryptStrength)
	if err != nil {
		return nil, err
	}
	return NewBcrypt(strength)
}

func newPBKDF2FromConfig(cfg *jaas.Config) (Hasher, error) {
	secret, err := cfg.Secret("encryption.pbkdf2.secret", "")
	if err != nil {
		return nil, err
	}
	iterations, err := cfg.Int("encryption.pbkdf2.iterations", DefaultPBKDF2Iterations)
	if err != nil {
		return nil, err
	}
	saltLength, err := cfg.Int("encryption.pbkdf2.saltLength", DefaultPBKDF2SaltLength)
	if err != nil {
		return nil, err
	}
	digest := cfg.StringOr("encryption.pbkdf2.algorithm", DefaultPBKDF2Digest)
	return NewPBKDF2(secret, iterations, saltLength, digest)
}

func newScryptFromConfig(cfg *jaas.Config) (Hasher, error) {
	ints, err := readInts(cfg, []intParam{
		{"encryption.scrypt.cpuCost", DefaultScryptCPUCost},
		{"encryption.scrypt.memoryCost", DefaultScryptMemoryCost},
		{"encryption.scrypt.parallelization", DefaultScryptParallelization},
		{"encryption.scrypt.keyLength", DefaultScryptKeyLength},
		{"encryption.scrypt.saltLength", DefaultScryptSaltLength},
	})
	if err != nil {
		return nil, err
	}
	return NewScrypt(ints[0], ints[1], ints[2], ints[3], ints[4])
}

func newArgon2FromConfig(cfg *jaas.Config) (Hasher, error) {
	ints, err := readInts(cfg, []intParam{
		{"encryption.argon2.saltLength", DefaultArgon2SaltLength},
		{"encryption.argon2.hashLength", DefaultArgon2HashLength},
		{"encryption.argon2.parallelism", DefaultArgon2Parallelism},
		{"encryption.argon2.memory", DefaultArgon2Memory},
		{"encryption.argon2.iterations", DefaultArgon2Iterations},
	})
	if err != nil {
		return nil, err
	}
	return NewArgon2(ints[0], ints[1], ints[2], ints[3], ints[4])
}

type intParam struct {
	key string
	def int
}

func readInts(cfg *jaas.Config, params []intParam) ([]int, error) {
	out := make([]int, len(params))
	for i, p := range params {
		v, err := cfg.Int(p.key, p.def)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func invalidParam(key string, value interface{}, msg string) error {
	return kuerrors.ConfigError{
		Kind:    kuerrors.ErrInvalidParameter,
		Field:   key,
		Value:   value,
		Message: msg,
	}
}
