package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kuerrors "github.com/systmms/karafusers/internal/errors"
	"github.com/systmms/karafusers/internal/logging"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var toolSchema string

// Config holds the runtime configuration
type Config struct {
	Path           string // tool config file (--config)
	Logger         *logging.Logger
	NonInteractive bool
	Env            Env

	UsersFile   string
	JaasCfg     string
	Backup      bool
	DryRun      bool
	MetricsFile string

	File *File // nil until Load finds a file
}

// File is the optional karaf-users config.yaml.
type File struct {
	Version     int    `yaml:"version"`
	UsersFile   string `yaml:"usersFile,omitempty"`
	JaasCfg     string `yaml:"jaasCfg,omitempty"`
	Backup      *bool  `yaml:"backup,omitempty"`
	MetricsFile string `yaml:"metricsFile,omitempty"`
}

// Load reads and validates the tool config file. A missing file is only an
// error when required is set (the path came from --config).
func (c *Config) Load(required bool) error {
	if c.Path == "" {
		return nil
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			if !required {
				c.Logger.Debug("No tool config at %s", c.Path)
				return nil
			}
			return kuerrors.ConfigError{
				Field:      "config",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Check the --config path",
			}
		}
		return kuerrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	file, err := ParseFile(data)
	if err != nil {
		return err
	}
	c.File = file
	c.Logger.Debug("Loaded tool config from %s", c.Path)
	return nil
}

// ParseFile validates data against the embedded schema and decodes it.
func ParseFile(data []byte) (*File, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, kuerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}
	if raw == nil {
		return &File{}, nil
	}

	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, kuerrors.ConfigError{Message: fmt.Sprintf("invalid configuration: %v", err)}
	}
	if file.Version != 0 {
		return nil, kuerrors.ConfigError{
			Field:      "version",
			Value:      file.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' or remove the key",
		}
	}
	return &file, nil
}

func validateSchema(doc interface{}) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return kuerrors.ConfigError{Message: fmt.Sprintf("configuration is not representable as JSON: %v", err)}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(toolSchema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var messages []string
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return kuerrors.ConfigError{
			Message:    "schema validation failed:\n  - " + strings.Join(messages, "\n  - "),
			Suggestion: "Allowed keys: version, usersFile, jaasCfg, backup, metricsFile",
		}
	}
	return nil
}

// Merge copies file values into c for every setting whose flag was not set
// explicitly. Relative paths in the file are taken relative to the file.
func (c *Config) Merge(changed func(flag string) bool) {
	if c.File == nil {
		return
	}
	base := filepath.Dir(c.Path)
	rel := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	if !changed("users-file") && c.File.UsersFile != "" {
		c.UsersFile = rel(c.File.UsersFile)
	}
	if !changed("jaas-cfg") && c.File.JaasCfg != "" {
		c.JaasCfg = rel(c.File.JaasCfg)
	}
	if !changed("backup") && c.File.Backup != nil {
		c.Backup = *c.File.Backup
	}
	if !changed("metrics-file") && c.File.MetricsFile != "" {
		c.MetricsFile = rel(c.File.MetricsFile)
	}
}

// ResolvePaths turns the configured users file and jaas cfg into absolute
// paths using the startup environment.
func (c *Config) ResolvePaths() (usersFile, jaasCfg string) {
	return ResolveUsersFile(c.UsersFile, c.Env), ResolveJaasCfg(c.JaasCfg, c.Env)
}
