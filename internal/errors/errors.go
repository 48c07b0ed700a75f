package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Security violations
var (
	ErrFileNotFound          = errors.New("file not found")
	ErrNotRegularFile        = errors.New("not a regular file")
	ErrSymlinkRejected       = errors.New("symlink rejected")
	ErrUnsupportedFilesystem = errors.New("filesystem does not support POSIX permissions")
	ErrInsecurePermissions   = errors.New("insecure permissions")
	ErrOwnershipMismatch     = errors.New("ownership mismatch")
)

// Configuration errors
var (
	ErrEncryptionDisabled   = errors.New("encryption disabled")
	ErrMissingProvider      = errors.New("missing encryption provider")
	ErrUnsupportedProvider  = errors.New("unsupported encryption provider")
	ErrMissingAlgorithm     = errors.New("missing encryption algorithm")
	ErrUnsupportedAlgorithm = errors.New("unsupported encryption algorithm")
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrUnrecognizedDigest   = errors.New("unrecognized digest")
)

// Validation errors
var (
	ErrMalformedLine    = errors.New("malformed line")
	ErrDuplicateName    = errors.New("duplicate name")
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidRole      = errors.New("invalid role")
	ErrInvalidInput     = errors.New("invalid input")
	ErrAlreadyExists    = errors.New("already exists")
	ErrNotFound         = errors.New("not found")
	ErrIsGroup          = errors.New("is a group")
	ErrUnknownGroup     = errors.New("unknown group")
	ErrNoOpRequested    = errors.New("no changes requested")
	ErrPasswordMismatch = errors.New("password does not match")
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// UsageError is returned for invalid command usage (bad flags, conflicting options).
type UsageError struct {
	Message    string
	Suggestion string
}

func (e UsageError) Error() string {
	if e.Suggestion != "" {
		return e.Message + "\n  Try: " + e.Suggestion
	}
	return e.Message
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Kind       error
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  " + e.Suggestion
	}

	return msg
}

func (e ConfigError) Unwrap() error {
	return e.Kind
}

// SecurityError is a refusal to operate on a file that could leak or tamper with credentials.
type SecurityError struct {
	Kind       error
	Path       string
	Message    string
	Suggestion string
}

func (e SecurityError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Path != "" && !strings.Contains(msg, e.Path) {
		msg += ": " + e.Path
	}
	if e.Suggestion != "" {
		msg += "\n  Fix with: " + e.Suggestion
	}
	return msg
}

func (e SecurityError) Unwrap() error {
	return e.Kind
}

// ValidationError reports bad user, role or group state.
type ValidationError struct {
	Kind    error
	Subject string
	Message string
}

func (e ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Subject != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Subject)
	}
	return e.Kind.Error()
}

func (e ValidationError) Unwrap() error {
	return e.Kind
}

// IOError wraps a filesystem failure with the protocol step that failed.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e IOError) Unwrap() error {
	return e.Err
}

// Exit codes are stable for scripting.
const (
	ExitOK         = 0
	ExitUsage      = 2
	ExitSecurity   = 3
	ExitConfig     = 4
	ExitValidation = 5
	ExitIO         = 6
	ExitSoftware   = 10
)

// ExitCode maps an error to the process exit code of its class.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		usageErr      UsageError
		securityErr   SecurityError
		configErr     ConfigError
		validationErr ValidationError
		ioErr         IOError
	)

	switch {
	case errors.As(err, &usageErr):
		return ExitUsage
	case errors.As(err, &securityErr):
		return ExitSecurity
	case errors.As(err, &configErr):
		return ExitConfig
	case errors.As(err, &validationErr):
		return ExitValidation
	case errors.As(err, &ioErr):
		return ExitIO
	}
	return ExitSoftware
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	var (
		userErr       UserError
		usageErr      UsageError
		configErr     ConfigError
		securityErr   SecurityError
		validationErr ValidationError
		ioErr         IOError
	)
	if errors.As(err, &userErr) || errors.As(err, &usageErr) || errors.As(err, &configErr) ||
		errors.As(err, &securityErr) || errors.As(err, &validationErr) || errors.As(err, &ioErr) {
		return err
	}

	if errors.Is(err, fs.ErrPermission) {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run as the owner of the users file",
			Err:        err,
		}
	}

	if errors.Is(err, fs.ErrNotExist) {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	// Return original error if we can't simplify it
	return err
}
