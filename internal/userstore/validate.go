package userstore

import (
	"fmt"
	"strings"
	"unicode"

	kuerrors "github.com/systmms/karafusers/internal/errors"
)

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

// ValidateName checks a name for a new user. Characters that the properties
// grammar treats as separators are refused.
func ValidateName(name string) error {
	invalid := func(reason string) error {
		return kuerrors.ValidationError{
			Kind:    kuerrors.ErrInvalidName,
			Subject: name,
			Message: fmt.Sprintf("invalid user name %q: %s", name, reason),
		}
	}
	switch {
	case name == "":
		return invalid("must not be empty")
	case strings.HasPrefix(name, GroupPrefix):
		return invalid(fmt.Sprintf("the %q prefix is reserved for groups", GroupPrefix))
	case hasControl(name):
		return invalid("contains control characters")
	case strings.IndexFunc(name, unicode.IsSpace) >= 0:
		return invalid("contains whitespace")
	case strings.ContainsAny(name, "=:,"):
		return invalid("contains '=', ':' or ','")
	case name[0] == '#' || name[0] == '!':
		return invalid("would be read as a comment")
	}
	return nil
}

// ValidateRole checks a plain role name.
func ValidateRole(role string) error {
	invalid := func(reason string) error {
		return kuerrors.ValidationError{
			Kind:    kuerrors.ErrInvalidRole,
			Subject: role,
			Message: fmt.Sprintf("invalid role %q: %s", role, reason),
		}
	}
	switch {
	case role == "":
		return invalid("must not be empty")
	case strings.HasPrefix(role, GroupPrefix):
		return invalid("use a group instead of the group prefix")
	case hasControl(role):
		return invalid("contains control characters")
	case strings.TrimSpace(role) != role:
		return invalid("has leading or trailing whitespace")
	case strings.Contains(role, ","):
		return invalid("contains ','")
	}
	return nil
}

func validateGroupName(group string) error {
	if group == "" || hasControl(group) || strings.ContainsAny(group, ",=") ||
		strings.TrimSpace(group) != group || strings.HasPrefix(group, GroupPrefix) {
		return kuerrors.ValidationError{
			Kind:    kuerrors.ErrInvalidName,
			Subject: group,
			Message: fmt.Sprintf("invalid group name %q", group),
		}
	}
	return nil
}
