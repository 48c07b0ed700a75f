package userstore

import (
	"fmt"
	"slices"
	"strings"

	kuerrors "github.com/systmms/karafusers/internal/errors"
)

// Encoder turns a plaintext password into its stored form.
type Encoder interface {
	Encode(plain []byte) (string, error)
}

// Verifier checks a plaintext password against a stored form.
type Verifier interface {
	Verify(plain []byte, stored string) (bool, error)
}

// Edit describes the changes applied by EditUser. A nil Password leaves the
// credential unchanged.
type Edit struct {
	AddRoles     []string
	RemoveRoles  []string
	AddGroups    []string
	RemoveGroups []string
	Password     []byte
}

// Empty reports whether the edit changes nothing.
func (e Edit) Empty() bool {
	return len(e.AddRoles) == 0 && len(e.RemoveRoles) == 0 &&
		len(e.AddGroups) == 0 && len(e.RemoveGroups) == 0 && e.Password == nil
}

// AddUser returns a store with a new user holding roles followed by a
// reference to each of groups. Every group must already exist.
func (s *Store) AddUser(name string, plain []byte, roles, groups []string, enc Encoder) (*Store, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if _, exists := s.byKey[name]; exists {
		return nil, kuerrors.ValidationError{
			Kind:    kuerrors.ErrAlreadyExists,
			Subject: name,
			Message: fmt.Sprintf("user %q already exists", name),
		}
	}

	var list []Role
	for _, r := range roles {
		if err := ValidateRole(r); err != nil {
			return nil, err
		}
		list = appendRoles(list, Role{Name: r})
	}
	refs, err := s.groupRefs(groups)
	if err != nil {
		return nil, err
	}
	list = appendRoles(list, refs...)

	credential, err := encode(enc, plain)
	if err != nil {
		return nil, err
	}

	next := s.clone()
	next.put(&Principal{Name: name, Kind: User, Credential: credential, Roles: list})
	return next, nil
}

// DeleteUser returns a store without name. References other principals
// hold to it are left alone.
func (s *Store) DeleteUser(name string) (*Store, error) {
	if _, err := s.user(name); err != nil {
		return nil, err
	}
	next := s.clone()
	next.remove(name)
	return next, nil
}

// EditUser returns a store where name's roles are
// (current ∪ AddRoles ∪ AddGroups) − RemoveRoles − RemoveGroups and, when
// Password is set, its credential is re-encoded.
func (s *Store) EditUser(name string, e Edit, enc Encoder) (*Store, error) {
	current, err := s.user(name)
	if err != nil {
		return nil, err
	}
	if e.Empty() {
		return nil, kuerrors.ValidationError{
			Kind:    kuerrors.ErrNoOpRequested,
			Subject: name,
			Message: fmt.Sprintf("no changes requested for user %q", name),
		}
	}

	updated := current.clone()
	for _, r := range e.AddRoles {
		if err := ValidateRole(r); err != nil {
			return nil, err
		}
		updated.Roles = appendRoles(updated.Roles, Role{Name: r})
	}
	refs, err := s.groupRefs(e.AddGroups)
	if err != nil {
		return nil, err
	}
	updated.Roles = appendRoles(updated.Roles, refs...)

	drop := make([]Role, 0, len(e.RemoveRoles)+len(e.RemoveGroups))
	for _, r := range e.RemoveRoles {
		drop = append(drop, ParseRole(r))
	}
	for _, g := range e.RemoveGroups {
		drop = append(drop, GroupRef(g))
	}
	updated.Roles = slices.DeleteFunc(updated.Roles, func(r Role) bool {
		return slices.Contains(drop, r)
	})

	if e.Password != nil {
		credential, err := encode(enc, e.Password)
		if err != nil {
			return nil, err
		}
		updated.Credential = credential
	}

	next := s.clone()
	next.put(updated)
	return next, nil
}

// VerifyUser reports whether plain matches name's stored credential.
func (s *Store) VerifyUser(name string, plain []byte, v Verifier) (bool, error) {
	p, err := s.user(name)
	if err != nil {
		return false, err
	}
	return v.Verify(plain, p.Credential)
}

// encode refuses stored forms the users file cannot hold: a comma would be
// read back as a role separator.
func encode(enc Encoder, plain []byte) (string, error) {
	credential, err := enc.Encode(plain)
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(credential, ",\n\r") {
		return "", kuerrors.ValidationError{
			Kind:    kuerrors.ErrInvalidInput,
			Message: "encoded password contains ',' or a line break and cannot be stored in users.properties",
		}
	}
	return credential, nil
}

// user finds a user by key, refusing groups.
func (s *Store) user(name string) (*Principal, error) {
	p, ok := s.byKey[name]
	if !ok {
		return nil, kuerrors.ValidationError{
			Kind:    kuerrors.ErrNotFound,
			Subject: name,
			Message: fmt.Sprintf("user %q not found", name),
		}
	}
	if p.IsGroup() {
		return nil, kuerrors.ValidationError{
			Kind:    kuerrors.ErrIsGroup,
			Subject: name,
			Message: fmt.Sprintf("%q is a group, not a user", name),
		}
	}
	return p, nil
}

func (s *Store) groupRefs(groups []string) ([]Role, error) {
	refs := make([]Role, 0, len(groups))
	for _, g := range groups {
		if err := validateGroupName(g); err != nil {
			return nil, err
		}
		if _, ok := s.group(g); !ok {
			return nil, kuerrors.ValidationError{
				Kind:    kuerrors.ErrUnknownGroup,
				Subject: g,
				Message: fmt.Sprintf("group %q does not exist", g),
			}
		}
		refs = append(refs, GroupRef(g))
	}
	return refs, nil
}
