// Package userstore models the Karaf users.properties file: users with a
// stored credential and roles, and groups encoded as principals whose name
// carries the "_g_:" prefix.
//
// A Store is immutable through its API. Mutations return a new Store and
// leave the receiver untouched, so a failed operation never has partial
// effects.
package userstore

import (
	"slices"
	"strings"
)

// GroupPrefix marks group principals and group references in role lists.
const GroupPrefix = "_g_:"

// groupPlaceholder is what Karaf writes in the credential slot of a group.
const groupPlaceholder = "group"

// Kind distinguishes users from groups.
type Kind int

const (
	User Kind = iota
	Group
)

func (k Kind) String() string {
	if k == Group {
		return "group"
	}
	return "user"
}

// Role is one entry of a role list: a plain role, or a reference to a group.
type Role struct {
	Name  string
	Group bool
}

// ParseRole decodes a role token as written in the file.
func ParseRole(token string) Role {
	if name, ok := strings.CutPrefix(token, GroupPrefix); ok && name != "" {
		return Role{Name: name, Group: true}
	}
	return Role{Name: token}
}

// GroupRef returns the role referencing group name.
func GroupRef(name string) Role {
	return Role{Name: name, Group: true}
}

// Token encodes the role as written in the file.
func (r Role) Token() string {
	if r.Group {
		return GroupPrefix + r.Name
	}
	return r.Name
}

func (r Role) String() string { return r.Token() }

// Principal is one entry of the store.
type Principal struct {
	// Name excludes GroupPrefix for groups.
	Name       string
	Kind       Kind
	Credential string
	Roles      []Role

	// key is the name as it appeared on disk, escapes included.
	key string
	// slot holds a group's credential placeholder when the line had one.
	slot    string
	hasSlot bool
}

// Key returns the store key: the name, with GroupPrefix for groups.
func (p Principal) Key() string {
	return keyFor(p.Name, p.Kind)
}

// IsGroup reports whether p is a group.
func (p Principal) IsGroup() bool { return p.Kind == Group }

// HasCredential reports whether a password hash is stored.
func (p Principal) HasCredential() bool {
	return p.Kind == User && p.Credential != ""
}

func (p Principal) clone() *Principal {
	c := p
	c.Roles = slices.Clone(p.Roles)
	return &c
}

func keyFor(name string, kind Kind) string {
	if kind == Group {
		return GroupPrefix + name
	}
	return name
}

// Store is an ordered collection of principals sharing one namespace.
type Store struct {
	order []string
	byKey map[string]*Principal
}

// New returns an empty store.
func New() *Store {
	return &Store{byKey: make(map[string]*Principal)}
}

// Counts returns the number of users and groups.
func (s *Store) Counts() (users, groups int) {
	for _, k := range s.order {
		if s.byKey[k].IsGroup() {
			groups++
		} else {
			users++
		}
	}
	return users, groups
}

// lookup returns a copy of the principal stored under key. Groups are found
// by their prefixed key.
func (s *Store) lookup(key string) (Principal, bool) {
	p, ok := s.byKey[key]
	if !ok {
		return Principal{}, false
	}
	return *p.clone(), true
}

// group returns the group called name (without prefix).
func (s *Store) group(name string) (Principal, bool) {
	return s.lookup(GroupPrefix + name)
}

func (s *Store) clone() *Store {
	c := &Store{
		order: slices.Clone(s.order),
		byKey: make(map[string]*Principal, len(s.byKey)),
	}
	for k, p := range s.byKey {
		c.byKey[k] = p
	}
	return c
}

func (s *Store) put(p *Principal) {
	k := p.Key()
	if _, exists := s.byKey[k]; !exists {
		s.order = append(s.order, k)
	}
	s.byKey[k] = p
}

func (s *Store) remove(key string) {
	delete(s.byKey, key)
	s.order = slices.DeleteFunc(s.order, func(k string) bool { return k == key })
}

// appendRoles adds roles not already present, keeping order.
func appendRoles(dst []Role, roles ...Role) []Role {
	for _, r := range roles {
		if !slices.Contains(dst, r) {
			dst = append(dst, r)
		}
	}
	return dst
}
