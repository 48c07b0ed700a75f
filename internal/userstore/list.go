package userstore

import (
	"iter"
	"slices"
)

// Entry is a listing row. It never carries the credential itself.
type Entry struct {
	Name          string
	HasCredential bool
	Roles         []string
	Groups        []string
}

// Users yields every user in store order. With resolveGroups, a group
// reference is replaced by that group's plain roles; references to missing
// groups, and groups nested inside groups, are kept as literal tokens.
// The sequence can be ranged over any number of times.
func (s *Store) Users(resolveGroups bool) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, k := range s.order {
			p := s.byKey[k]
			if p.IsGroup() {
				continue
			}
			if !yield(s.entry(p, resolveGroups)) {
				return
			}
		}
	}
}

// Groups yields every group in store order with its own role tokens.
func (s *Store) Groups() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, k := range s.order {
			p := s.byKey[k]
			if !p.IsGroup() {
				continue
			}
			if !yield(s.entry(p, false)) {
				return
			}
		}
	}
}

func (s *Store) entry(p *Principal, resolveGroups bool) Entry {
	e := Entry{Name: p.Name, HasCredential: p.HasCredential()}
	for _, r := range p.Roles {
		if r.Group {
			e.Groups = append(e.Groups, r.Name)
		}
	}
	if !resolveGroups {
		e.Roles = tokens(p.Roles)
		return e
	}

	e.Roles = []string{}
	add := func(tok string) {
		if !slices.Contains(e.Roles, tok) {
			e.Roles = append(e.Roles, tok)
		}
	}
	for _, r := range p.Roles {
		if !r.Group {
			add(r.Name)
			continue
		}
		group, ok := s.byKey[GroupPrefix+r.Name]
		if !ok {
			add(r.Token())
			continue
		}
		for _, gr := range group.Roles {
			add(gr.Token())
		}
	}
	return e
}

func tokens(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.Token())
	}
	return out
}
