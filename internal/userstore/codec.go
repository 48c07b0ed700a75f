package userstore

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	kuerrors "github.com/systmms/karafusers/internal/errors"
)

// Parse reads users.properties content. Blank lines and lines starting with
// '#' or '!' are skipped and are not reproduced by Serialize.
func Parse(data []byte) (*Store, error) {
	s := New()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == '!' {
			continue
		}

		p, err := parseLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		if _, dup := s.byKey[p.Key()]; dup {
			return nil, kuerrors.ValidationError{
				Kind:    kuerrors.ErrDuplicateName,
				Subject: p.Key(),
				Message: fmt.Sprintf("line %d: duplicate entry %q", lineNo, p.Key()),
			}
		}
		s.put(p)
	}
	if err := scanner.Err(); err != nil {
		return nil, kuerrors.IOError{Op: "parse users file", Err: err}
	}
	return s, nil
}

func parseLine(line string, lineNo int) (*Principal, error) {
	rawKey, value, ok := strings.Cut(line, "=")
	if !ok {
		return nil, kuerrors.ValidationError{
			Kind:    kuerrors.ErrMalformedLine,
			Subject: fmt.Sprintf("line %d", lineNo),
			Message: fmt.Sprintf("line %d: missing '=' between name and credential", lineNo),
		}
	}
	rawKey = strings.TrimSpace(rawKey)
	key := strings.ReplaceAll(rawKey, `\:`, ":")

	p := &Principal{key: rawKey}
	if name, isGroup := strings.CutPrefix(key, GroupPrefix); isGroup {
		p.Name, p.Kind = name, Group
	} else {
		p.Name, p.Kind = key, User
	}
	if p.Name == "" || hasControl(p.Name) {
		return nil, kuerrors.ValidationError{
			Kind:    kuerrors.ErrInvalidName,
			Subject: key,
			Message: fmt.Sprintf("line %d: invalid %s name %q", lineNo, p.Kind, key),
		}
	}

	fields := strings.Split(value, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	roles := fields[1:]
	switch {
	case p.Kind == User:
		p.Credential = fields[0]
	case fields[0] == "" || fields[0] == groupPlaceholder:
		p.slot, p.hasSlot = fields[0], true
	default:
		// A group line without a placeholder lists roles only.
		roles = fields
	}
	if p.Kind == Group && len(fields) == 1 && fields[0] == "" {
		p.hasSlot = false
	}

	for _, tok := range roles {
		if tok == "" {
			continue
		}
		p.Roles = appendRoles(p.Roles, ParseRole(tok))
	}
	return p, nil
}

// Serialize writes principals in store order as name=credential,role,...
// with no added whitespace.
func (s *Store) Serialize() []byte {
	var buf bytes.Buffer
	for _, k := range s.order {
		writeLine(&buf, s.byKey[k])
	}
	return buf.Bytes()
}

func writeLine(buf *bytes.Buffer, p *Principal) {
	key := p.key
	if key == "" {
		key = p.Key()
	}
	buf.WriteString(key)
	buf.WriteByte('=')

	fields := make([]string, 0, len(p.Roles)+1)
	switch {
	case p.Kind == User:
		fields = append(fields, p.Credential)
	case p.hasSlot:
		fields = append(fields, p.slot)
	}
	for _, r := range p.Roles {
		fields = append(fields, r.Token())
	}
	buf.WriteString(strings.Join(fields, ","))
	buf.WriteByte('\n')
}
