package userstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kuerrors "github.com/systmms/karafusers/internal/errors"
)

const karafDefault = `#
# Licensed to the Apache Software Foundation (ASF)
#
! alternate comment style

karaf = karaf,_g_:admingroup
_g_\:admingroup = group,admin,manager,viewer,systembundles,ssh
`

func TestParseKarafDefaultFile(t *testing.T) {
	t.Parallel()

	s, err := Parse([]byte(karafDefault))
	require.NoError(t, err)
	assert.Len(t, s.order, 2)

	karaf, ok := s.lookup("karaf")
	require.True(t, ok)
	assert.Equal(t, User, karaf.Kind)
	assert.Equal(t, "karaf", karaf.Credential)
	assert.Equal(t, []Role{GroupRef("admingroup")}, karaf.Roles)

	group, ok := s.group("admingroup")
	require.True(t, ok)
	assert.Equal(t, Group, group.Kind)
	assert.Equal(t, "admingroup", group.Name)
	assert.Empty(t, group.Credential)
	assert.False(t, group.HasCredential())
	assert.Equal(t, []string{"admin", "manager", "viewer", "systembundles", "ssh"}, tokens(group.Roles))

	// Escaped keys keep their on-disk spelling; whitespace is normalized.
	assert.Equal(t,
		"karaf=karaf,_g_:admingroup\n_g_\\:admingroup=group,admin,manager,viewer,systembundles,ssh\n",
		string(s.Serialize()))
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"alice=abc123,admin\n",
		"alice=abc123,admin\n_g_:ops=deploy,monitor\nbob=xyz789,_g_:ops\n",
		"_g_:admingroup=group,admin,manager\nkaraf={CRYPT}$2a$10$abc{CRYPT},_g_:admingroup,viewer\n",
		"nopass=\n_g_:empty=\n_g_:slot=,a\n",
		"carol=$s0$e0801$c2FsdA==$aGFzaA==\n",
		"dave=hash,_g_:missing,_g_:ops\n",
	}
	for _, in := range inputs {
		s, err := Parse([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, in, string(s.Serialize()))
	}
}

func TestParseGroupSlot(t *testing.T) {
	t.Parallel()

	s, err := Parse([]byte("_g_:ops=deploy,monitor\n_g_:adm=group,admin\n_g_:none=\n"))
	require.NoError(t, err)

	ops, _ := s.group("ops")
	assert.Equal(t, []string{"deploy", "monitor"}, tokens(ops.Roles))

	adm, _ := s.group("adm")
	assert.Equal(t, []string{"admin"}, tokens(adm.Roles))

	none, _ := s.group("none")
	assert.Empty(t, none.Roles)
}

func TestParseNormalizesRoles(t *testing.T) {
	t.Parallel()

	s, err := Parse([]byte("alice=h, admin ,,admin,viewer,\r\n"))
	require.NoError(t, err)

	alice, _ := s.lookup("alice")
	assert.Equal(t, []string{"admin", "viewer"}, tokens(alice.Roles))
	assert.Equal(t, "alice=h,admin,viewer\n", string(s.Serialize()))
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		kind    error
		message string
	}{
		{"missing equals", "alice=a,admin\nbroken line\n", kuerrors.ErrMalformedLine, "line 2"},
		{"duplicate user", "alice=a\nbob=b\nalice=c\n", kuerrors.ErrDuplicateName, "line 3"},
		{"duplicate group", "_g_:g=a\n_g_\\:g=b\n", kuerrors.ErrDuplicateName, "_g_:g"},
		{"empty name", "=hash,admin\n", kuerrors.ErrInvalidName, "line 1"},
		{"empty group name", "_g_:=admin\n", kuerrors.ErrInvalidName, "group"},
		{"control character", "ali\x01ce=hash\n", kuerrors.ErrInvalidName, "line 1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Contains(t, err.Error(), tt.message)
			assert.Equal(t, kuerrors.ExitValidation, kuerrors.ExitCode(err))
		})
	}
}

func TestUserAndGroupShareNamespaceOnlyByKey(t *testing.T) {
	t.Parallel()

	s, err := Parse([]byte("ops=hash\n_g_:ops=deploy\n"))
	require.NoError(t, err)

	users, groups := s.Counts()
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, groups)
	assert.True(t, strings.HasPrefix(string(s.Serialize()), "ops=hash\n"))
}
