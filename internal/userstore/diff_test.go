package userstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	t.Parallel()

	before := mustParse(t, sample)

	added, err := before.AddUser("carol", []byte("pw"), nil, []string{"ops"}, fakeCodec{})
	require.NoError(t, err)
	edited, err := added.EditUser("bob", Edit{Password: []byte("new")}, fakeCodec{})
	require.NoError(t, err)
	after, err := edited.DeleteUser("alice")
	require.NoError(t, err)

	assert.Equal(t, []Change{
		{Op: Modified, Key: "bob", Kind: User, CredentialChanged: true},
		{Op: Added, Key: "carol", Kind: User},
		{Op: Removed, Key: "alice", Kind: User},
	}, Diff(before, after))

	assert.Empty(t, Diff(before, before))
}
