package userstore

import "bytes"

// ChangeOp is the kind of difference between two stores.
type ChangeOp string

const (
	Added    ChangeOp = "added"
	Removed  ChangeOp = "removed"
	Modified ChangeOp = "modified"
)

// Change is one principal-level difference.
type Change struct {
	Op   ChangeOp
	Key  string
	Kind Kind
	// CredentialChanged is set on modified users whose stored hash differs.
	CredentialChanged bool
}

// Diff lists the principals that differ between before and after, in the
// order they appear in after, followed by removals in before's order.
func Diff(before, after *Store) []Change {
	var changes []Change
	for _, k := range after.order {
		p := after.byKey[k]
		old, ok := before.byKey[k]
		switch {
		case !ok:
			changes = append(changes, Change{Op: Added, Key: k, Kind: p.Kind})
		case !sameLine(old, p):
			changes = append(changes, Change{
				Op:                Modified,
				Key:               k,
				Kind:              p.Kind,
				CredentialChanged: old.Credential != p.Credential,
			})
		}
	}
	for _, k := range before.order {
		if _, ok := after.byKey[k]; !ok {
			changes = append(changes, Change{Op: Removed, Key: k, Kind: before.byKey[k].Kind})
		}
	}
	return changes
}

func sameLine(a, b *Principal) bool {
	var x, y bytes.Buffer
	writeLine(&x, a)
	writeLine(&y, b)
	return bytes.Equal(x.Bytes(), y.Bytes())
}
