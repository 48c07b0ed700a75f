// Package secure keeps plaintext passwords out of ordinary Go memory between
// the moment they are read from the terminal and the moment they are hashed.
//
// A Password seals its bytes into a memguard enclave (encrypted at rest in
// memory, mlocked where the platform allows). The plaintext is only exposed
// inside Use, in a locked buffer that is wiped as soon as the callback
// returns:
//
//	pw := secure.NewPassword(raw) // raw is wiped
//	defer pw.Destroy()
//
//	err := pw.Use(func(plain []byte) error {
//	    stored, err = codec.Encode(plain)
//	    return err
//	})
//
// Call memguard.Purge before the process exits to wipe any remaining
// enclave keys.
package secure
