//go:build !unix

package fsguard

func fileOwner(string) (uint32, bool) {
	return 0, false
}

func checkFilesystem(path string) error {
	return unsupported(path, "this platform has no POSIX permission model")
}
