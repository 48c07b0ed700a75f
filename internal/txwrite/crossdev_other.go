//go:build !unix

package txwrite

func isCrossDevice(error) bool {
	return false
}
