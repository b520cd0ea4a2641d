//go:build !unix && !windows

package storage

// lockFile is a no-op where advisory locks are unavailable; only the
// in-process mutex applies.
func lockFile(string) (func(), error) {
	return func() {}, nil
}
