// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build !(linux || darwin)

package merge

// RaiseFileLimit is a no-op on platforms without setrlimit.
func RaiseFileLimit(want uint64) (uint64, error) {
	return want, nil
}
