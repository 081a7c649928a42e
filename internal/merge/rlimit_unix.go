// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build linux || darwin

package merge

import "golang.org/x/sys/unix"

// RaiseFileLimit raises the soft limit on open files to at least want,
// capped at the hard limit, and returns the resulting soft limit.
func RaiseFileLimit(want uint64) (uint64, error) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, err
	}
	target := max(lim.Cur, want)
	if target > lim.Max {
		target = lim.Max
	}
	if target == lim.Cur {
		return lim.Cur, nil
	}
	lim.Cur = target
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, err
	}
	return target, nil
}
