//go:build linux

// setuid/setgid are process-wide on every other Unix but per-thread on Linux, so Go's runtime
// (which schedules goroutines across OS threads) can't make them stick for the whole process. See
// https://github.com/golang/go/issues/1435. Chroot still works and is the only privilege drop this
// package can offer on Linux.
package osutil

const (
	setuidAllowed = false
	setgidAllowed = false
)
