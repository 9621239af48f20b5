//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package discovery

import "syscall"

// The runtime enables SO_BROADCAST on UDP sockets; address reuse is not
// available here.
func controlSocket(_, _ string, _ syscall.RawConn) error {
	return nil
}
