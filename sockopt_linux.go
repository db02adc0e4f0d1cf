//go:build linux

// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu

import (
	"net"

	"golang.org/x/sys/unix"
)

// tuneSocket sets SO_REUSEADDR on the bound UDP socket and, when rcvBuf is
// positive, sets SO_RCVBUF to rcvBuf. A larger receive buffer matters here specifically because the reactor
// drains a socket in short, non-blocking bursts rather than parking a
// dedicated goroutine in a blocking read.
func tuneSocket(conn *net.UDPConn, rcvBuf int) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			sockErr = err
			return
		}
		if rcvBuf > 0 {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, rcvBuf)
		}
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return sockErr
}
