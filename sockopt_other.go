//go:build !linux && !darwin

// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu

import "net"

// tuneSocket is a no-op on platforms without a golang.org/x/sys/unix
// socket-option path exercised by this module. There is no cross-platform
// third-party socket-tuning library in the retrieval pack to reach for
// instead, so this fallback stays on the standard library, same as the
// teacher pack's own sockopt_other.go.
func tuneSocket(conn *net.UDPConn, rcvBuf int) error {
	return nil
}
