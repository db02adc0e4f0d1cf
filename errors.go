// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu

import (
	"errors"
	"net"
)

// ErrChannelClosed is returned by [Emulator.Start] when called on an
// instance that has already been stopped. Instances are not reusable;
// construct a new one instead.
var ErrChannelClosed = errors.New("jnetemu: instance already stopped")

// ErrInterrupted is returned by [Emulator.Stop] when the caller is
// cancelled while waiting for the reactor thread to join.
var ErrInterrupted = errors.New("jnetemu: interrupted while stopping")

// isBenignRace reports whether err is one of the structural races the
// reactor is expected to observe when an instance stops mid-iteration: its
// socket got closed, or a deadline-based non-blocking poll simply found
// nothing ready. Both are swallowed rather than propagated; a per-instance
// packet-path error never reaches the caller.
func isBenignRace(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return false
}
