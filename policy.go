// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu

// Policy computes delivery deadlines for one ingress datagram. It is
// consulted once per datagram received from a peer. nowMS is the
// reactor's single clock sample for the current tick; pending is a
// read-only, deadline-ordered snapshot of everything already queued for
// delivery.
//
// Compute returns the deadlines to schedule, appended to out (which is
// reused across calls and arrives with length zero). An empty result
// drops the datagram; one deadline relays it once. Each additional
// deadline schedules another copy of the same payload to the same
// destination.
type Policy interface {
	Compute(nowMS int64, pending PendingView, out []int64) []int64
}
