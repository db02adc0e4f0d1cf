// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu

// Common snapshot lengths for [NewPacketTrace], named after the link MTU
// whose frames they fully capture.
const (
	// SnapLenEthernet captures a full Ethernet frame.
	SnapLenEthernet = 1500

	// SnapLenMinimumIPv6 captures the smallest frame IPv6 requires a link
	// to support.
	SnapLenMinimumIPv6 = 1280

	// SnapLenJumbo captures a full jumbo frame.
	SnapLenJumbo = 9000
)
