// SPDX-License-Identifier: GPL-3.0-or-later

// Package jnetemu provides a UDP WAN-impairment relay: a small engine
// that sits between two peers, reads datagrams from either side, and
// forwards them to the other under a pluggable [Policy] that can delay,
// drop, duplicate, or otherwise reorder deliveries.
//
// The typical usage is to construct an [*Emulator] with [New], start it
// with [Emulator.Start], and let a single process-wide reactor goroutine
// (shared across every registered instance) drive its ingress/egress
// steps until [Emulator.Stop] is called.
//
// The reference policy, impair.Simple, and a bandwidth-aware policy,
// impair.TokenBucket, live in the impair subpackage as external
// collaborators — this package only defines the [Policy] interface they
// implement.
//
// The [*PacketTrace] type captures relayed datagrams as synthesized
// Ethernet+IPv4/IPv6+UDP frames in PCAP format, for inspection in tools
// such as Wireshark.
package jnetemu
