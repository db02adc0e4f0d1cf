// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu

import "net/netip"

// Endpoint identifies a UDP peer by address and port. It is immutable and
// comparable with ==, which is all the core needs to decide whether an
// ingress datagram came from one of the two peers passed to [New].
type Endpoint = netip.AddrPort
