// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu

import "time"

// clockNowMS returns the current wall-clock time in milliseconds since the
// Unix epoch. The reactor samples it exactly once per tick and threads the
// result through every instance's ingress/egress step for that tick.
//
// Overridable in tests.
var clockNowMS = func() int64 {
	return time.Now().UnixMilli()
}
