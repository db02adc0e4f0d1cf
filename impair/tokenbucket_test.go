// SPDX-License-Identifier: GPL-3.0-or-later

package impair_test

import (
	"testing"

	"github.com/mucaho/jnetemu"
	"github.com/mucaho/jnetemu/impair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketSchedulesWithinBudget(t *testing.T) {
	tb := impair.NewTokenBucket(8_000_000, 1000) // 1000 events/sec, burst 1
	out := tb.Compute(1000, nil, nil)
	require.Len(t, out, 1)
	assert.GreaterOrEqual(t, out[0], int64(1000))
}

func TestTokenBucketDropsPastMaxQueueDepth(t *testing.T) {
	tb := impair.NewTokenBucket(8_000, 1000).WithMaxQueueDepth(2)
	pending := jnetemu.PendingView{{}, {}, {}}
	out := tb.Compute(1000, pending, nil)
	assert.Empty(t, out)
}

var _ jnetemu.Policy = impair.NewTokenBucket(1, 1)
