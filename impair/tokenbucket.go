// SPDX-License-Identifier: GPL-3.0-or-later

package impair

import (
	"golang.org/x/time/rate"

	"github.com/mucaho/jnetemu"
)

// DefaultMaxQueueDepth bounds how many entries [TokenBucket] lets sit in
// an emulator's delivery queue before it starts tail-dropping new
// packets — a crude model of a bounded egress buffer sitting behind a
// rate-limited link.
const DefaultMaxQueueDepth = 256

// TokenBucket is a stateful [jnetemu.Policy] not present in
// SimpleWanEmulator: it paces deliveries to a configured bits-per-second
// budget using a token-bucket limiter, and tail-drops once the queue
// depth reported by [jnetemu.PendingView] has reached a configured bound.
//
// [jnetemu.Policy.Compute] is not told each packet's size, so the byte
// budget is converted to an event rate using an assumed average packet
// size at construction time; this is a deliberately crude bandwidth
// model, not a byte-accurate shaper.
type TokenBucket struct {
	limiter       *rate.Limiter
	maxQueueDepth int
}

// NewTokenBucket constructs a [*TokenBucket] budgeted at bitsPerSecond,
// assuming packets average avgPacketSize bytes. avgPacketSize <= 0 falls
// back to [jnetemu.DefaultMaxPacketSize].
func NewTokenBucket(bitsPerSecond float64, avgPacketSize int) *TokenBucket {
	if avgPacketSize <= 0 {
		avgPacketSize = jnetemu.DefaultMaxPacketSize
	}
	eventsPerSecond := bitsPerSecond / 8 / float64(avgPacketSize)
	return &TokenBucket{
		limiter:       rate.NewLimiter(rate.Limit(eventsPerSecond), 1),
		maxQueueDepth: DefaultMaxQueueDepth,
	}
}

// WithMaxQueueDepth overrides [DefaultMaxQueueDepth] and returns t for
// chaining at construction time.
func (t *TokenBucket) WithMaxQueueDepth(n int) *TokenBucket {
	t.maxQueueDepth = n
	return t
}

// Compute implements [jnetemu.Policy]: drop (return out unchanged) once
// the queue already holds maxQueueDepth or more entries, otherwise schedule a single
// delivery delayed by however long the limiter says to wait for a token.
func (t *TokenBucket) Compute(nowMS int64, pending jnetemu.PendingView, out []int64) []int64 {
	if len(pending) >= t.maxQueueDepth {
		return out
	}
	delay := t.limiter.Reserve().Delay()
	return append(out, nowMS+delay.Milliseconds())
}

var _ jnetemu.Policy = &TokenBucket{}
