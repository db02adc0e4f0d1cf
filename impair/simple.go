// SPDX-License-Identifier: GPL-3.0-or-later

// Package impair provides external-collaborator [jnetemu.Policy]
// implementations for github.com/mucaho/jnetemu: a reference
// loss/jitter/duplication policy and a bandwidth-aware token-bucket
// policy. Neither lives in the core package, matching the core's
// treatment of a [jnetemu.Policy] as a pluggable collaborator rather
// than a built-in concern.
package impair

import (
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/mucaho/jnetemu"
)

// RNG is a [rand.Rand] view abstracted for testability, mirrored on
// ooni/netem's own LinkFwdRNG.
type RNG interface {
	// Float64 is like [rand.Rand.Float64].
	Float64() float64

	// Int63n is like [rand.Rand.Int63n].
	Int63n(n int64) int64
}

var _ RNG = &rand.Rand{}

// Historical defaults, carried over unchanged from SimpleWanEmulator.
const (
	DefaultLoss        = 0.10
	DefaultDuplication = 0.03
	DefaultDelayMS     = 175
	DefaultJitterMS    = 75
)

// Simple is the reference [jnetemu.Policy]: independent per-attempt
// packet loss, optional geometric duplication, and delay uniformly
// jittered around a configured base.
//
// Every field is safe to read and write concurrently with [Simple.Compute]
// via its accessor methods; Compute itself is only ever invoked from the
// single reactor goroutine that drives the [jnetemu.Emulator] it is
// attached to, so no additional locking protects the RNG.
type Simple struct {
	loss        atomic.Uint64 // math.Float64bits
	duplication atomic.Uint64 // math.Float64bits
	delayMS     atomic.Int64
	jitterMS    atomic.Int64
	newRNG      func() RNG
	rngCache    RNG
}

// NewSimple constructs a [*Simple] with SimpleWanEmulator's historical
// defaults: 10% loss, 3% duplication, 175ms delay, +/-75ms jitter.
func NewSimple() *Simple {
	s := &Simple{}
	s.SetLoss(DefaultLoss)
	s.SetDuplication(DefaultDuplication)
	s.SetDelay(DefaultDelayMS * time.Millisecond)
	s.SetJitter(DefaultJitterMS * time.Millisecond)
	return s
}

// Loss returns the current per-attempt loss fraction.
func (s *Simple) Loss() float64 { return math.Float64frombits(s.loss.Load()) }

// SetLoss sets the per-attempt loss fraction. 0 never drops, 1 always
// drops.
func (s *Simple) SetLoss(loss float64) { s.loss.Store(math.Float64bits(loss)) }

// Duplication returns the current per-attempt duplication fraction.
func (s *Simple) Duplication() float64 {
	return math.Float64frombits(s.duplication.Load())
}

// SetDuplication sets the per-attempt duplication fraction. Values >= 1
// duplicate without bound, exactly as SimpleWanEmulator documents and
// leaves undetected; callers are responsible for choosing a sane value.
func (s *Simple) SetDuplication(duplication float64) {
	s.duplication.Store(math.Float64bits(duplication))
}

// Delay returns the current base delay.
func (s *Simple) Delay() time.Duration {
	return time.Duration(s.delayMS.Load()) * time.Millisecond
}

// SetDelay sets the base delay.
func (s *Simple) SetDelay(d time.Duration) { s.delayMS.Store(d.Milliseconds()) }

// Jitter returns the current jitter half-width.
func (s *Simple) Jitter() time.Duration {
	return time.Duration(s.jitterMS.Load()) * time.Millisecond
}

// SetJitter sets the jitter half-width: the actual delay varies uniformly
// across [Delay-Jitter, Delay+Jitter].
func (s *Simple) SetJitter(j time.Duration) { s.jitterMS.Store(j.Milliseconds()) }

// WithRNG overrides the random source used by Compute, for deterministic
// tests. It is not safe to call concurrently with Compute.
func (s *Simple) WithRNG(factory func() RNG) *Simple {
	s.newRNG = factory
	s.rngCache = nil
	return s
}

// rng returns the one RNG this instance uses for its whole lifetime,
// constructing it lazily on first use. Compute runs once per ingress
// datagram from the single reactor goroutine that owns this policy, so
// reseeding here on every call would both allocate on that hot path and
// risk identical rolls for packets landing within the same wall-clock
// nanosecond.
func (s *Simple) rng() RNG {
	if s.rngCache == nil {
		if s.newRNG != nil {
			s.rngCache = s.newRNG()
		} else {
			s.rngCache = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	return s.rngCache
}

// Compute implements [jnetemu.Policy]. It reproduces SimpleWanEmulator's
// do-while loop: each attempt (the original packet, then zero or more
// duplicates) independently rolls for loss before a jittered deadline is
// appended, and the loop continues past the first attempt for as long as
// the duplication roll keeps succeeding.
func (s *Simple) Compute(nowMS int64, pending jnetemu.PendingView, out []int64) []int64 {
	loss := s.Loss()
	duplication := s.Duplication()
	delayMS := s.delayMS.Load()
	jitterMS := s.jitterMS.Load()
	rng := s.rng()

	for {
		if rng.Float64() >= loss {
			d := delayMS - jitterMS
			if span := jitterMS*2 + 1; span > 0 {
				d += rng.Int63n(span)
			}
			out = append(out, nowMS+d)
		}
		if rng.Float64() >= duplication {
			break
		}
	}
	return out
}

var _ jnetemu.Policy = &Simple{}
