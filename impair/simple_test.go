// SPDX-License-Identifier: GPL-3.0-or-later

package impair_test

import (
	"testing"

	"github.com/mucaho/jnetemu"
	"github.com/mucaho/jnetemu/impair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequenceRNG replays a fixed sequence of values so Simple's do-while
// loop becomes deterministic.
type sequenceRNG struct {
	floats []float64
	ints   []int64
	fi, ii int
}

func (r *sequenceRNG) Float64() float64 {
	v := r.floats[r.fi%len(r.floats)]
	r.fi++
	return v
}

func (r *sequenceRNG) Int63n(n int64) int64 {
	v := r.ints[r.ii%len(r.ints)]
	r.ii++
	if v >= n {
		v = n - 1
	}
	return v
}

func TestSimpleDefaults(t *testing.T) {
	s := impair.NewSimple()
	assert.Equal(t, impair.DefaultLoss, s.Loss())
	assert.Equal(t, impair.DefaultDuplication, s.Duplication())
	assert.Equal(t, impair.DefaultDelayMS, int(s.Delay().Milliseconds()))
	assert.Equal(t, impair.DefaultJitterMS, int(s.Jitter().Milliseconds()))
}

func TestSimpleAccessorsRoundTrip(t *testing.T) {
	s := impair.NewSimple()
	s.SetLoss(0.5)
	s.SetDuplication(0.25)
	require.Equal(t, 0.5, s.Loss())
	require.Equal(t, 0.25, s.Duplication())
}

func TestSimpleComputeNeverLosesWhenLossIsZero(t *testing.T) {
	s := impair.NewSimple()
	s.SetLoss(0)
	s.SetDuplication(0)
	s.WithRNG(func() impair.RNG {
		return &sequenceRNG{floats: []float64{0.9, 1.0}, ints: []int64{0}}
	})

	out := s.Compute(1000, nil, nil)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1000+impair.DefaultDelayMS-impair.DefaultJitterMS), out[0])
}

func TestSimpleComputeAlwaysLosesWhenLossIsOne(t *testing.T) {
	s := impair.NewSimple()
	s.SetLoss(1)
	s.SetDuplication(0)
	s.WithRNG(func() impair.RNG {
		return &sequenceRNG{floats: []float64{0.0, 1.0}, ints: []int64{0}}
	})

	out := s.Compute(1000, nil, nil)
	assert.Empty(t, out)
}

func TestSimpleComputeDuplicatesWhenRollSucceeds(t *testing.T) {
	s := impair.NewSimple()
	s.SetLoss(0)
	s.SetDuplication(0.9)
	// loss roll, dup roll (succeeds), loss roll, dup roll (fails)
	s.WithRNG(func() impair.RNG {
		return &sequenceRNG{floats: []float64{0.9, 0.1, 0.9, 1.0}, ints: []int64{0, 0}}
	})

	out := s.Compute(1000, nil, nil)
	assert.Len(t, out, 2)
}

var _ jnetemu.Policy = impair.NewSimple()
