// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDupCounterReleaseReachesZero(t *testing.T) {
	d := &dupCounter{n: 2}
	assert.False(t, d.release())
	assert.True(t, d.release())
}

func TestScheduledIsReady(t *testing.T) {
	s := &scheduled{deadlineMS: 1000}
	assert.False(t, s.isReady(999))
	assert.True(t, s.isReady(1000))
	assert.True(t, s.isReady(1001))
}
