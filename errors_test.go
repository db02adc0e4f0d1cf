// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeTimeoutError struct{}

func (fakeTimeoutError) Error() string   { return "fake timeout" }
func (fakeTimeoutError) Timeout() bool   { return true }
func (fakeTimeoutError) Temporary() bool { return true }

func TestIsBenignRaceNil(t *testing.T) {
	assert.False(t, isBenignRace(nil))
}

func TestIsBenignRaceClosed(t *testing.T) {
	assert.True(t, isBenignRace(net.ErrClosed))
	assert.True(t, isBenignRace(fmt.Errorf("jnetemu: read: %w", net.ErrClosed)))
}

func TestIsBenignRaceTimeout(t *testing.T) {
	assert.True(t, isBenignRace(fakeTimeoutError{}))
}

func TestIsBenignRaceOtherError(t *testing.T) {
	assert.False(t, isBenignRace(errors.New("boom")))
}

func TestReadDeadlineTimeoutIsBenign(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Skip("no loopback UDP available in this sandbox")
	}
	defer conn.Close()

	require := assert.New(t)
	require.NoError(conn.SetReadDeadline(time.Unix(0, 0)))
	buf := make([]byte, 1)
	_, _, readErr := conn.ReadFromUDP(buf)
	require.True(isBenignRace(readErr))
}
