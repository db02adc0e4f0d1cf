// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactorRegisterStartsAndUnregisterStopsWorker(t *testing.T) {
	local := netip.MustParseAddrPort("127.0.0.1:0")
	peerA := netip.MustParseAddrPort("127.0.0.1:19101")
	peerB := netip.MustParseAddrPort("127.0.0.1:19102")

	e := New(local, peerA, peerB, WithLogger(discardLogger{}))
	require.NoError(t, e.Start())

	reactorMu.Lock()
	_, registered := reactorInstances[e]
	workerRunning := reactorStop != nil
	reactorMu.Unlock()
	assert.True(t, registered)
	assert.True(t, workerRunning)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.Stop(ctx))

	reactorMu.Lock()
	_, stillRegistered := reactorInstances[e]
	reactorMu.Unlock()
	assert.False(t, stillRegistered)
}

func TestReactorSharedAcrossMultipleInstances(t *testing.T) {
	local1 := netip.MustParseAddrPort("127.0.0.1:0")
	local2 := netip.MustParseAddrPort("127.0.0.1:0")
	peerA := netip.MustParseAddrPort("127.0.0.1:19111")
	peerB := netip.MustParseAddrPort("127.0.0.1:19112")

	e1 := New(local1, peerA, peerB, WithLogger(discardLogger{}))
	e2 := New(local2, peerA, peerB, WithLogger(discardLogger{}))
	require.NoError(t, e1.Start())

	reactorMu.Lock()
	stopCh := reactorStop
	reactorMu.Unlock()

	require.NoError(t, e2.Start())

	reactorMu.Lock()
	sameWorker := reactorStop == stopCh
	count := len(reactorInstances)
	reactorMu.Unlock()
	assert.True(t, sameWorker, "second instance should join the existing reactor, not spawn a new one")
	assert.Equal(t, 2, count)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e1.Stop(ctx))
	require.NoError(t, e2.Stop(ctx))

	reactorMu.Lock()
	stoppedWorker := reactorStop
	reactorMu.Unlock()
	assert.Nil(t, stoppedWorker)
}

func TestStartAfterStopReturnsErrChannelClosed(t *testing.T) {
	local := netip.MustParseAddrPort("127.0.0.1:0")
	peerA := netip.MustParseAddrPort("127.0.0.1:19121")
	peerB := netip.MustParseAddrPort("127.0.0.1:19122")

	e := New(local, peerA, peerB, WithLogger(discardLogger{}))
	require.NoError(t, e.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.Stop(ctx))

	assert.ErrorIs(t, e.Start(), ErrChannelClosed)
}
