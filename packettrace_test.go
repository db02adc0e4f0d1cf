// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu_test

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/bassosimone/iotest"
	"github.com/mucaho/jnetemu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketTraceCloseHeaderWriteError(t *testing.T) {
	writeErr := errors.New("mocked write error")
	closeErr := errors.New("mocked close error")
	wc := &iotest.FuncWriteCloser{
		WriteFunc: func([]byte) (int, error) {
			return 0, writeErr
		},
		CloseFunc: func() error {
			return closeErr
		},
	}
	trace := jnetemu.NewPacketTrace(wc, jnetemu.SnapLenEthernet)
	err := trace.Close()
	require.Error(t, err)
	assert.True(t, errors.Is(err, writeErr))
	assert.True(t, errors.Is(err, closeErr))
}

func TestPacketTraceDroppedOnSynthesisFailure(t *testing.T) {
	wc := &iotest.FuncWriteCloser{
		WriteFunc: func(b []byte) (int, error) {
			return len(b), nil
		},
		CloseFunc: func() error { return nil },
	}
	trace := jnetemu.NewPacketTrace(wc, jnetemu.SnapLenEthernet)

	// A zero-value Endpoint has no IP version gopacket can serialize a
	// network-layer header for, so synthesis fails and the drop counter
	// increments without ever reaching the background writer.
	trace.Dump([]byte{0x00}, netip.AddrPort{}, netip.AddrPort{})

	require.NoError(t, trace.Close())
	assert.Equal(t, uint64(1), trace.Dropped())
}

func TestPacketTraceDumpsValidFrame(t *testing.T) {
	var written []byte
	wc := &iotest.FuncWriteCloser{
		WriteFunc: func(b []byte) (int, error) {
			written = append(written, b...)
			return len(b), nil
		},
		CloseFunc: func() error { return nil },
	}
	trace := jnetemu.NewPacketTrace(wc, jnetemu.SnapLenEthernet)

	src := netip.MustParseAddrPort("127.0.0.1:9000")
	dst := netip.MustParseAddrPort("127.0.0.1:9001")
	trace.Dump([]byte{0xAA, 0xBB}, src, dst)

	// Close blocks until the background writer has drained every queued
	// frame, so the assertions below see the fully written PCAP file.
	require.NoError(t, trace.Close())
	assert.Equal(t, uint64(0), trace.Dropped())
	assert.NotEmpty(t, written)
}
