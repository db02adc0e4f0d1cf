// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// packetSnapshot is a captured frame awaiting the background writer.
type packetSnapshot struct {
	data   []byte
	length int
}

// PacketTrace is an open PCAP sidecar. Each relayed UDP datagram is
// synthesized into a minimal Ethernet+IPv4/IPv6+UDP frame and queued for a
// background goroutine to write out, so [Emulator.tick] never blocks on
// disk I/O.
type PacketTrace struct {
	cancel   context.CancelFunc
	dropped  atomic.Uint64
	errch    chan error
	snaps    chan packetSnapshot
	once     sync.Once
	snapSize uint16
	wc       io.WriteCloser
}

// NewPacketTrace creates a [*PacketTrace] writing to wc, keeping at most
// snapSize bytes of each synthesized frame.
func NewPacketTrace(wc io.WriteCloser, snapSize uint16) *PacketTrace {
	ctx, cancel := context.WithCancel(context.Background())
	const manyPackets = 4096
	tr := &PacketTrace{
		cancel:   cancel,
		errch:    make(chan error, 1),
		snaps:    make(chan packetSnapshot, manyPackets),
		snapSize: snapSize,
		wc:       wc,
	}
	go tr.saveLoop(ctx)
	return tr
}

// Dump synthesizes a frame carrying payload from src to dst and queues it
// for capture. Synthesis failures and a full internal buffer both count
// toward Dropped rather than propagating to the relay path.
func (tr *PacketTrace) Dump(payload []byte, src, dst Endpoint) {
	frame, err := synthesizeFrame(payload, src, dst)
	if err != nil {
		tr.dropped.Add(1)
		return
	}
	snapSize := min(len(frame), int(tr.snapSize))
	snap := make([]byte, snapSize)
	copy(snap, frame)
	select {
	case tr.snaps <- packetSnapshot{length: len(frame), data: snap}:
	default:
		tr.dropped.Add(1)
	}
}

// Dropped returns the number of frames dropped because the internal
// buffer was full or the frame could not be synthesized.
func (tr *PacketTrace) Dropped() uint64 {
	return tr.dropped.Load()
}

func (tr *PacketTrace) saveLoop(ctx context.Context) {
	w := pcapgo.NewWriter(tr.wc)
	if err := w.WriteFileHeader(uint32(tr.snapSize), layers.LinkTypeEthernet); err != nil {
		tr.errch <- err
		return
	}
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case snap := <-tr.snaps:
					if err := tr.savePacket(w, snap); err != nil {
						tr.errch <- nil
						return
					}
				default:
					tr.errch <- nil
					return
				}
			}
		case snap := <-tr.snaps:
			if err := tr.savePacket(w, snap); err != nil {
				tr.errch <- nil
				return
			}
		}
	}
}

func (tr *PacketTrace) savePacket(w *pcapgo.Writer, snap packetSnapshot) error {
	ci := gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(snap.data),
		Length:        snap.length,
	}
	return w.WritePacket(ci, snap.data)
}

// Close interrupts the background goroutine, waits for it to drain the
// buffer and join, and closes the underlying writer.
func (tr *PacketTrace) Close() (err error) {
	tr.once.Do(func() {
		tr.cancel()
		err1 := <-tr.errch
		err2 := tr.wc.Close()
		err = errors.Join(err1, err2)
	})
	return
}

// synthesizeFrame builds a minimal link-layer frame around payload,
// addressed from src to dst, so a relayed UDP datagram can be inspected
// in an ordinary packet analyzer despite never touching a real NIC.
func synthesizeFrame(payload []byte, src, dst Endpoint) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	udp := &layers.UDP{
		SrcPort: layers.UDPPort(src.Port()),
		DstPort: layers.UDPPort(dst.Port()),
	}

	if src.Addr().Is4() && dst.Addr().Is4() {
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IP(src.Addr().AsSlice()),
			DstIP:    net.IP(dst.Addr().AsSlice()),
		}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	eth.EthernetType = layers.EthernetTypeIPv6
	ip6 := &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		NextHeader: layers.IPProtocolUDP,
		SrcIP:      net.IP(src.Addr().AsSlice()),
		DstIP:      net.IP(dst.Addr().AsSlice()),
	}
	if err := udp.SetNetworkLayerForChecksum(ip6); err != nil {
		return nil, err
	}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip6, udp, gopacket.Payload(payload)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
