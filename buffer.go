// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu

// Buffer is a recyclable, fixed-capacity byte slice sized to an
// [Emulator]'s configured maximum packet size. Its Len reflects the
// datagram currently stored in it; its capacity never changes.
type Buffer struct {
	v   []byte
	len int
}

// Bytes returns the content currently stored in the buffer.
func (b *Buffer) Bytes() []byte {
	return b.v[:b.len]
}

// Len returns the length of the buffer's content.
func (b *Buffer) Len() int {
	return b.len
}

// Cap returns the buffer's fixed capacity.
func (b *Buffer) Cap() int {
	return len(b.v)
}

// setLen records how much of the backing array holds live content, after
// a caller has filled it in place (e.g. via a ReadFromUDP into b.v).
func (b *Buffer) setLen(n int) {
	b.len = n
}

// Pool hands out and recycles fixed-capacity [Buffer] values sized to
// maxPacketSize. It grows in batches of batchSize whenever it runs dry,
// generalized to an arbitrary packet size and an explicit batch width
// instead of a package-level sync.Pool singleton — pool lifetime here is
// scoped to a single [Emulator] instance, not the process.
type Pool struct {
	maxPacketSize int
	batchSize     int
	free          []*Buffer
}

// NewPool constructs a [Pool] that allocates buffers of maxPacketSize
// bytes, batchSize at a time.
func NewPool(maxPacketSize, batchSize int) *Pool {
	return &Pool{
		maxPacketSize: maxPacketSize,
		batchSize:     batchSize,
	}
}

// Acquire returns a zero-length buffer with capacity maxPacketSize, either
// recycled from the free list or freshly allocated as part of a new batch.
func (p *Pool) Acquire() *Buffer {
	if len(p.free) == 0 {
		p.grow()
	}
	n := len(p.free)
	b := p.free[n-1]
	p.free = p.free[:n-1]
	b.len = 0
	return b
}

// Release returns a buffer to the pool for reuse. Releasing nil is a
// no-op; releasing the same buffer twice is a caller error.
func (p *Pool) Release(b *Buffer) {
	if b == nil {
		return
	}
	b.len = 0
	p.free = append(p.free, b)
}

// grow allocates one more batch of batchSize buffers and adds them to the
// free list.
func (p *Pool) grow() {
	batch := p.batchSize
	if batch <= 0 {
		batch = 1
	}
	for i := 0; i < batch; i++ {
		p.free = append(p.free, &Buffer{v: make([]byte, p.maxPacketSize)})
	}
}
