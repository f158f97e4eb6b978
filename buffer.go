package main

import "github.com/oxtoacart/bpool"

// bufSize is the fixed per-direction buffer capacity. Together with the
// feeding/draining discipline in forward.go this bounds per-connection
// memory to 2 × bufSize.
const bufSize = 8192

// bufPool backs every connection's two direction buffers.
var bufPool = bpool.NewBytePool(2*defaultPoolSize, bufSize)

// Buffer is a fixed-capacity byte buffer with an offset/length cursor. A
// partial write leaves the unsent remainder described by the cursor so the
// write can resume without re-reading or re-ciphering anything.
type Buffer struct {
	data []byte
	off  int
	n    int
}

// newBuffer draws a backing slice from the pool.
func newBuffer() *Buffer {
	return &Buffer{data: bufPool.Get()}
}

// Release returns the backing slice to the pool. The Buffer must not be
// used afterwards.
func (b *Buffer) Release() {
	bufPool.Put(b.data)
	b.data = nil
	b.off, b.n = 0, 0
}

// Fill marks the first n bytes of the backing slice as pending.
func (b *Buffer) Fill(n int) {
	b.off, b.n = 0, n
}

// Bytes returns the pending byte range.
func (b *Buffer) Bytes() []byte {
	return b.data[b.off : b.off+b.n]
}

// Advance consumes n pending bytes after a (possibly partial) write.
func (b *Buffer) Advance(n int) {
	b.off += n
	b.n -= n
}

// Empty reports whether the buffer is in feeding mode (no pending bytes).
func (b *Buffer) Empty() bool {
	return b.n == 0
}

// Len returns the count of pending bytes.
func (b *Buffer) Len() int {
	return b.n
}
