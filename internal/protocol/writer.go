package protocol

import (
	"encoding/binary"
	"sync"

	"github.com/udisondev/xilogin/internal/constants"
)

// Writer accumulates an outbound payload.
// Uses Little-Endian byte order for all multi-byte values.
type Writer struct {
	buf []byte
}

// writerPool reduces allocations by reusing Writers.
// Get() returns a Writer with Reset() called, Put() returns it to pool.
var writerPool = sync.Pool{
	New: func() any {
		return &Writer{buf: make([]byte, 0, constants.DefaultSendBufSize)}
	},
}

// Get returns a Writer from the pool (already Reset).
func Get() *Writer {
	w := writerPool.Get().(*Writer)
	w.Reset()
	return w
}

// Put returns a Writer to the pool for reuse.
// IMPORTANT: Do not use the Writer or any slice obtained from Bytes after calling Put.
func (w *Writer) Put() {
	writerPool.Put(w)
}

// NewWriter creates a writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Reset empties the writer, keeping the allocation.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

// WriteUint8 appends one byte.
func (w *Writer) WriteUint8(v byte) {
	w.buf = append(w.buf, v)
}

// WriteUint16 appends a uint16 (2 bytes, LE).
func (w *Writer) WriteUint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteUint32 appends a uint32 (4 bytes, LE).
func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteFixed appends b truncated or zero-padded to exactly n bytes.
func (w *Writer) WriteFixed(b []byte, n int) {
	if len(b) > n {
		b = b[:n]
	}
	w.buf = append(w.buf, b...)
	w.Pad(n - len(b))
}

// WriteString appends s as a fixed-width, zero-padded field.
func (w *Writer) WriteString(s string, n int) {
	if len(s) > n {
		s = s[:n]
	}
	w.buf = append(w.buf, s...)
	w.Pad(n - len(s))
}

// Pad appends n zero bytes. Non-positive n is a no-op.
func (w *Writer) Pad(n int) {
	if n <= 0 {
		return
	}
	w.buf = append(w.buf, make([]byte, n)...)
}

// PadTo zero-pads the payload up to size bytes.
func (w *Writer) PadTo(size int) {
	w.Pad(size - len(w.buf))
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the accumulated payload. The slice aliases the writer buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Clone returns a copy of the accumulated payload, safe to keep after Put.
func (w *Writer) Clone() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}
