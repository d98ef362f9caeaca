package network

import "sync"

// readBuffers раздаёт буферы чтения одного listener'а. Все буферы ровно
// size байт: один Read — один payload, поэтому размер фиксирован опциями.
// Хранятся указатели, чтобы Put не аллоцировал.
type readBuffers struct {
	size int
	pool sync.Pool
}

func newReadBuffers(size int) *readBuffers {
	rb := &readBuffers{size: size}
	rb.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return rb
}

// get returns a buffer of exactly size bytes. Stale bytes from a previous
// connection are not cleared: ReadPayload only exposes what it just read.
func (rb *readBuffers) get() *[]byte {
	return rb.pool.Get().(*[]byte)
}

// put returns a buffer to the pool. Foreign sizes are dropped.
func (rb *readBuffers) put(b *[]byte) {
	if len(*b) != rb.size {
		return
	}
	rb.pool.Put(b)
}
