package source

import "sync"

// chunkPool recycles chunk buffers between parse calls. A buffer is owned by
// exactly one Chunker while in use, so no state is shared between concurrent parses.
var chunkPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 64*1024)
		return &b
	},
}

// maxPooledChunk keeps oversized buffers out of the pool.
const maxPooledChunk = 4 << 20

// getChunk gets a buffer of exactly size bytes, reusing a pooled one when it is large enough.
func getChunk(size int) []byte {
	p := chunkPool.Get().(*[]byte)
	buf := *p
	if cap(buf) < size {
		// Too small for this chunk size; let the GC have it.
		return make([]byte, size)
	}
	return buf[:size]
}

// putChunk returns a buffer to the pool.
func putChunk(buf []byte) {
	if cap(buf) > maxPooledChunk {
		return
	}
	buf = buf[:0]
	chunkPool.Put(&buf)
}
