package meter

// ringBuffer keeps the most recent bytes written to it. It is not locked;
// Meter serializes access.
type ringBuffer struct {
	buf  []byte
	size int
	w    int // write position
	len  int // current fill level
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		buf:  make([]byte, size),
		size: size,
	}
}

// write appends p, overwriting the oldest bytes once full.
func (rb *ringBuffer) write(p []byte) {
	if len(p) >= rb.size {
		copy(rb.buf, p[len(p)-rb.size:])
		rb.w = 0
		rb.len = rb.size
		return
	}
	n := copy(rb.buf[rb.w:], p)
	if n < len(p) {
		copy(rb.buf, p[n:])
	}
	rb.w = (rb.w + len(p)) % rb.size
	rb.len += len(p)
	if rb.len > rb.size {
		rb.len = rb.size
	}
}

// snapshot copies the buffered bytes, oldest first, into dst.
func (rb *ringBuffer) snapshot(dst []byte) []byte {
	dst = dst[:0]
	if rb.len == 0 {
		return dst
	}
	start := (rb.w - rb.len + rb.size) % rb.size
	if start+rb.len <= rb.size {
		return append(dst, rb.buf[start:start+rb.len]...)
	}
	dst = append(dst, rb.buf[start:]...)
	return append(dst, rb.buf[:rb.len-(rb.size-start)]...)
}

func (rb *ringBuffer) reset() {
	rb.w = 0
	rb.len = 0
}
