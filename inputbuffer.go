package cbor

import "io"

// defaultInputCapacity is the owned buffer size a bufferedInput allocates
// on construction. ensure(n) can never be satisfied for n larger than this.
const defaultInputCapacity = 8000

// bufferedInput owns a fixed-capacity byte buffer refilled from an
// underlying io.Reader. It exposes the three primitives the decoder's
// tight inner loop needs: nextByte, ensure(n) (guarantee n contiguous bytes
// at the read pointer), and loadMore (single-shot refill).
//
// Modeled on the teacher's use of bufio.Reader (Peek/Discard/ReadByte) in
// jibby.go, but with an explicitly owned, non-growing buffer: CBOR's
// ensure(n) contract ("n contiguous bytes, or fail") is stronger than
// Peek's best-effort short read at EOF, and spec.md requires the buffer
// never grow.
type bufferedInput struct {
	r   io.Reader
	buf []byte
	pos int // next unread byte
	end int // one past last valid byte
	eof bool
}

func newBufferedInput(r io.Reader, capacity int) *bufferedInput {
	if capacity <= 0 {
		capacity = defaultInputCapacity
	}
	return &bufferedInput{r: r, buf: make([]byte, capacity)}
}

func (b *bufferedInput) available() int { return b.end - b.pos }

// nextByte returns the next unread byte, refilling as needed.
func (b *bufferedInput) nextByte() (byte, error) {
	if b.pos >= b.end {
		if err := b.fill(); err != nil {
			return 0, err
		}
	}
	c := b.buf[b.pos]
	b.pos++
	return c, nil
}

// nextByteEOF is nextByte without EOF translation, for the one call site
// (the first byte of a fresh top-level value) where a clean end of stream
// is not an error.
func (b *bufferedInput) nextByteEOF() (byte, error) {
	if b.pos >= b.end {
		if err := b.loadMore(); err != nil {
			return 0, err
		}
	}
	c := b.buf[b.pos]
	b.pos++
	return c, nil
}

// bytesAt returns the n bytes starting at the read pointer without
// consuming them. Callers must have already called ensure(n).
func (b *bufferedInput) bytesAt(n int) []byte {
	return b.buf[b.pos : b.pos+n]
}

// ensure guarantees n contiguous bytes are available starting at the read
// pointer, sliding unread data to the front of the buffer and refilling as
// needed. It fails if n exceeds the buffer's capacity.
func (b *bufferedInput) ensure(n int) error {
	if n > len(b.buf) {
		return malformedf("requested %d contiguous bytes exceeds buffer capacity %d", n, len(b.buf))
	}
	for b.available() < n {
		if b.pos > 0 {
			copy(b.buf, b.buf[b.pos:b.end])
			b.end -= b.pos
			b.pos = 0
		}
		if err := b.fill(); err != nil {
			return err
		}
	}
	return nil
}

// loadMore performs a single underlying read into the space after the
// currently valid bytes, returning io.EOF if the stream is exhausted.
func (b *bufferedInput) loadMore() error {
	if b.eof {
		return io.EOF
	}
	if b.end >= len(b.buf) {
		if b.pos == 0 {
			return malformedf("input buffer full with no room to refill")
		}
		copy(b.buf, b.buf[b.pos:b.end])
		b.end -= b.pos
		b.pos = 0
	}
	n, err := b.r.Read(b.buf[b.end:])
	if n == 0 && err == nil {
		return wrapIOError("reading input", io.ErrNoProgress)
	}
	b.end += n
	if err != nil {
		if err == io.EOF {
			b.eof = true
			if n > 0 {
				// Bytes were delivered alongside EOF; surface them
				// first, report EOF on the next empty read.
				return nil
			}
			return io.EOF
		}
		return wrapIOError("reading input", err)
	}
	return nil
}

// fill is loadMore with EOF translated into an "unexpected end of input"
// decode error, for call sites that require at least one more byte to
// exist mid-token.
func (b *bufferedInput) fill() error {
	err := b.loadMore()
	if err == io.EOF {
		return malformedf("unexpected end of input")
	}
	return err
}

// peek returns up to n bytes starting at the read pointer without
// consuming them, attempting to satisfy the full request but returning
// fewer at EOF.
func (b *bufferedInput) peek(n int) ([]byte, error) {
	if n > len(b.buf) {
		n = len(b.buf)
	}
	for b.available() < n && !b.eof {
		if err := b.loadMore(); err != nil && err != io.EOF {
			return nil, err
		} else if err == io.EOF {
			break
		}
	}
	have := b.available()
	if have > n {
		have = n
	}
	return b.buf[b.pos : b.pos+have], nil
}

// skip discards n already-ensured bytes from the read pointer.
func (b *bufferedInput) skip(n int) {
	b.pos += n
}

// releaseBuffered hands any unread, already-buffered bytes to sink and
// resets the buffer to empty. Used when ownership of the underlying stream
// passes to a caller that wants to keep reading raw bytes after the
// codec's view of the stream ends.
func (b *bufferedInput) releaseBuffered(sink io.Writer) (int, error) {
	if b.available() == 0 {
		return 0, nil
	}
	n, err := sink.Write(b.buf[b.pos:b.end])
	b.pos = b.end
	if err != nil {
		return n, wrapIOError("releasing buffered input", err)
	}
	return n, nil
}
