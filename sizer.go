package cbor

import "math/big"

// sizerCommand is one deferred write, captured as a closure over its
// arguments so it can be replayed against the real Encoder once a
// container's element count is known.
type sizerCommand func(enc *Encoder) error

// Sizer wraps an Encoder so that every array and object is written with a
// definite CBOR length instead of the indefinite-length default, at the
// cost of buffering each container's content in memory until it closes.
//
// Grounded directly on the teacher corpus's CBORGeneratorSizer
// (original_source's sizer package): WriteStartArray/WriteStartObject push
// the current command queue onto a stack and start a fresh one; the
// matching End call wraps the finished queue in a single deferred command
// that, when finally executed, writes a definite-length header sized to the
// queue and replays every buffered write against the real Encoder. Nesting
// falls out for free, since an inner container's closing command is itself
// just one more entry appended to its parent's queue rather than being
// executed immediately; only unwinding all the way back to the root
// triggers real output.
type Sizer struct {
	enc   *Encoder
	stack [][]sizerCommand
	queue []sizerCommand
}

// NewSizer returns a Sizer that drives enc.
func NewSizer(enc *Encoder) *Sizer {
	return &Sizer{enc: enc}
}

func (s *Sizer) queuing() bool { return len(s.stack) > 0 }

// enqueue runs cmd immediately against the real encoder if no container is
// currently being sized, or defers it into the innermost open queue
// otherwise.
func (s *Sizer) enqueue(cmd sizerCommand) error {
	if s.queuing() {
		s.queue = append(s.queue, cmd)
		return nil
	}
	return cmd(s.enc)
}

// startDefiniteArray writes a definite-length major-4 header sized to n and
// pushes a matching write context, bypassing the public Encoder API's
// indefinite-by-default framing and break-byte close.
func (e *Encoder) startDefiniteArray(n int) error {
	if err := e.ctx.writeValue(); err != nil {
		return err
	}
	if err := e.writeUintHeader(4, uint64(n)); err != nil {
		return err
	}
	e.ctx = e.ctx.createChildArray()
	return nil
}

// startDefiniteObject is startDefiniteArray's object counterpart: n is the
// number of field/value pairs, not the number of raw queue entries.
func (e *Encoder) startDefiniteObject(n int) error {
	if err := e.ctx.writeValue(); err != nil {
		return err
	}
	if err := e.writeUintHeader(5, uint64(n)); err != nil {
		return err
	}
	e.ctx = e.ctx.createChildObject(e.cfg.StrictDuplicateDetection)
	return nil
}

// endDefiniteContainer pops the write context pushed by startDefiniteArray
// or startDefiniteObject. A definite-length container carries no
// terminating break byte: the decoder on the other end already knows to
// stop after exactly n elements.
func (e *Encoder) endDefiniteContainer() {
	e.ctx = e.ctx.parent
}

// WriteStartArray opens a new array whose content is buffered until the
// matching WriteEndArray, at which point its element count is known.
func (s *Sizer) WriteStartArray() error {
	s.stack = append(s.stack, s.queue)
	s.queue = nil
	return nil
}

// WriteEndArray closes the innermost buffered array, wrapping its queued
// writes in one deferred command sized to the number of elements queued.
func (s *Sizer) WriteEndArray() error {
	sub := s.queue
	top := len(s.stack) - 1
	if top < 0 {
		return writeViolationf("EndArray while not inside an array")
	}
	s.queue = s.stack[top]
	s.stack = s.stack[:top]

	cmd := func(enc *Encoder) error {
		if err := enc.startDefiniteArray(len(sub)); err != nil {
			return err
		}
		for _, c := range sub {
			if err := c(enc); err != nil {
				return err
			}
		}
		enc.endDefiniteContainer()
		return nil
	}
	return s.enqueue(cmd)
}

// WriteStartObject opens a new object whose content is buffered until the
// matching WriteEndObject.
func (s *Sizer) WriteStartObject() error {
	s.stack = append(s.stack, s.queue)
	s.queue = nil
	return nil
}

// WriteEndObject closes the innermost buffered object. The pair count is
// half the number of queued writes (one WriteFieldName plus one value write
// per pair), matching the teacher's Math.round(size/2).
func (s *Sizer) WriteEndObject() error {
	sub := s.queue
	top := len(s.stack) - 1
	if top < 0 {
		return writeViolationf("EndObject while not inside an object")
	}
	s.queue = s.stack[top]
	s.stack = s.stack[:top]

	pairs := (len(sub) + 1) / 2
	cmd := func(enc *Encoder) error {
		if err := enc.startDefiniteObject(pairs); err != nil {
			return err
		}
		for _, c := range sub {
			if err := c(enc); err != nil {
				return err
			}
		}
		enc.endDefiniteContainer()
		return nil
	}
	return s.enqueue(cmd)
}

func (s *Sizer) WriteFieldName(name string) error {
	return s.enqueue(func(enc *Encoder) error { return enc.WriteFieldName(name) })
}

func (s *Sizer) WriteString(v string) error {
	return s.enqueue(func(enc *Encoder) error { return enc.WriteString(v) })
}

func (s *Sizer) WriteBinary(v []byte) error {
	data := append([]byte(nil), v...)
	return s.enqueue(func(enc *Encoder) error { return enc.WriteBinary(data) })
}

func (s *Sizer) WriteEmbeddedObject(v []byte) error { return s.WriteBinary(v) }

func (s *Sizer) WriteInt32(v int32) error {
	return s.enqueue(func(enc *Encoder) error { return enc.WriteInt32(v) })
}

func (s *Sizer) WriteInt64(v int64) error {
	return s.enqueue(func(enc *Encoder) error { return enc.WriteInt64(v) })
}

func (s *Sizer) WriteBigInt(v *big.Int) error {
	cp := new(big.Int).Set(v)
	return s.enqueue(func(enc *Encoder) error { return enc.WriteBigInt(cp) })
}

func (s *Sizer) WriteFloat32(v float32) error {
	return s.enqueue(func(enc *Encoder) error { return enc.WriteFloat32(v) })
}

func (s *Sizer) WriteFloat64(v float64) error {
	return s.enqueue(func(enc *Encoder) error { return enc.WriteFloat64(v) })
}

func (s *Sizer) WriteBigDecimal(v BigDecimal) error {
	return s.enqueue(func(enc *Encoder) error { return enc.WriteBigDecimal(v) })
}

func (s *Sizer) WriteBoolean(v bool) error {
	return s.enqueue(func(enc *Encoder) error { return enc.WriteBoolean(v) })
}

func (s *Sizer) WriteNull() error {
	return s.enqueue(func(enc *Encoder) error { return enc.WriteNull() })
}

func (s *Sizer) WriteTag(tag uint64) error {
	return s.enqueue(func(enc *Encoder) error { return enc.WriteTag(tag) })
}

// Flush flushes the underlying Encoder. It is only meaningful once every
// opened array/object has been closed; calling it while containers remain
// buffered flushes whatever has already reached the real encoder, which may
// be nothing.
func (s *Sizer) Flush() error { return s.enc.Flush() }

// Close closes the underlying Encoder. Any still-buffered (unclosed)
// container content is discarded rather than ever reaching the wire, since
// there is no length to frame it with.
func (s *Sizer) Close() error { return s.enc.Close() }
