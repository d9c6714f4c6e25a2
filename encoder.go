package cbor

import (
	"io"
	"math"
	"math/big"
)

// Encoder is a push-style writer that turns a sequence of WriteXxx calls
// into a CBOR byte stream (component G). It is the mirror image of Decoder:
// the same writeContext stack enforces name-before-value alternation and
// optional duplicate-name detection, and every container is written
// indefinite-length by default (matching Token/NextToken's closed-set
// symmetry) unless a Sizer wraps this Encoder to compute definite lengths.
//
// An Encoder is not safe for concurrent use.
type Encoder struct {
	out *bufferedOutput
	cfg Config
	ctx *writeContext

	closed bool
	dst    io.Writer
}

// flusher is satisfied by an underlying io.Writer that wants to be notified
// of Encoder.Flush calls (cfg.FlushPassedToStream).
type flusher interface {
	Flush() error
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer, cfg Config) *Encoder {
	return &Encoder{
		out: newBufferedOutput(w, defaultOutputCapacity),
		cfg: cfg,
		ctx: newWriteRootContext(),
		dst: w,
	}
}

// writeUintHeader writes a major-type/additional-info header for n using
// the narrowest of the five CBOR widths (inline, 1, 2, 4, or 8 bytes), per
// spec.md §4.7's "minimal width" requirement. It is used for unsigned and
// negative integers, array/object/tag headers, and definite-length string
// headers alike, since all five share the same additional-info encoding.
func (e *Encoder) writeUintHeader(major byte, n uint64) error {
	switch {
	case n < 24:
		return e.out.writeByte(major<<5 | byte(n))
	case n <= math.MaxUint8:
		if err := e.out.ensureRoom(2); err != nil {
			return err
		}
		e.out.buf = append(e.out.buf, major<<5|24, byte(n))
		return nil
	case n <= math.MaxUint16:
		if err := e.out.ensureRoom(3); err != nil {
			return err
		}
		e.out.buf = append(e.out.buf, major<<5|25)
		e.out.appendUint16(uint16(n))
		return nil
	case n <= math.MaxUint32:
		if err := e.out.ensureRoom(5); err != nil {
			return err
		}
		e.out.buf = append(e.out.buf, major<<5|26)
		e.out.appendUint32(uint32(n))
		return nil
	default:
		if err := e.out.ensureRoom(9); err != nil {
			return err
		}
		e.out.buf = append(e.out.buf, major<<5|27)
		e.out.appendUint64(n)
		return nil
	}
}

// writeByteStringRaw writes a definite-length major-2 header and data, with
// no context bookkeeping: used both for the public WriteBinary and as a
// building block inside bignum tag framing.
func (e *Encoder) writeByteStringRaw(data []byte) error {
	if err := e.writeUintHeader(2, uint64(len(data))); err != nil {
		return err
	}
	return e.out.writeBytes(data)
}

// writeTextRaw writes a definite-length major-3 header and data. Unlike the
// teacher's BSON string framing (which must reserve a length word before
// the UTF-16-to-UTF-8 transcoding it produces is known), a Go string
// already holds its own UTF-8 byte count in len(s), so no
// reserve/transcode/patch dance is needed here: the minimal header width is
// computed directly from len(s) up front.
func (e *Encoder) writeTextRaw(s string) error {
	if err := e.writeUintHeader(3, uint64(len(s))); err != nil {
		return err
	}
	return e.out.writeBytes([]byte(s))
}

// WriteStartArray opens an indefinite-length array.
func (e *Encoder) WriteStartArray() error {
	if err := e.ctx.writeValue(); err != nil {
		return err
	}
	if err := e.out.writeByte(0x9F); err != nil {
		return err
	}
	e.ctx = e.ctx.createChildArray()
	return nil
}

// WriteEndArray closes the innermost array with a break byte.
func (e *Encoder) WriteEndArray() error {
	if e.ctx.kind != contextArray {
		return writeViolationf("EndArray while not inside an array")
	}
	if err := e.out.writeByte(breakByte); err != nil {
		return err
	}
	e.ctx = e.ctx.parent
	return nil
}

// WriteStartObject opens an indefinite-length object.
func (e *Encoder) WriteStartObject() error {
	if err := e.ctx.writeValue(); err != nil {
		return err
	}
	if err := e.out.writeByte(0xBF); err != nil {
		return err
	}
	e.ctx = e.ctx.createChildObject(e.cfg.StrictDuplicateDetection)
	return nil
}

// WriteEndObject closes the innermost object with a break byte. It is an
// error to close an object with a field name written but no matching value.
func (e *Encoder) WriteEndObject() error {
	if e.ctx.kind != contextObject {
		return writeViolationf("EndObject while not inside an object")
	}
	if !e.ctx.expectName {
		return writeViolationf("EndObject with a field name awaiting its value")
	}
	if err := e.out.writeByte(breakByte); err != nil {
		return err
	}
	e.ctx = e.ctx.parent
	return nil
}

// forceCloseContainer closes the innermost container without the
// dangling-field-name check, for Close's cfg.AutoCloseContent path where
// synthesizing a close should never itself fail.
func (e *Encoder) forceCloseContainer() error {
	if err := e.out.writeByte(breakByte); err != nil {
		return err
	}
	e.ctx = e.ctx.parent
	return nil
}

// WriteFieldName writes an object key.
func (e *Encoder) WriteFieldName(name string) error {
	if err := validateUTF8([]byte(name)); err != nil {
		return err
	}
	if err := e.ctx.writeFieldName(name); err != nil {
		return err
	}
	return e.writeTextRaw(name)
}

// WriteString writes a text-string value.
func (e *Encoder) WriteString(s string) error {
	if err := validateUTF8([]byte(s)); err != nil {
		return err
	}
	if err := e.ctx.writeValue(); err != nil {
		return err
	}
	return e.writeTextRaw(s)
}

// WriteBinary writes a byte-string value, surfaced by the Decoder as
// EmbeddedObject (Open Question: the decoder never emits a bare Binary
// token, so WriteEmbeddedObject is kept only as an alias for symmetry).
func (e *Encoder) WriteBinary(data []byte) error {
	if err := e.ctx.writeValue(); err != nil {
		return err
	}
	return e.writeByteStringRaw(data)
}

// WriteEmbeddedObject is an alias for WriteBinary.
func (e *Encoder) WriteEmbeddedObject(data []byte) error {
	return e.WriteBinary(data)
}

// WriteInt32 writes a 32-bit integer using the narrowest CBOR width.
func (e *Encoder) WriteInt32(v int32) error {
	return e.writeIntValue(int64(v))
}

// WriteInt64 writes a 64-bit integer using the narrowest CBOR width.
func (e *Encoder) WriteInt64(v int64) error {
	return e.writeIntValue(v)
}

func (e *Encoder) writeIntValue(v int64) error {
	if err := e.ctx.writeValue(); err != nil {
		return err
	}
	return e.writeRawInt64(v)
}

// writeRawInt64 writes the plain (non-tagged) integer encoding of v with no
// context bookkeeping, for use both as a public value write and as the
// scale element inside WriteBigDecimal's fixed two-element array.
func (e *Encoder) writeRawInt64(v int64) error {
	if v >= 0 {
		return e.writeUintHeader(0, uint64(v))
	}
	return e.writeUintHeader(1, uint64(-(v+1)))
}

// WriteBigInt writes an arbitrary-precision integer as CBOR tag 2 (positive)
// or tag 3 (negative), per spec.md §4.9: the bignum tag is always used for
// an explicit big-integer write, even when the magnitude would fit in a
// plain integer header, matching the round-trip fixture "positive bignum 1"
// encoding as C2 41 01 rather than the bare integer 01.
func (e *Encoder) WriteBigInt(v *big.Int) error {
	if err := e.ctx.writeValue(); err != nil {
		return err
	}
	return e.writeBigIntTagged(v)
}

func (e *Encoder) writeBigIntTagged(v *big.Int) error {
	tag := uint64(2)
	mag := v
	if v.Sign() < 0 {
		tag = 3
		mag = new(big.Int).Neg(v)
		mag.Sub(mag, big.NewInt(1))
	}
	if err := e.writeUintHeader(6, tag); err != nil {
		return err
	}
	data := mag.Bytes()
	if len(data) == 0 {
		// A zero magnitude (the values 0 and -1) is written as one zero byte.
		data = []byte{0}
	}
	return e.writeByteStringRaw(data)
}

// writeUnscaled writes v as the narrowest of a plain integer or a bignum
// tag, per spec.md §4.9's BigDecimal framing.
func (e *Encoder) writeUnscaled(v *big.Int) error {
	if v.IsInt64() {
		return e.writeRawInt64(v.Int64())
	}
	return e.writeBigIntTagged(v)
}

// WriteBigDecimal writes an arbitrary-precision decimal as CBOR tag 4
// wrapping a fixed two-element array [scale, unscaled].
func (e *Encoder) WriteBigDecimal(d BigDecimal) error {
	if err := e.ctx.writeValue(); err != nil {
		return err
	}
	if err := e.writeUintHeader(6, 4); err != nil {
		return err
	}
	if err := e.writeUintHeader(4, 2); err != nil {
		return err
	}
	if err := e.writeRawInt64(int64(d.Scale)); err != nil {
		return err
	}
	unscaled := d.Unscaled
	if unscaled == nil {
		unscaled = new(big.Int)
	}
	return e.writeUnscaled(unscaled)
}

// WriteFloat32 writes a single-precision float, always at full 4-byte
// width: this package never emits the CBOR half-float major type on write,
// and never narrows a caller's float32 further (spec.md §4.9/Non-goals).
func (e *Encoder) WriteFloat32(v float32) error {
	if err := e.ctx.writeValue(); err != nil {
		return err
	}
	if err := e.out.ensureRoom(5); err != nil {
		return err
	}
	e.out.buf = append(e.out.buf, 0xFA)
	e.out.appendUint32(math.Float32bits(v))
	return nil
}

// WriteFloat64 writes a double-precision float at full 8-byte width.
func (e *Encoder) WriteFloat64(v float64) error {
	if err := e.ctx.writeValue(); err != nil {
		return err
	}
	if err := e.out.ensureRoom(9); err != nil {
		return err
	}
	e.out.buf = append(e.out.buf, 0xFB)
	e.out.appendUint64(math.Float64bits(v))
	return nil
}

// WriteBoolean writes a boolean value.
func (e *Encoder) WriteBoolean(v bool) error {
	if err := e.ctx.writeValue(); err != nil {
		return err
	}
	b := byte(0xF4)
	if v {
		b = 0xF5
	}
	return e.out.writeByte(b)
}

// WriteNull writes the CBOR null simple value (0xF6). Open Question: a
// previous revision of this framing emitted the adjacent simple value
// (CBOR false, 0xF4) by mistake; this always writes 0xF6.
func (e *Encoder) WriteNull() error {
	if err := e.ctx.writeValue(); err != nil {
		return err
	}
	return e.out.writeByte(0xF6)
}

// WriteTag writes a standalone tag header. The next WriteXxx call supplies
// the tagged value; WriteTag itself does not consume a value slot in the
// write context. Used for framing like the self-describe tag (55799).
func (e *Encoder) WriteTag(tag uint64) error {
	return e.writeUintHeader(6, tag)
}

// Flush drains any buffered output to the underlying writer, additionally
// calling the writer's own Flush method when cfg.FlushPassedToStream is set
// and it implements one.
func (e *Encoder) Flush() error {
	if err := e.out.flush(); err != nil {
		return err
	}
	if e.cfg.FlushPassedToStream {
		if f, ok := e.dst.(flusher); ok {
			return wrapIOError("flushing target", f.Flush())
		}
	}
	return nil
}

// Close releases the Encoder's resources. If cfg.AutoCloseContent is set,
// any still-open containers are closed first; the buffered output is then
// flushed; if cfg.AutoCloseTarget is set and the underlying writer
// implements io.Closer, it is closed last.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.cfg.AutoCloseContent {
		for e.ctx.kind != contextRoot {
			if err := e.forceCloseContainer(); err != nil {
				return err
			}
		}
	}
	if err := e.out.flush(); err != nil {
		return err
	}
	if e.cfg.AutoCloseTarget {
		if c, ok := e.dst.(io.Closer); ok {
			if err := c.Close(); err != nil {
				return wrapIOError("closing target", err)
			}
		}
	}
	return nil
}
