package cbor

import "encoding/binary"

// These small big-endian append helpers exist alongside bufferedOutput so
// the encoder can build a multi-byte header inline without a second
// allocation, mirroring how the teacher patches a BSON length word
// in-place with encoding/binary in jibby.go.

func (b *bufferedOutput) appendUint16(v uint16) { b.buf = binary.BigEndian.AppendUint16(b.buf, v) }
func (b *bufferedOutput) appendUint32(v uint32) { b.buf = binary.BigEndian.AppendUint32(b.buf, v) }
func (b *bufferedOutput) appendUint64(v uint64) { b.buf = binary.BigEndian.AppendUint64(b.buf, v) }
