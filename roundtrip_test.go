package cbor

import (
	"bytes"
	"io"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

// S1: encode then decode a nested document via the indefinite encoder; the
// decoded event sequence must match, and every scalar accessor returns the
// documented value.
func TestScenarioS1NestedDocumentRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, Config{})

	write := func(fn func() error) {
		if err := fn(); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	write(enc.WriteStartObject)
	write(func() error { return enc.WriteFieldName("Image") })
	write(enc.WriteStartObject)
	write(func() error { return enc.WriteFieldName("Width") })
	write(func() error { return enc.WriteInt64(800) })
	write(func() error { return enc.WriteFieldName("Height") })
	write(func() error { return enc.WriteInt64(600) })
	write(func() error { return enc.WriteFieldName("Title") })
	write(func() error { return enc.WriteString("View from 15th Floor") })
	write(func() error { return enc.WriteFieldName("Thumbnail") })
	write(enc.WriteStartObject)
	write(func() error { return enc.WriteFieldName("Url") })
	write(func() error { return enc.WriteString("http://www.example.com/image/481989943") })
	write(func() error { return enc.WriteFieldName("Height") })
	write(func() error { return enc.WriteInt64(125) })
	write(func() error { return enc.WriteFieldName("Width") })
	write(func() error { return enc.WriteString("100") })
	write(enc.WriteEndObject)
	write(func() error { return enc.WriteFieldName("IDs") })
	write(enc.WriteStartArray)
	for _, id := range []int64{116, 943, 234, 38793} {
		id := id
		write(func() error { return enc.WriteInt64(id) })
	}
	write(enc.WriteEndArray)
	write(enc.WriteEndObject)
	write(enc.WriteEndObject)
	require.NoError(t, enc.Flush())

	dec := NewDecoder(bytes.NewReader(buf.Bytes()), nil, Config{})

	next := func() Token {
		tok, err := dec.NextToken()
		require.NoError(t, err)
		return tok
	}
	require.Equal(t, StartObject, next())
	require.Equal(t, FieldName, next())
	require.Equal(t, "Image", dec.CurrentName())
	require.Equal(t, StartObject, next())
	require.Equal(t, FieldName, next())
	require.Equal(t, "Width", dec.CurrentName())
	require.Equal(t, Integer, next())
	v, err := dec.GetInt64()
	require.NoError(t, err)
	require.Equal(t, int64(800), v)
	require.Equal(t, FieldName, next())
	require.Equal(t, "Height", dec.CurrentName())
	require.Equal(t, Integer, next())
	v, err = dec.GetInt64()
	require.NoError(t, err)
	require.Equal(t, int64(600), v)
	require.Equal(t, FieldName, next())
	require.Equal(t, "Title", dec.CurrentName())
	require.Equal(t, String, next())
	s, err := dec.GetText()
	require.NoError(t, err)
	require.Equal(t, "View from 15th Floor", s)
	require.Equal(t, FieldName, next())
	require.Equal(t, "Thumbnail", dec.CurrentName())
	require.Equal(t, StartObject, next())
	require.Equal(t, FieldName, next())
	require.Equal(t, "Url", dec.CurrentName())
	require.Equal(t, String, next())
	s, err = dec.GetText()
	require.NoError(t, err)
	require.Equal(t, "http://www.example.com/image/481989943", s)
	require.Equal(t, FieldName, next())
	require.Equal(t, "Height", dec.CurrentName())
	require.Equal(t, Integer, next())
	v, err = dec.GetInt64()
	require.NoError(t, err)
	require.Equal(t, int64(125), v)
	require.Equal(t, FieldName, next())
	require.Equal(t, "Width", dec.CurrentName())
	require.Equal(t, String, next())
	s, err = dec.GetText()
	require.NoError(t, err)
	require.Equal(t, "100", s)
	require.Equal(t, EndObject, next())
	require.Equal(t, FieldName, next())
	require.Equal(t, "IDs", dec.CurrentName())
	require.Equal(t, StartArray, next())
	for _, id := range []int64{116, 943, 234, 38793} {
		require.Equal(t, Integer, next())
		v, err := dec.GetInt64()
		require.NoError(t, err)
		require.Equal(t, id, v)
	}
	require.Equal(t, EndArray, next())
	require.Equal(t, EndObject, next())
	require.Equal(t, EndObject, next())

	_, err = dec.NextToken()
	require.ErrorIs(t, err, io.EOF)
}

// S2: decode a Perl-style map using a byte-string key and an empty nested
// object as the value.
func TestScenarioS2PerlStyleByteStringKey(t *testing.T) {
	data := []byte{0xA1, 0x45, 0x71, 0x75, 0x65, 0x72, 0x79, 0xA0}
	dec := NewDecoder(bytes.NewReader(data), nil, Config{})

	next := func() Token {
		tok, err := dec.NextToken()
		require.NoError(t, err)
		return tok
	}
	require.Equal(t, StartObject, next())
	require.Equal(t, FieldName, next())
	require.Equal(t, "query", dec.CurrentName())
	require.Equal(t, StartObject, next())
	require.Equal(t, EndObject, next())
	require.Equal(t, EndObject, next())

	_, err := dec.NextToken()
	require.ErrorIs(t, err, io.EOF)
}

// S3: self-describe tag interop, encoding tag 55799 followed by a boolean.
func TestScenarioS3SelfDescribeInterop(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, Config{})
	require.NoError(t, enc.WriteTag(0xD9F7))
	require.NoError(t, enc.WriteBoolean(true))
	require.NoError(t, enc.Flush())
	require.Equal(t, []byte{0xD9, 0xD9, 0xF7, 0xF5}, buf.Bytes())
}

// S4: binary round-trip for a payload that fits in one buffered read and
// one that forces the decoder's long streaming path.
func TestScenarioS4BinaryRoundTripAcrossBufferBoundary(t *testing.T) {
	sizes := []int{100, defaultInputCapacity + 500}
	for _, size := range sizes {
		size := size
		t.Run("", func(t *testing.T) {
			payload := make([]byte, size)
			for i := range payload {
				payload[i] = byte(i)
			}

			var buf bytes.Buffer
			enc := NewEncoder(&buf, Config{})
			require.NoError(t, enc.WriteBinary(payload))
			require.NoError(t, enc.Flush())

			dec := NewDecoder(bytes.NewReader(buf.Bytes()), nil, Config{})
			tok, err := dec.NextToken()
			require.NoError(t, err)
			require.Equal(t, EmbeddedObject, tok)

			got, err := dec.GetBinary()
			require.NoError(t, err)
			require.Equal(t, payload, got)
		})
	}
}

// S5: half-float decoding table.
func TestScenarioS5HalfFloatTable(t *testing.T) {
	cases := []struct {
		bits uint16
		want float64
	}{
		{0x0000, 0.0},
		{0x3C00, 1.0},
		{0xC000, -2.0},
		{0x7BFF, 65504.0},
		{0x7C00, math.Inf(1)},
		{0xFC00, math.Inf(-1)},
	}
	for _, c := range cases {
		got := halfFloatToFloat64(c.bits)
		if math.IsInf(c.want, 0) {
			require.True(t, math.IsInf(got, int(math.Copysign(1, c.want))))
			continue
		}
		require.Equal(t, c.want, got)
	}
}

// S6: sizer determinism for both a small and a large array.
func TestScenarioS6SizerDeterminism(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, Config{})
	s := NewSizer(enc)
	require.NoError(t, s.WriteStartArray())
	for _, v := range []int64{1, 2, 3} {
		require.NoError(t, s.WriteInt64(v))
	}
	require.NoError(t, s.WriteEndArray())
	require.NoError(t, s.Flush())
	require.Equal(t, []byte{0x83, 0x01, 0x02, 0x03}, buf.Bytes())

	buf.Reset()
	enc = NewEncoder(&buf, Config{})
	s = NewSizer(enc)
	require.NoError(t, s.WriteStartArray())
	for i := int64(0); i < 32; i++ {
		require.NoError(t, s.WriteInt64(i))
	}
	require.NoError(t, s.WriteEndArray())
	require.NoError(t, s.Flush())

	got := buf.Bytes()
	require.Equal(t, byte(0x98), got[0], "definite array header with 1-byte length follows, never indefinite 0x9f")
	require.Equal(t, byte(32), got[1])
}

// Property 1: scalar round-trip for every supported scalar type.
func TestPropertyScalarRoundTrip(t *testing.T) {
	t.Run("int64", func(t *testing.T) {
		var buf bytes.Buffer
		enc := NewEncoder(&buf, Config{})
		require.NoError(t, enc.WriteInt64(-123456))
		require.NoError(t, enc.Flush())
		dec := NewDecoder(bytes.NewReader(buf.Bytes()), nil, Config{})
		tok, err := dec.NextToken()
		require.NoError(t, err)
		require.Equal(t, Integer, tok)
		v, err := dec.GetInt64()
		require.NoError(t, err)
		require.Equal(t, int64(-123456), v)
	})

	t.Run("float64", func(t *testing.T) {
		var buf bytes.Buffer
		enc := NewEncoder(&buf, Config{})
		require.NoError(t, enc.WriteFloat64(3.14159))
		require.NoError(t, enc.Flush())
		dec := NewDecoder(bytes.NewReader(buf.Bytes()), nil, Config{})
		tok, err := dec.NextToken()
		require.NoError(t, err)
		require.Equal(t, Float, tok)
		v, err := dec.GetFloat64()
		require.NoError(t, err)
		require.Equal(t, 3.14159, v)
	})

	t.Run("bigint", func(t *testing.T) {
		want := new(big.Int)
		want.SetString("123456789012345678901234567890", 10)
		var buf bytes.Buffer
		enc := NewEncoder(&buf, Config{})
		require.NoError(t, enc.WriteBigInt(want))
		require.NoError(t, enc.Flush())
		dec := NewDecoder(bytes.NewReader(buf.Bytes()), nil, Config{})
		tok, err := dec.NextToken()
		require.NoError(t, err)
		require.Equal(t, Integer, tok)
		got, err := dec.GetBigInt()
		require.NoError(t, err)
		require.Equal(t, 0, want.Cmp(got))
	})

	t.Run("bigdecimal", func(t *testing.T) {
		want := BigDecimal{Scale: 2, Unscaled: big.NewInt(12345)}
		var buf bytes.Buffer
		enc := NewEncoder(&buf, Config{})
		require.NoError(t, enc.WriteBigDecimal(want))
		require.NoError(t, enc.Flush())
		dec := NewDecoder(bytes.NewReader(buf.Bytes()), nil, Config{})
		tok, err := dec.NextToken()
		require.NoError(t, err)
		require.Equal(t, Float, tok)
		got, err := dec.GetBigDecimal()
		require.NoError(t, err)
		require.Equal(t, want.String(), got.String())
	})

	t.Run("string", func(t *testing.T) {
		var buf bytes.Buffer
		enc := NewEncoder(&buf, Config{})
		require.NoError(t, enc.WriteString("hello, cbor"))
		require.NoError(t, enc.Flush())
		dec := NewDecoder(bytes.NewReader(buf.Bytes()), nil, Config{})
		tok, err := dec.NextToken()
		require.NoError(t, err)
		require.Equal(t, String, tok)
		got, err := dec.GetText()
		require.NoError(t, err)
		require.Equal(t, "hello, cbor", got)
	})

	t.Run("boolean and null", func(t *testing.T) {
		var buf bytes.Buffer
		enc := NewEncoder(&buf, Config{})
		require.NoError(t, enc.WriteBoolean(true))
		require.NoError(t, enc.WriteNull())
		require.NoError(t, enc.Flush())
		dec := NewDecoder(bytes.NewReader(buf.Bytes()), nil, Config{})
		tok, err := dec.NextToken()
		require.NoError(t, err)
		require.Equal(t, Boolean, tok)
		b, err := dec.GetBoolean()
		require.NoError(t, err)
		require.True(t, b)
		tok, err = dec.NextToken()
		require.NoError(t, err)
		require.Equal(t, Null, tok)
	})
}

// Property 2 and 3: a sizer-produced document re-decodes to the same event
// sequence as its indefinite-length counterpart.
func TestPropertyIndefiniteEqualsDefinite(t *testing.T) {
	build := func(enc interface {
		WriteStartArray() error
		WriteStartObject() error
		WriteEndArray() error
		WriteEndObject() error
		WriteFieldName(string) error
		WriteInt64(int64) error
		WriteString(string) error
	}) {
		require.NoError(t, enc.WriteStartArray())
		require.NoError(t, enc.WriteStartObject())
		require.NoError(t, enc.WriteFieldName("a"))
		require.NoError(t, enc.WriteInt64(1))
		require.NoError(t, enc.WriteFieldName("b"))
		require.NoError(t, enc.WriteString("two"))
		require.NoError(t, enc.WriteEndObject())
		require.NoError(t, enc.WriteInt64(3))
		require.NoError(t, enc.WriteEndArray())
	}

	var indefBuf, defBuf bytes.Buffer
	indefEnc := NewEncoder(&indefBuf, Config{})
	build(indefEnc)
	require.NoError(t, indefEnc.Flush())

	defEnc := NewEncoder(&defBuf, Config{})
	sizer := NewSizer(defEnc)
	build(sizer)
	require.NoError(t, sizer.Flush())

	require.NotEqual(t, indefBuf.Bytes(), defBuf.Bytes(), "indefinite and definite encodings should differ byte-for-byte")

	collect := func(data []byte) []Token {
		dec := NewDecoder(bytes.NewReader(data), nil, Config{})
		var toks []Token
		for {
			tok, err := dec.NextToken()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			toks = append(toks, tok)
		}
		return toks
	}
	require.Equal(t, collect(indefBuf.Bytes()), collect(defBuf.Bytes()))
}

// Property 4: symbol interning produces content-equal names whether or not
// interning is enabled.
func TestPropertySymbolInterningAgreesWithNonInterning(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, Config{})
	require.NoError(t, enc.WriteStartObject())
	require.NoError(t, enc.WriteFieldName("repeated"))
	require.NoError(t, enc.WriteInt64(1))
	require.NoError(t, enc.WriteEndObject())
	require.NoError(t, enc.Flush())
	data := buf.Bytes()

	plain := NewDecoder(bytes.NewReader(data), nil, Config{})
	_, err := plain.NextToken()
	require.NoError(t, err)
	_, err = plain.NextToken()
	require.NoError(t, err)
	plainName := plain.CurrentName()

	symtab := NewSymbolTable(0)
	interning := NewDecoder(bytes.NewReader(data), symtab, Config{InternFieldNames: true})
	_, err = interning.NextToken()
	require.NoError(t, err)
	_, err = interning.NextToken()
	require.NoError(t, err)
	internedName := interning.CurrentName()

	require.Equal(t, plainName, internedName)
}

// Property 5: header minimality — every integer header uses the narrowest
// available width.
func TestPropertyHeaderMinimality(t *testing.T) {
	cases := []struct {
		v          int64
		headerByte byte
	}{
		{0, 0x00},
		{23, 0x17},
		{24, 0x18},
		{255, 0x18},
		{256, 0x19},
		{65535, 0x19},
		{65536, 0x1a},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		enc := NewEncoder(&buf, Config{})
		require.NoError(t, enc.WriteInt64(c.v))
		require.NoError(t, enc.Flush())
		require.Equal(t, c.headerByte, buf.Bytes()[0], "WriteInt64(%d)", c.v)
	}
}

// Property 6: invalid UTF-8 inside a text payload is rejected, not silently
// replaced.
func TestPropertyUTF8SafetyOnDecode(t *testing.T) {
	data := []byte{0x61, 0xFF} // text string, length 1, invalid UTF-8 byte
	dec := NewDecoder(bytes.NewReader(data), nil, Config{})
	tok, err := dec.NextToken()
	require.NoError(t, err)
	require.Equal(t, String, tok)
	_, err = dec.GetText()
	require.Error(t, err)
}

// Property 7: a BigInteger whose magnitude fits in a plain int64 is still
// accepted via tags 2/3 on decode, and round-trips to the same numeric
// value even though the encoder always frames it as a tagged bignum.
func TestPropertyBigIntWithinInt64RangeAcceptedViaTag(t *testing.T) {
	v := big.NewInt(42)
	var buf bytes.Buffer
	enc := NewEncoder(&buf, Config{})
	require.NoError(t, enc.WriteBigInt(v))
	require.NoError(t, enc.Flush())
	require.Equal(t, []byte{0xc2, 0x41, 0x2a}, buf.Bytes())

	dec := NewDecoder(bytes.NewReader(buf.Bytes()), nil, Config{})
	tok, err := dec.NextToken()
	require.NoError(t, err)
	require.Equal(t, Integer, tok)
	i64, err := dec.GetInt64()
	require.NoError(t, err)
	require.Equal(t, int64(42), i64)
}
