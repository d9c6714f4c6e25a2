package cbor

import (
	"bytes"
	"io"
	"math/big"
	"testing"
)

func decodeAll(t *testing.T, data []byte, cfg Config) (*Decoder, []Token) {
	t.Helper()
	dec := NewDecoder(bytes.NewReader(data), nil, cfg)
	var toks []Token
	for {
		tok, err := dec.NextToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextToken: %v", err)
		}
		toks = append(toks, tok)
	}
	return dec, toks
}

func TestDecoderPositiveIntWidths(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want int64
	}{
		{"inline", []byte{0x00}, 0},
		{"inline max", []byte{0x17}, 23},
		{"uint8", []byte{0x18, 0x18}, 24},
		{"uint16", []byte{0x19, 0x01, 0x00}, 256},
		{"uint32", []byte{0x1a, 0x00, 0x01, 0x00, 0x00}, 65536},
		{"uint64", []byte{0x1b, 0, 0, 0, 1, 0, 0, 0, 0}, 1 << 32},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dec := NewDecoder(bytes.NewReader(c.data), nil, Config{})
			tok, err := dec.NextToken()
			if err != nil {
				t.Fatalf("NextToken: %v", err)
			}
			if tok != Integer {
				t.Fatalf("token = %v, want Integer", tok)
			}
			got, err := dec.GetInt64()
			if err != nil {
				t.Fatalf("GetInt64: %v", err)
			}
			if got != c.want {
				t.Errorf("GetInt64() = %d, want %d", got, c.want)
			}
		})
	}
}

func TestDecoderNegativeInt(t *testing.T) {
	dec := NewDecoder(bytes.NewReader([]byte{0x20}), nil, Config{})
	tok, err := dec.NextToken()
	if err != nil || tok != Integer {
		t.Fatalf("NextToken = (%v, %v)", tok, err)
	}
	got, err := dec.GetInt64()
	if err != nil || got != -1 {
		t.Fatalf("GetInt64() = (%d, %v), want -1", got, err)
	}
}

func TestDecoderTextString(t *testing.T) {
	data := []byte{0x63, 'f', 'o', 'o'}
	dec := NewDecoder(bytes.NewReader(data), nil, Config{})
	tok, err := dec.NextToken()
	if err != nil || tok != String {
		t.Fatalf("NextToken = (%v, %v)", tok, err)
	}
	got, err := dec.GetText()
	if err != nil || got != "foo" {
		t.Fatalf("GetText() = (%q, %v), want \"foo\"", got, err)
	}
}

func TestDecoderByteString(t *testing.T) {
	data := []byte{0x43, 1, 2, 3}
	dec := NewDecoder(bytes.NewReader(data), nil, Config{})
	tok, err := dec.NextToken()
	if err != nil || tok != EmbeddedObject {
		t.Fatalf("NextToken = (%v, %v)", tok, err)
	}
	got, err := dec.GetBinary()
	if err != nil {
		t.Fatalf("GetBinary: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("GetBinary() = %v, want [1 2 3]", got)
	}
}

func TestDecoderDefiniteArray(t *testing.T) {
	data := []byte{0x83, 0x01, 0x02, 0x03}
	_, toks := decodeAll(t, data, Config{})
	want := []Token{StartArray, Integer, Integer, Integer, EndArray}
	if !tokensEqual(toks, want) {
		t.Errorf("tokens = %v, want %v", toks, want)
	}
}

func TestDecoderIndefiniteArray(t *testing.T) {
	data := []byte{0x9f, 0x01, 0xff}
	_, toks := decodeAll(t, data, Config{})
	want := []Token{StartArray, Integer, EndArray}
	if !tokensEqual(toks, want) {
		t.Errorf("tokens = %v, want %v", toks, want)
	}
}

func TestDecoderObject(t *testing.T) {
	data := []byte{0xa1, 0x61, 'a', 0x01}
	dec := NewDecoder(bytes.NewReader(data), nil, Config{})
	var toks []Token
	var names []string
	for {
		tok, err := dec.NextToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextToken: %v", err)
		}
		toks = append(toks, tok)
		names = append(names, dec.CurrentName())
	}
	want := []Token{StartObject, FieldName, Integer, EndObject}
	if !tokensEqual(toks, want) {
		t.Errorf("tokens = %v, want %v", toks, want)
	}
	if names[1] != "a" || names[2] != "a" {
		t.Errorf("names = %v, want field/value both \"a\"", names)
	}
}

func TestDecoderIntegerObjectKeyCompat(t *testing.T) {
	// {0: "x"} encoded as a1 00 61 78
	data := []byte{0xa1, 0x00, 0x61, 'x'}
	dec := NewDecoder(bytes.NewReader(data), nil, Config{})
	if _, err := dec.NextToken(); err != nil { // StartObject
		t.Fatalf("NextToken: %v", err)
	}
	tok, err := dec.NextToken() // FieldName
	if err != nil || tok != FieldName {
		t.Fatalf("NextToken = (%v, %v)", tok, err)
	}
	if dec.CurrentName() != "0" {
		t.Errorf("CurrentName() = %q, want \"0\"", dec.CurrentName())
	}
}

func TestDecoderNegativeIntegerObjectKeyCompat(t *testing.T) {
	// {-1: "x"} encoded as a1 20 61 78
	data := []byte{0xa1, 0x20, 0x61, 'x'}
	dec := NewDecoder(bytes.NewReader(data), nil, Config{})
	if _, err := dec.NextToken(); err != nil {
		t.Fatalf("NextToken: %v", err)
	}
	tok, err := dec.NextToken()
	if err != nil || tok != FieldName {
		t.Fatalf("NextToken = (%v, %v)", tok, err)
	}
	if dec.CurrentName() != "-1" {
		t.Errorf("CurrentName() = %q, want \"-1\"", dec.CurrentName())
	}
}

func TestDecoderFloats(t *testing.T) {
	// single-precision 1.5 -> fa 3f c0 00 00
	data := []byte{0xfa, 0x3f, 0xc0, 0x00, 0x00}
	dec := NewDecoder(bytes.NewReader(data), nil, Config{})
	tok, err := dec.NextToken()
	if err != nil || tok != Float {
		t.Fatalf("NextToken = (%v, %v)", tok, err)
	}
	if dec.GetNumberType() != NumberFloat32 {
		t.Fatalf("GetNumberType() = %v, want NumberFloat32", dec.GetNumberType())
	}
	got, err := dec.GetFloat64()
	if err != nil || got != 1.5 {
		t.Errorf("GetFloat64() = (%v, %v), want 1.5", got, err)
	}
}

func TestDecoderHalfFloat(t *testing.T) {
	// half-precision 1.0 -> f9 3c00
	data := []byte{0xf9, 0x3c, 0x00}
	dec := NewDecoder(bytes.NewReader(data), nil, Config{})
	tok, err := dec.NextToken()
	if err != nil || tok != Float {
		t.Fatalf("NextToken = (%v, %v)", tok, err)
	}
	got, err := dec.GetFloat64()
	if err != nil || got != 1.0 {
		t.Errorf("GetFloat64() = (%v, %v), want 1.0", got, err)
	}
}

func TestDecoderBooleanAndNull(t *testing.T) {
	data := []byte{0x83, 0xf4, 0xf5, 0xf6}
	dec := NewDecoder(bytes.NewReader(data), nil, Config{})
	if _, err := dec.NextToken(); err != nil { // array
		t.Fatalf("NextToken: %v", err)
	}
	if _, err := dec.NextToken(); err != nil { // false
		t.Fatalf("NextToken: %v", err)
	}
	if v, err := dec.GetBoolean(); err != nil || v != false {
		t.Errorf("GetBoolean() = (%v, %v), want false", v, err)
	}
	if _, err := dec.NextToken(); err != nil { // true
		t.Fatalf("NextToken: %v", err)
	}
	if v, err := dec.GetBoolean(); err != nil || v != true {
		t.Errorf("GetBoolean() = (%v, %v), want true", v, err)
	}
	tok, err := dec.NextToken() // null
	if err != nil || tok != Null {
		t.Fatalf("NextToken = (%v, %v), want Null", tok, err)
	}
}

func TestDecoderBignumTag(t *testing.T) {
	// tag 2 + byte string 0x01 -> positive bignum 1
	data := []byte{0xc2, 0x41, 0x01}
	dec := NewDecoder(bytes.NewReader(data), nil, Config{})
	tok, err := dec.NextToken()
	if err != nil || tok != Integer {
		t.Fatalf("NextToken = (%v, %v)", tok, err)
	}
	if tag, ok := dec.CurrentTag(); !ok || tag != 2 {
		t.Errorf("CurrentTag() = (%d, %v), want (2, true)", tag, ok)
	}
	got, err := dec.GetBigInt()
	if err != nil {
		t.Fatalf("GetBigInt: %v", err)
	}
	if got.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("GetBigInt() = %s, want 1", got)
	}
}

func TestDecoderNegativeBignumTag(t *testing.T) {
	// tag 3 + byte string 0x00 -> negative bignum -1
	data := []byte{0xc3, 0x41, 0x00}
	dec := NewDecoder(bytes.NewReader(data), nil, Config{})
	if _, err := dec.NextToken(); err != nil {
		t.Fatalf("NextToken: %v", err)
	}
	got, err := dec.GetBigInt()
	if err != nil {
		t.Fatalf("GetBigInt: %v", err)
	}
	if got.Cmp(big.NewInt(-1)) != 0 {
		t.Errorf("GetBigInt() = %s, want -1", got)
	}
}

func TestDecoderDecimalFractionTag(t *testing.T) {
	// tag 4, [scale=2, unscaled=12345] -> 123.45
	data := []byte{0xc4, 0x82, 0x02, 0x19, 0x30, 0x39}
	dec := NewDecoder(bytes.NewReader(data), nil, Config{})
	tok, err := dec.NextToken()
	if err != nil || tok != Float {
		t.Fatalf("NextToken = (%v, %v), want Float", tok, err)
	}
	bd, err := dec.GetBigDecimal()
	if err != nil {
		t.Fatalf("GetBigDecimal: %v", err)
	}
	if bd.String() != "123.45" {
		t.Errorf("GetBigDecimal().String() = %q, want %q", bd.String(), "123.45")
	}
}

func TestDecoderIndefiniteTextChunks(t *testing.T) {
	// (_ "ab", "cd")
	data := []byte{0x7f, 0x62, 'a', 'b', 0x62, 'c', 'd', 0xff}
	dec := NewDecoder(bytes.NewReader(data), nil, Config{})
	tok, err := dec.NextToken()
	if err != nil || tok != String {
		t.Fatalf("NextToken = (%v, %v)", tok, err)
	}
	got, err := dec.GetText()
	if err != nil || got != "abcd" {
		t.Errorf("GetText() = (%q, %v), want \"abcd\"", got, err)
	}
}

func TestDecoderRejectsInvalidUTF8(t *testing.T) {
	data := []byte{0x61, 0xff}
	dec := NewDecoder(bytes.NewReader(data), nil, Config{})
	if _, err := dec.NextToken(); err != nil {
		t.Fatalf("NextToken: %v", err)
	}
	if _, err := dec.GetText(); err == nil {
		t.Error("expected an error decoding invalid UTF-8")
	}
}

func TestDecoderRejectsOverlongUTF8(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"overlong 3-byte NUL", []byte{0x63, 0xE0, 0x80, 0x80}},
		{"overlong 4-byte NUL", []byte{0x64, 0xF0, 0x80, 0x80, 0x80}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dec := NewDecoder(bytes.NewReader(c.data), nil, Config{})
			if _, err := dec.NextToken(); err != nil {
				t.Fatalf("NextToken: %v", err)
			}
			if _, err := dec.GetText(); err == nil {
				t.Error("expected an error decoding an overlong UTF-8 sequence")
			}
		})
	}
}

func TestDecoderSkipsUnreadPayload(t *testing.T) {
	data := []byte{0x82, 0x63, 'f', 'o', 'o', 0x01}
	dec := NewDecoder(bytes.NewReader(data), nil, Config{})
	if _, err := dec.NextToken(); err != nil { // array
		t.Fatalf("NextToken: %v", err)
	}
	if _, err := dec.NextToken(); err != nil { // string, never read
		t.Fatalf("NextToken: %v", err)
	}
	tok, err := dec.NextToken() // should skip the string bytes and land on the integer
	if err != nil || tok != Integer {
		t.Fatalf("NextToken = (%v, %v), want Integer", tok, err)
	}
	got, _ := dec.GetInt64()
	if got != 1 {
		t.Errorf("GetInt64() = %d, want 1", got)
	}
}

func TestDecoderSymbolTableInterning(t *testing.T) {
	symtab := NewSymbolTable(0)
	data := []byte{0xa1, 0x61, 'a', 0x01}
	dec := NewDecoder(bytes.NewReader(data), symtab, Config{InternFieldNames: true})
	if _, err := dec.NextToken(); err != nil {
		t.Fatalf("NextToken: %v", err)
	}
	if _, err := dec.NextToken(); err != nil {
		t.Fatalf("NextToken: %v", err)
	}
	if symtab.Len() != 1 {
		t.Errorf("symtab.Len() = %d, want 1", symtab.Len())
	}
}

func TestDecoderStrictDuplicateDetection(t *testing.T) {
	data := []byte{0xa2, 0x61, 'a', 0x01, 0x61, 'a', 0x02}
	dec := NewDecoder(bytes.NewReader(data), nil, Config{StrictDuplicateDetection: true})
	var lastErr error
	for {
		_, err := dec.NextToken()
		if err != nil {
			lastErr = err
			break
		}
	}
	if lastErr == nil || lastErr == io.EOF {
		t.Fatal("expected a duplicate field name error")
	}
}

func tokensEqual(got, want []Token) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
