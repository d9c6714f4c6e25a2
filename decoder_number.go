package cbor

import (
	"encoding/binary"
	"math"
	"math/big"
)

const (
	bitI32 uint8 = 1 << iota
	bitI64
	bitBigInt
	bitF32
	bitF64
	bitBigDecimal
)

// numberValue is a numeric token's promotion-ladder state: a bitmask of
// which representations have been computed so far, plus the cached value
// in each. Accessors compute and cache a representation on first request,
// per spec.md §4.6.3.
type numberValue struct {
	computed   uint8
	i32        int32
	i64        int64
	bigInt     *big.Int
	f32        float32
	f64        float64
	bigDecimal BigDecimal
	numberType NumberType
}

// readUint decodes the unsigned integer magnitude selected by an
// additional-info nibble: 0-23 inline, 24/25/26/27 a following 1/2/4/8-byte
// big-endian integer.
func (d *Decoder) readUint(info byte) (uint64, error) {
	switch {
	case info < 24:
		return uint64(info), nil
	case info == 24:
		b, err := d.in.nextByte()
		if err != nil {
			return 0, err
		}
		return uint64(b), nil
	case info == 25:
		if err := d.in.ensure(2); err != nil {
			return 0, err
		}
		v := binary.BigEndian.Uint16(d.in.bytesAt(2))
		d.in.skip(2)
		return uint64(v), nil
	case info == 26:
		if err := d.in.ensure(4); err != nil {
			return 0, err
		}
		v := binary.BigEndian.Uint32(d.in.bytesAt(4))
		d.in.skip(4)
		return uint64(v), nil
	case info == 27:
		if err := d.in.ensure(8); err != nil {
			return 0, err
		}
		v := binary.BigEndian.Uint64(d.in.bytesAt(8))
		d.in.skip(8)
		return v, nil
	default:
		return 0, malformedf("invalid additional info %d for integer length", info)
	}
}

// readLength is readUint specialized for array/map/string headers, where
// additional-info 31 means indefinite length instead of an invalid width
// selector.
func (d *Decoder) readLength(info byte) (length int, indefinite bool, err error) {
	if info == 31 {
		return -1, true, nil
	}
	v, err := d.readUint(info)
	if err != nil {
		return 0, false, err
	}
	if v > math.MaxInt32 {
		return 0, false, overflowf("length %d exceeds the maximum supported length", v)
	}
	return int(v), false, nil
}

func (d *Decoder) decodePositiveInt(info byte) (Token, error) {
	v, err := d.readUint(info)
	if err != nil {
		return NoToken, err
	}
	d.num = numberValue{}
	switch {
	case v <= math.MaxInt32:
		d.num.i32 = int32(v)
		d.num.i64 = int64(v)
		d.num.computed = bitI32 | bitI64
		d.num.numberType = NumberInt32
	case v <= math.MaxInt64:
		d.num.i64 = int64(v)
		d.num.computed = bitI64
		d.num.numberType = NumberInt64
	default:
		d.num.bigInt = new(big.Int).SetUint64(v)
		d.num.computed = bitBigInt
		d.num.numberType = NumberBigInt
	}
	return Integer, nil
}

func (d *Decoder) decodeNegativeInt(info byte) (Token, error) {
	v, err := d.readUint(info)
	if err != nil {
		return NoToken, err
	}
	d.num = numberValue{}
	switch {
	case v <= math.MaxInt32:
		val := -1 - int64(v)
		d.num.i32 = int32(val)
		d.num.i64 = val
		d.num.computed = bitI32 | bitI64
		d.num.numberType = NumberInt32
	case v <= math.MaxInt64:
		d.num.i64 = -1 - int64(v)
		d.num.computed = bitI64
		d.num.numberType = NumberInt64
	default:
		mag := new(big.Int).SetUint64(v)
		mag.Add(mag, big.NewInt(1))
		mag.Neg(mag)
		d.num.bigInt = mag
		d.num.computed = bitBigInt
		d.num.numberType = NumberBigInt
	}
	return Integer, nil
}

func (d *Decoder) decodeSimpleOrFloat(info byte) (Token, error) {
	switch info {
	case 20:
		d.boolValue = false
		return Boolean, nil
	case 21:
		d.boolValue = true
		return Boolean, nil
	case 22:
		return Null, nil
	case 25:
		if err := d.in.ensure(2); err != nil {
			return NoToken, err
		}
		bits := binary.BigEndian.Uint16(d.in.bytesAt(2))
		d.in.skip(2)
		d.num = numberValue{f64: halfFloatToFloat64(bits), computed: bitF64, numberType: NumberFloat64}
		return Float, nil
	case 26:
		if err := d.in.ensure(4); err != nil {
			return NoToken, err
		}
		bits := binary.BigEndian.Uint32(d.in.bytesAt(4))
		d.in.skip(4)
		f32 := math.Float32frombits(bits)
		d.num = numberValue{f32: f32, f64: float64(f32), computed: bitF32 | bitF64, numberType: NumberFloat32}
		return Float, nil
	case 27:
		if err := d.in.ensure(8); err != nil {
			return NoToken, err
		}
		bits := binary.BigEndian.Uint64(d.in.bytesAt(8))
		d.in.skip(8)
		d.num = numberValue{f64: math.Float64frombits(bits), computed: bitF64, numberType: NumberFloat64}
		return Float, nil
	case 31:
		return NoToken, malformedf("unexpected break byte outside an indefinite-length container")
	default:
		return NoToken, malformedf("invalid additional info %d for major type 7", info)
	}
}

// GetInt32 narrows the current Integer/Float value to int32, computing and
// caching the narrowing once. Out-of-range values fail with NumericOverflow
// rather than wrapping.
func (d *Decoder) GetInt32() (int32, error) {
	if d.token != Integer && d.token != Float {
		return 0, malformedf("current token is not numeric")
	}
	n := &d.num
	if n.computed&bitI32 != 0 {
		return n.i32, nil
	}
	switch {
	case n.computed&bitI64 != 0:
		if n.i64 < math.MinInt32 || n.i64 > math.MaxInt32 {
			return 0, overflowf("value %d does not fit in int32", n.i64)
		}
		n.i32 = int32(n.i64)
	case n.computed&bitBigInt != 0:
		if !n.bigInt.IsInt64() {
			return 0, overflowf("value %s does not fit in int32", n.bigInt.String())
		}
		v := n.bigInt.Int64()
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, overflowf("value %d does not fit in int32", v)
		}
		n.i32 = int32(v)
	case n.computed&bitF64 != 0:
		if n.f64 != math.Trunc(n.f64) || n.f64 < math.MinInt32 || n.f64 > math.MaxInt32 {
			return 0, overflowf("float value %v does not fit in int32", n.f64)
		}
		n.i32 = int32(n.f64)
	case n.computed&bitF32 != 0:
		f := float64(n.f32)
		if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
			return 0, overflowf("float value %v does not fit in int32", f)
		}
		n.i32 = int32(f)
	case n.computed&bitBigDecimal != 0:
		f := n.bigDecimal.Float64()
		if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
			return 0, overflowf("decimal value %v does not fit in int32", f)
		}
		n.i32 = int32(f)
	default:
		return 0, malformedf("no numeric representation computed")
	}
	n.computed |= bitI32
	return n.i32, nil
}

// GetInt64 widens/narrows the current Integer/Float value to int64.
func (d *Decoder) GetInt64() (int64, error) {
	if d.token != Integer && d.token != Float {
		return 0, malformedf("current token is not numeric")
	}
	n := &d.num
	if n.computed&bitI64 != 0 {
		return n.i64, nil
	}
	switch {
	case n.computed&bitI32 != 0:
		n.i64 = int64(n.i32)
	case n.computed&bitBigInt != 0:
		if !n.bigInt.IsInt64() {
			return 0, overflowf("value %s does not fit in int64", n.bigInt.String())
		}
		n.i64 = n.bigInt.Int64()
	case n.computed&bitF64 != 0:
		if n.f64 != math.Trunc(n.f64) || n.f64 < math.MinInt64 || n.f64 > math.MaxInt64 {
			return 0, overflowf("float value %v does not fit in int64", n.f64)
		}
		n.i64 = int64(n.f64)
	case n.computed&bitF32 != 0:
		f := float64(n.f32)
		if f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
			return 0, overflowf("float value %v does not fit in int64", f)
		}
		n.i64 = int64(f)
	case n.computed&bitBigDecimal != 0:
		f := n.bigDecimal.Float64()
		if f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
			return 0, overflowf("decimal value %v does not fit in int64", f)
		}
		n.i64 = int64(f)
	default:
		return 0, malformedf("no numeric representation computed")
	}
	n.computed |= bitI64
	return n.i64, nil
}

// GetBigInt returns the current Integer/Float value as an arbitrary
// precision integer, truncating a float toward zero.
func (d *Decoder) GetBigInt() (*big.Int, error) {
	if d.token != Integer && d.token != Float {
		return nil, malformedf("current token is not numeric")
	}
	n := &d.num
	if n.computed&bitBigInt != 0 {
		return n.bigInt, nil
	}
	switch {
	case n.computed&bitI64 != 0:
		n.bigInt = big.NewInt(n.i64)
	case n.computed&bitI32 != 0:
		n.bigInt = big.NewInt(int64(n.i32))
	case n.computed&bitF64 != 0:
		bi, _ := big.NewFloat(n.f64).Int(nil)
		n.bigInt = bi
	case n.computed&bitF32 != 0:
		bi, _ := big.NewFloat(float64(n.f32)).Int(nil)
		n.bigInt = bi
	case n.computed&bitBigDecimal != 0:
		bi, _ := n.bigDecimal.bigFloat().Int(nil)
		n.bigInt = bi
	default:
		return nil, malformedf("no numeric representation computed")
	}
	n.computed |= bitBigInt
	return n.bigInt, nil
}

// GetFloat32 returns the current Integer/Float value as a float32. No
// lossy f64->f32 narrowing check is performed beyond Go's own conversion,
// matching spec.md's "no f64 -> f32 lossy narrowing" note, which concerns
// the encoder, not this accessor.
func (d *Decoder) GetFloat32() (float32, error) {
	f, err := d.GetFloat64()
	if err != nil {
		return 0, err
	}
	d.num.f32 = float32(f)
	d.num.computed |= bitF32
	return d.num.f32, nil
}

// GetFloat64 returns the current Integer/Float value as a float64.
func (d *Decoder) GetFloat64() (float64, error) {
	if d.token != Integer && d.token != Float {
		return 0, malformedf("current token is not numeric")
	}
	n := &d.num
	if n.computed&bitF64 != 0 {
		return n.f64, nil
	}
	switch {
	case n.computed&bitI32 != 0:
		n.f64 = float64(n.i32)
	case n.computed&bitI64 != 0:
		n.f64 = float64(n.i64)
	case n.computed&bitBigInt != 0:
		f := new(big.Float).SetInt(n.bigInt)
		n.f64, _ = f.Float64()
	case n.computed&bitBigDecimal != 0:
		n.f64 = n.bigDecimal.Float64()
	default:
		return 0, malformedf("no numeric representation computed")
	}
	n.computed |= bitF64
	return n.f64, nil
}

// GetBigDecimal returns the current Integer/Float value as a BigDecimal.
// Converting from a double goes through its canonical textual
// representation rather than its raw bits, per spec.md §4.6.3, so that
// e.g. 0.1 becomes unscaled=1, scale=1 rather than the exact binary64
// approximation of 0.1.
func (d *Decoder) GetBigDecimal() (BigDecimal, error) {
	if d.token != Integer && d.token != Float {
		return BigDecimal{}, malformedf("current token is not numeric")
	}
	n := &d.num
	if n.computed&bitBigDecimal != 0 {
		return n.bigDecimal, nil
	}
	switch {
	case n.computed&bitI32 != 0:
		n.bigDecimal = BigDecimal{Unscaled: big.NewInt(int64(n.i32))}
	case n.computed&bitI64 != 0:
		n.bigDecimal = BigDecimal{Unscaled: big.NewInt(n.i64)}
	case n.computed&bitBigInt != 0:
		n.bigDecimal = BigDecimal{Unscaled: new(big.Int).Set(n.bigInt)}
	case n.computed&bitF64 != 0:
		bd, err := float64ToBigDecimal(n.f64)
		if err != nil {
			return BigDecimal{}, err
		}
		n.bigDecimal = bd
	case n.computed&bitF32 != 0:
		bd, err := float64ToBigDecimal(float64(n.f32))
		if err != nil {
			return BigDecimal{}, err
		}
		n.bigDecimal = bd
	default:
		return BigDecimal{}, malformedf("no numeric representation computed")
	}
	n.computed |= bitBigDecimal
	return n.bigDecimal, nil
}

// decodeBigIntTag decodes a CBOR byte string immediately following tag 2
// (positive bignum) or 3 (negative bignum) into a big.Int, per
// SPEC_FULL.md §4.9.
func (d *Decoder) decodeBigIntTag(info byte, tag int64) (Token, error) {
	length, indefinite, err := d.readLength(info)
	if err != nil {
		return NoToken, err
	}
	var data []byte
	if indefinite {
		data, err = d.readChunkedBytes(2)
	} else {
		data, err = d.readExactly(length)
	}
	if err != nil {
		return NoToken, err
	}
	mag := new(big.Int).SetBytes(data)
	if tag == 3 {
		mag.Add(mag, big.NewInt(1))
		mag.Neg(mag)
	}
	d.num = numberValue{bigInt: mag, computed: bitBigInt, numberType: NumberBigInt}
	return Integer, nil
}

// decodeBigDecimalTag decodes the 2-element [scale, unscaled] array
// immediately following tag 4 into a BigDecimal, per SPEC_FULL.md §4.9.
func (d *Decoder) decodeBigDecimalTag(info byte) (Token, error) {
	length, indefinite, err := d.readLength(info)
	if err != nil {
		return NoToken, err
	}
	if indefinite || length != 2 {
		return NoToken, malformedf("tag 4 decimal fraction requires a definite 2-element array")
	}
	scale, err := d.decodeTagElementInt()
	if err != nil {
		return NoToken, err
	}
	unscaled, err := d.decodeTagElementBigInt()
	if err != nil {
		return NoToken, err
	}
	bd := BigDecimal{Scale: int32(scale), Unscaled: unscaled}
	d.num = numberValue{bigDecimal: bd, f64: bd.Float64(), computed: bitBigDecimal | bitF64, numberType: NumberBigDecimal}
	return Float, nil
}

func (d *Decoder) decodeTagElementInt() (int64, error) {
	b, err := d.in.nextByte()
	if err != nil {
		return 0, err
	}
	major := b >> 5
	info := b & 0x1F
	switch major {
	case 0:
		v, err := d.readUint(info)
		return int64(v), err
	case 1:
		v, err := d.readUint(info)
		return -1 - int64(v), err
	default:
		return 0, malformedf("expected an integer scale in a tag 4 decimal fraction, got major type %d", major)
	}
}

func (d *Decoder) decodeTagElementBigInt() (*big.Int, error) {
	b, err := d.in.nextByte()
	if err != nil {
		return nil, err
	}
	major := b >> 5
	info := b & 0x1F
	switch major {
	case 0:
		v, err := d.readUint(info)
		if err != nil {
			return nil, err
		}
		return new(big.Int).SetUint64(v), nil
	case 1:
		v, err := d.readUint(info)
		if err != nil {
			return nil, err
		}
		mag := new(big.Int).SetUint64(v)
		mag.Add(mag, big.NewInt(1))
		return mag.Neg(mag), nil
	case 6:
		tagVal, err := d.readUint(info)
		if err != nil {
			return nil, err
		}
		b2, err := d.in.nextByte()
		if err != nil {
			return nil, err
		}
		if b2>>5 != 2 {
			return nil, malformedf("expected a byte string for a nested bignum tag")
		}
		length, indefinite, err := d.readLength(b2 & 0x1F)
		if err != nil {
			return nil, err
		}
		var data []byte
		if indefinite {
			data, err = d.readChunkedBytes(2)
		} else {
			data, err = d.readExactly(length)
		}
		if err != nil {
			return nil, err
		}
		mag := new(big.Int).SetBytes(data)
		if tagVal == 3 {
			mag.Add(mag, big.NewInt(1))
			mag.Neg(mag)
		}
		return mag, nil
	default:
		return nil, malformedf("expected an integer or bignum unscaled value in a tag 4 decimal fraction, got major type %d", major)
	}
}
