package cbor

import (
	"math/big"
	"strconv"
)

// BigDecimal is an arbitrary-precision decimal, represented the way CBOR
// tag 4 frames it on the wire: an unscaled integer magnitude and a base-10
// scale, such that the value equals Unscaled * 10^-Scale.
//
// Go has no standard BigDecimal; this mirrors the teacher's
// convertNumberDecimal (extjson.go), which also carries a scale and an
// unscaled magnitude through text rather than through a binary floating
// type, adapted from JSON decimal text to CBOR's [scale, unscaled] tag-4
// array.
type BigDecimal struct {
	Scale    int32
	Unscaled *big.Int
}

// Float64 returns the double-valued conversion of d, per spec.md §4.6.3.
func (d BigDecimal) Float64() float64 {
	f, _ := d.bigFloat().Float64()
	return f
}

func (d BigDecimal) bigFloat() *big.Float {
	mag := new(big.Float).SetInt(d.Unscaled)
	if d.Scale == 0 {
		return mag
	}
	scale := new(big.Float).SetFloat64(1)
	ten := big.NewFloat(10)
	if d.Scale > 0 {
		for i := int32(0); i < d.Scale; i++ {
			scale.Quo(scale, ten)
		}
	} else {
		for i := int32(0); i > d.Scale; i-- {
			scale.Mul(scale, ten)
		}
	}
	return mag.Mul(mag, scale)
}

// String renders d as a plain decimal string, e.g. "123.45" or "-0.001".
func (d BigDecimal) String() string {
	unscaled := d.Unscaled.String()
	neg := false
	if len(unscaled) > 0 && unscaled[0] == '-' {
		neg = true
		unscaled = unscaled[1:]
	}
	if d.Scale <= 0 {
		s := unscaled + zeros(-d.Scale)
		if neg {
			return "-" + s
		}
		return s
	}
	for int32(len(unscaled)) <= d.Scale {
		unscaled = "0" + unscaled
	}
	split := int32(len(unscaled)) - d.Scale
	s := unscaled[:split] + "." + unscaled[split:]
	if neg {
		return "-" + s
	}
	return s
}

func zeros(n int32) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}

// float64ToBigDecimal converts v to a BigDecimal via its canonical textual
// representation rather than its raw binary bits, per spec.md §4.6.3's
// instruction to avoid binary-rounding artifacts (e.g. 0.1 should become
// unscaled=1, scale=1, not the nearest binary64 approximation of 0.1).
func float64ToBigDecimal(v float64) (BigDecimal, error) {
	text := strconv.FormatFloat(v, 'f', -1, 64)
	neg := false
	if len(text) > 0 && text[0] == '-' {
		neg = true
		text = text[1:]
	}
	dot := -1
	for i, c := range text {
		if c == '.' {
			dot = i
			break
		}
	}
	var scale int32
	digits := text
	if dot >= 0 {
		scale = int32(len(text) - dot - 1)
		digits = text[:dot] + text[dot+1:]
	}
	unscaled, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return BigDecimal{}, malformedf("cannot convert %v to a big decimal", v)
	}
	if neg {
		unscaled.Neg(unscaled)
	}
	return BigDecimal{Scale: scale, Unscaled: unscaled}, nil
}
