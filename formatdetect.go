package cbor

// FormatMatch is the confidence level HasFormat reports for a byte prefix.
type FormatMatch int

const (
	// NoMatch means the prefix cannot be the start of a CBOR document.
	NoMatch FormatMatch = iota
	// WeakMatch means the prefix is structurally valid CBOR but the same
	// bytes could also plausibly begin some other format.
	WeakMatch
	// SolidMatch means the prefix is valid CBOR and unlikely to be
	// mistaken for another format.
	SolidMatch
	// FullMatch means the prefix carries CBOR's self-describe tag
	// (55799), an unambiguous declaration of intent.
	FullMatch
)

// selfDescribeTagPrefix is the three-byte encoding of tag 55799 (major type
// 6, two-byte additional info), which an encoder may prepend to a document
// purely so format-sniffing code like HasFormat can recognize it with
// certainty.
var selfDescribeTagPrefix = [3]byte{0xD9, 0xD9, 0xF7}

// HasFormat inspects the first few bytes of a stream and reports how
// confident the caller can be that it is CBOR, without consuming anything:
// peekBytes is a read-only look-ahead, not a buffer HasFormat is allowed to
// mutate or retain.
func HasFormat(peekBytes []byte) FormatMatch {
	if len(peekBytes) >= 3 && peekBytes[0] == selfDescribeTagPrefix[0] &&
		peekBytes[1] == selfDescribeTagPrefix[1] && peekBytes[2] == selfDescribeTagPrefix[2] {
		return FullMatch
	}
	if len(peekBytes) == 0 {
		return NoMatch
	}
	b := peekBytes[0]
	major := b >> 5
	info := b & 0x1F

	if info == 28 || info == 29 || info == 30 {
		return NoMatch
	}
	if major == 7 && info >= 28 && info <= 30 {
		return NoMatch
	}
	if major == 7 {
		switch info {
		case 20, 21, 22, 23, 24, 25, 26, 27, 31:
			return WeakMatch
		default:
			return NoMatch
		}
	}
	return WeakMatch
}
