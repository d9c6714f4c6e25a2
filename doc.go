// Package cbor is a streaming codec for CBOR (RFC 7049). It provides a
// pull-style Decoder that converts a byte stream into a sequence of
// structural and scalar Tokens, and a push-style Encoder that converts such
// a sequence back into bytes. The event vocabulary mirrors the one used for
// JSON (start/end of array or object, field name, scalar value) so that
// higher-level data-binding or tree-building code written against that
// vocabulary works unchanged against CBOR.
//
// Decoding
//
// A Decoder is built around a buffered input that owns its own byte slice;
// NextToken advances through the stream one token at a time. String and
// binary payloads are materialized lazily: the token is returned as soon as
// its header is parsed, and the bytes are only decoded when an accessor
// (GetText, GetBinary, ReadBinary, ...) is called, or skipped automatically
// before the next NextToken call.
//
// Field names repeat heavily across real documents, so a Decoder can route
// short and medium names through a shared SymbolTable that interns them as
// canonical strings, keyed by packing the name's UTF-8 bytes into 32-bit
// quads. The table is safe to share across many Decoders.
//
// Encoding
//
// An Encoder writes indefinite-length array and map framing by default,
// closing each container with a break byte. Wrapping an Encoder in a Sizer
// defers every event inside a container until that container closes, at
// which point the element count is known and a definite-length header can
// be written instead, followed by a replay of the buffered events.
//
// Scope
//
// This package is not a canonical-CBOR producer: it does not sort map keys
// or require the smallest possible integer encoding on input. CBOR tags are
// transparent on decode, with one exception: tags 2, 3 and 4 (positive
// bignum, negative bignum, decimal fraction) decode into typed
// Integer/Float tokens carrying a *big.Int or BigDecimal, because Encoder
// emits exactly those tags for big integer and big decimal values and
// round-trip fidelity requires the decoder to understand its own output.
// All other tags are recorded (CurrentTag) and then skipped transparently.
// Only byte-oriented sources and sinks are supported; this package does not
// accept a text Reader or Writer.
package cbor
