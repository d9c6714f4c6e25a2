package cbor

// Config carries the feature flags from the event API (spec.md §6). A
// zero-value Config is the package's default: no field-name interning, no
// duplicate-name detection, no auto-close of the underlying stream or of
// content, and Encoder.Flush is not passed on to the underlying writer.
//
// This mirrors the teacher's own Decoder.ExtJSON/Decoder.MaxDepth
// setter-style configuration, generalized into a single struct because
// this codec has six independent flags spread across both Decoder and
// Encoder rather than one.
type Config struct {
	// InternFieldNames routes decoded object keys through a SymbolTable
	// instead of allocating a fresh string per occurrence.
	InternFieldNames bool

	// StrictDuplicateDetection rejects a second FieldName with the same
	// value inside one object scope, on both read and write.
	StrictDuplicateDetection bool

	// AutoCloseSource closes the underlying io.Reader when the Decoder
	// is closed.
	AutoCloseSource bool

	// AutoCloseTarget closes the underlying io.Writer when the Encoder
	// is closed.
	AutoCloseTarget bool

	// FlushPassedToStream forwards Encoder.Flush to the underlying
	// io.Writer's Flush method, when it implements one.
	FlushPassedToStream bool

	// AutoCloseContent synthesizes the matching EndArray/EndObject for
	// every still-open container when the Encoder is closed, before
	// flushing.
	AutoCloseContent bool
}
