package cbor

import (
	"errors"
	"fmt"
	"io"
)

// ErrorKind is the closed set of ways this package can fail, per the error
// handling design: every failure is synchronous to the caller and closes
// no state automatically.
type ErrorKind int

const (
	// MalformedInput covers an invalid initial byte, invalid
	// additional-info for a major type, a truncated multi-byte header, a
	// break byte outside an indefinite container, a mismatched chunk
	// major type, invalid UTF-8, an illegal surrogate, unexpected EOF
	// mid-token, or an object key of an unsupported major type.
	MalformedInput ErrorKind = iota
	// NumericOverflow covers a range check failing during explicit
	// narrowing (GetInt32, GetInt64, a tag length exceeding int32 max).
	NumericOverflow
	// WriteContextViolation covers a value written when a field name was
	// expected, an EndArray/EndObject mismatched with the open
	// container, or a duplicate field name with duplicate detection on.
	WriteContextViolation
	// IO covers errors bubbled from the underlying stream, including a
	// zero-byte read when bytes were requested.
	IO
)

func (k ErrorKind) String() string {
	switch k {
	case MalformedInput:
		return "MalformedInput"
	case NumericOverflow:
		return "NumericOverflow"
	case WriteContextViolation:
		return "WriteContextViolation"
	case IO:
		return "IO"
	default:
		return "ErrorKind(?)"
	}
}

// CodecError is the concrete error type every exported function in this
// package returns on failure. It records which of the closed set of kinds
// applies and, for IO errors, wraps the underlying cause so callers can
// still errors.Is/errors.As through to it.
type CodecError struct {
	Kind ErrorKind
	Msg  string
	Err  error // wrapped cause, usually non-nil only for Kind == IO
}

func (e *CodecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cbor: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("cbor: %s: %s", e.Kind, e.Msg)
}

func (e *CodecError) Unwrap() error { return e.Err }

func malformedf(format string, args ...interface{}) error {
	return &CodecError{Kind: MalformedInput, Msg: fmt.Sprintf(format, args...)}
}

func overflowf(format string, args ...interface{}) error {
	return &CodecError{Kind: NumericOverflow, Msg: fmt.Sprintf(format, args...)}
}

func writeViolationf(format string, args ...interface{}) error {
	return &CodecError{Kind: WriteContextViolation, Msg: fmt.Sprintf(format, args...)}
}

// wrapIOError translates a stream read/write failure into a CodecError,
// turning an unexpected io.EOF mid-token into a MalformedInput (a clean EOF
// at a root boundary is handled by the caller before this is ever reached,
// matching the teacher's newReadError translation).
func wrapIOError(context string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return malformedf("%s: unexpected end of input", context)
	}
	return &CodecError{Kind: IO, Msg: context, Err: err}
}
