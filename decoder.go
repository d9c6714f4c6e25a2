package cbor

import (
	"io"
	"strconv"
)

const breakByte = 0xFF

// Decoder is a pull-style reader that turns a CBOR byte stream into a
// sequence of Tokens (component F). Call NextToken repeatedly; use the
// accessors (GetText, GetInt64, ...) to read the value of the token just
// returned. A Decoder is not safe for concurrent use.
type Decoder struct {
	in     *bufferedInput
	cfg    Config
	symtab *SymbolTable

	ctx   *readContext
	token Token

	pending             pendingPayload
	pendingContainerLen int

	num       numberValue
	boolValue bool

	activeTag    int64
	activeHasTag bool

	closed bool
	src    io.Reader
}

// NewDecoder returns a Decoder reading from r. symtab may be nil, in which
// case field names are never interned even if cfg.InternFieldNames is set.
func NewDecoder(r io.Reader, symtab *SymbolTable, cfg Config) *Decoder {
	return &Decoder{
		in:     newBufferedInput(r, defaultInputCapacity),
		cfg:    cfg,
		symtab: symtab,
		ctx:    newReadRootContext(),
		src:    r,
	}
}

// CurrentToken returns the Token most recently produced by NextToken.
func (d *Decoder) CurrentToken() Token { return d.token }

// CurrentName returns the field name associated with the current token:
// the name itself while positioned on a FieldName token, the enclosing
// object's last field name while positioned on a value (including
// Start/EndArray and Start/EndObject), or "" at the root.
func (d *Decoder) CurrentName() string {
	if d.token == StartArray || d.token == StartObject {
		if d.ctx.parent != nil {
			return d.ctx.parent.currentName
		}
		return ""
	}
	return d.ctx.currentName
}

// CurrentTag returns the CBOR tag that immediately preceded the current
// token on the wire, if any. Tags other than 2, 3 and 4 are transparent:
// they are recorded here and otherwise have no effect on the token
// produced.
func (d *Decoder) CurrentTag() (int64, bool) { return d.activeTag, d.activeHasTag }

// GetBoolean returns the value of a Boolean token.
func (d *Decoder) GetBoolean() (bool, error) {
	if d.token != Boolean {
		return false, malformedf("current token is not a boolean")
	}
	return d.boolValue, nil
}

// GetNumberType reports the natural representation width the decoder used
// for the current Integer or Float token.
func (d *Decoder) GetNumberType() NumberType {
	return d.num.numberType
}

// Close releases the Decoder's resources. If cfg.AutoCloseSource is set
// and the underlying reader implements io.Closer, it is closed too.
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.cfg.AutoCloseSource {
		if c, ok := d.src.(io.Closer); ok {
			if err := c.Close(); err != nil {
				return wrapIOError("closing source", err)
			}
		}
	}
	return nil
}

// NextToken advances to, and returns, the next Token in the stream. It
// returns io.EOF once the stream is exhausted at a root boundary, which is
// not an error condition (spec.md §7: "the decoder auto-closes only on
// hard EOF at a root boundary, which is not an error").
func (d *Decoder) NextToken() (Token, error) {
	if d.closed {
		return NoToken, malformedf("decoder is closed")
	}

	if err := d.skipPendingPayload(); err != nil {
		return NoToken, err
	}
	d.activeTag, d.activeHasTag = 0, false

	ctx := d.ctx

	if ctx.kind != contextRoot {
		if ctx.hasExpectedLength() {
			if !ctx.expectMoreValues() {
				return d.closeContainer()
			}
		} else {
			isBreak, err := d.peekIsBreak()
			if err != nil {
				return NoToken, err
			}
			if isBreak {
				d.in.skip(1)
				return d.closeContainer()
			}
		}
	}

	if ctx.kind == contextObject && ctx.expectingFieldName() {
		tok, err := d.decodeFieldName()
		if err != nil {
			return NoToken, err
		}
		d.token = tok
		return tok, nil
	}

	tok, err := d.decodeValue()
	if err != nil {
		return NoToken, err
	}

	switch tok {
	case StartArray:
		ctx.recordValue()
		d.ctx = ctx.createChildArray(d.pendingContainerLen)
	case StartObject:
		ctx.recordValue()
		d.ctx = ctx.createChildObject(d.pendingContainerLen, d.cfg.StrictDuplicateDetection)
	default:
		ctx.recordValue()
	}
	d.token = tok
	return tok, nil
}

func (d *Decoder) closeContainer() (Token, error) {
	kind := d.ctx.kind
	d.ctx = d.ctx.parent
	var tok Token
	if kind == contextArray {
		tok = EndArray
	} else {
		tok = EndObject
	}
	d.token = tok
	return tok, nil
}

func (d *Decoder) peekIsBreak() (bool, error) {
	buf, err := d.in.peek(1)
	if err != nil {
		return false, err
	}
	if len(buf) == 0 {
		return false, malformedf("unexpected end of input: unterminated container")
	}
	return buf[0] == breakByte, nil
}

// decodeFieldName reads an object key. Text-string keys are the normal
// case; positive/negative integer keys are accepted and stringified as a
// compatibility concession (spec.md §4.6.2), using the actual decoded
// value rather than a fixed placeholder (Open Question #3).
func (d *Decoder) decodeFieldName() (Token, error) {
	b, err := d.in.nextByte()
	if err != nil {
		return NoToken, err
	}
	major := b >> 5
	info := b & 0x1F

	var name string
	switch major {
	case 3:
		name, err = d.readKeyText(info)
	case 2:
		name, err = d.readKeyBinary(info)
	case 0:
		var v uint64
		v, err = d.readUint(info)
		if err == nil {
			name = strconv.FormatUint(v, 10)
		}
	case 1:
		var v uint64
		v, err = d.readUint(info)
		if err == nil {
			name = strconv.FormatInt(-1-int64(v), 10)
		}
	default:
		return NoToken, malformedf("object key must be a text string, got major type %d", major)
	}
	if err != nil {
		return NoToken, err
	}
	if err := d.ctx.recordFieldName(name); err != nil {
		return NoToken, err
	}
	return FieldName, nil
}

// decodeValue reads one value, transparently consuming any number of
// leading tags. The last tag read (if any) is exposed via CurrentTag and,
// for tags 2/3/4, redirects the value to tag-directed decoding per
// SPEC_FULL.md §4.9.
func (d *Decoder) decodeValue() (Token, error) {
	first := true
	for {
		var b byte
		var err error
		if first && d.ctx.kind == contextRoot {
			b, err = d.in.nextByteEOF()
			if err == io.EOF {
				return NoToken, io.EOF
			}
		} else {
			b, err = d.in.nextByte()
		}
		if err != nil {
			return NoToken, err
		}
		first = false

		major := b >> 5
		info := b & 0x1F

		if major == 6 {
			tagVal, err := d.readUint(info)
			if err != nil {
				return NoToken, err
			}
			d.activeTag, d.activeHasTag = int64(tagVal), true
			continue
		}

		tag := d.activeTag
		hasTag := d.activeHasTag

		switch major {
		case 0:
			return d.decodePositiveInt(info)
		case 1:
			return d.decodeNegativeInt(info)
		case 2:
			if hasTag && (tag == 2 || tag == 3) {
				return d.decodeBigIntTag(info, tag)
			}
			return d.startLazyPayload(info, false)
		case 3:
			return d.startLazyPayload(info, true)
		case 4:
			if hasTag && tag == 4 {
				return d.decodeBigDecimalTag(info)
			}
			return d.startArrayOrObject(info, false)
		case 5:
			return d.startArrayOrObject(info, true)
		case 7:
			return d.decodeSimpleOrFloat(info)
		default:
			return NoToken, malformedf("invalid major type %d", major)
		}
	}
}

func (d *Decoder) startArrayOrObject(info byte, isObject bool) (Token, error) {
	length, indefinite, err := d.readLength(info)
	if err != nil {
		return NoToken, err
	}
	if indefinite {
		d.pendingContainerLen = -1
	} else {
		d.pendingContainerLen = length
	}
	if isObject {
		return StartObject, nil
	}
	return StartArray, nil
}
