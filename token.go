package cbor

// Token identifies the shape of the value NextToken last produced, or the
// kind of structural event that just occurred. It is the same closed
// vocabulary a streaming JSON reader would use, plus EmbeddedObject for raw
// binary payloads that have no JSON analogue.
type Token int

const (
	// NoToken is the zero value, returned before the first call to
	// NextToken and after the stream is exhausted.
	NoToken Token = iota
	StartArray
	EndArray
	StartObject
	EndObject
	FieldName
	String
	Binary
	Integer
	Float
	Boolean
	Null
	EmbeddedObject
)

func (t Token) String() string {
	switch t {
	case NoToken:
		return "NoToken"
	case StartArray:
		return "StartArray"
	case EndArray:
		return "EndArray"
	case StartObject:
		return "StartObject"
	case EndObject:
		return "EndObject"
	case FieldName:
		return "FieldName"
	case String:
		return "String"
	case Binary:
		return "Binary"
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case Boolean:
		return "Boolean"
	case Null:
		return "Null"
	case EmbeddedObject:
		return "EmbeddedObject"
	default:
		return "Token(?)"
	}
}

// NumberType describes the natural width a numeric Token was decoded at,
// before any narrowing or widening an accessor performs.
type NumberType int

const (
	NoNumber NumberType = iota
	NumberInt32
	NumberInt64
	NumberBigInt
	NumberFloat32
	NumberFloat64
	NumberBigDecimal
)

func (n NumberType) String() string {
	switch n {
	case NoNumber:
		return "NoNumber"
	case NumberInt32:
		return "Int32"
	case NumberInt64:
		return "Int64"
	case NumberBigInt:
		return "BigInt"
	case NumberFloat32:
		return "Float32"
	case NumberFloat64:
		return "Float64"
	case NumberBigDecimal:
		return "BigDecimal"
	default:
		return "NumberType(?)"
	}
}
