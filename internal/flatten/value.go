package flatten

import (
	"encoding/json"
	"strconv"
)

// Kind classifies the scalar extracted at a field path.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is one nullable cell of an Output Record. The zero value is
// null; scalars carry their coerced textual form.
type Value struct {
	kind Kind
	text string
}

// Null returns the null Value.
func Null() Value { return Value{} }

// StringValue wraps s as a string scalar.
func StringValue(s string) Value { return Value{kind: KindString, text: s} }

// NumberValue wraps a JSON number, keeping its exact literal text.
func NumberValue(n json.Number) Value { return Value{kind: KindNumber, text: n.String()} }

// BoolValue wraps b as a bool scalar.
func BoolValue(b bool) Value {
	if b {
		return Value{kind: KindBool, text: "true"}
	}
	return Value{kind: KindBool, text: "false"}
}

// Kind returns the scalar's kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Text returns the coerced textual form; empty for null.
func (v Value) Text() string { return v.text }

// MarshalJSON encodes null cells as JSON null and scalars as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindNull {
		return []byte("null"), nil
	}
	return json.Marshal(v.text)
}

// Scalar coerces a decoded JSON leaf into a Value. Objects, arrays and
// explicit nulls all coerce to the null cell.
func Scalar(leaf any) Value {
	switch x := leaf.(type) {
	case string:
		return StringValue(x)
	case json.Number:
		return NumberValue(x)
	case bool:
		return BoolValue(x)
	case float64:
		// decoders without UseNumber hand numbers over as float64
		return NumberValue(json.Number(strconv.FormatFloat(x, 'g', -1, 64)))
	default:
		return Null()
	}
}
