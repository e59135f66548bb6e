package record

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"
)

// Kind identifies the concrete type stored in a Value.
// The set is closed; every switch over Kind must handle all of them.
type Kind uint8

const (
	// KindNone represents an absent value (nil pointer, nil interface).
	KindNone Kind = iota
	// KindSigned represents a signed integer widened to int64.
	KindSigned
	// KindUnsigned represents an unsigned integer widened to uint64.
	KindUnsigned
	// KindFloat represents a float widened to float64.
	KindFloat
	// KindBytes represents an opaque byte string.
	KindBytes
	// KindStr represents a UTF-8 string.
	KindStr
	// KindBool represents a boolean.
	KindBool
)

// Tag returns the stable type tag hashed into fingerprints.
// NOTE: changing a tag changes every fingerprint; keep these stable.
func (k Kind) Tag() string {
	switch k {
	case KindNone:
		return "none"
	case KindSigned:
		return "signed"
	case KindUnsigned:
		return "unsigned"
	case KindFloat:
		return "float"
	case KindBytes:
		return "bytes"
	case KindStr:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	return k.Tag()
}

// Value is one scalar leaf of a flattened record.
//
// Construct values with the helpers below; the zero Value is None.
type Value struct {
	kind Kind
	i64  int64
	u64  uint64
	f64  float64
	str  string
	raw  []byte
	b    bool
}

// None returns an absent Value.
func None() Value { return Value{kind: KindNone} }

// Signed returns an int64 Value.
func Signed(v int64) Value { return Value{kind: KindSigned, i64: v} }

// Unsigned returns a uint64 Value.
func Unsigned(v uint64) Value { return Value{kind: KindUnsigned, u64: v} }

// Float returns a float64 Value.
func Float(v float64) Value { return Value{kind: KindFloat, f64: v} }

// Bytes returns a byte-string Value. The input is copied.
func Bytes(v []byte) Value {
	return Value{kind: KindBytes, raw: bytes.Clone(v)}
}

// Str returns a string Value.
func Str(v string) Value { return Value{kind: KindStr, str: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Kind returns the variant of v.
func (v Value) Kind() Kind { return v.kind }

// AsSigned returns the int64 payload if Kind is KindSigned.
func (v Value) AsSigned() (int64, bool) {
	return v.i64, v.kind == KindSigned
}

// AsUnsigned returns the uint64 payload if Kind is KindUnsigned.
func (v Value) AsUnsigned() (uint64, bool) {
	return v.u64, v.kind == KindUnsigned
}

// AsFloat returns the float64 payload if Kind is KindFloat.
func (v Value) AsFloat() (float64, bool) {
	return v.f64, v.kind == KindFloat
}

// AsBytes returns a copy of the byte payload if Kind is KindBytes.
func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return bytes.Clone(v.raw), true
}

// AsStr returns the string payload if Kind is KindStr.
func (v Value) AsStr() (string, bool) {
	return v.str, v.kind == KindStr
}

// AsBool returns the boolean payload if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// IsNone reports whether v is absent.
func (v Value) IsNone() bool { return v.kind == KindNone }

// Equal reports whether v and o have the same kind and payload.
// Floats compare by value, so NaN is never equal to itself.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindSigned:
		return v.i64 == o.i64
	case KindUnsigned:
		return v.u64 == o.u64
	case KindFloat:
		return v.f64 == o.f64
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindStr:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	default:
		return false
	}
}

// Any returns the payload as a plain Go value (nil for None).
func (v Value) Any() any {
	switch v.kind {
	case KindSigned:
		return v.i64
	case KindUnsigned:
		return v.u64
	case KindFloat:
		return v.f64
	case KindBytes:
		return bytes.Clone(v.raw)
	case KindStr:
		return v.str
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// String renders v for debugging, e.g. Signed(1) or Str("x").
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "None"
	case KindSigned:
		return "Signed(" + strconv.FormatInt(v.i64, 10) + ")"
	case KindUnsigned:
		return "Unsigned(" + strconv.FormatUint(v.u64, 10) + ")"
	case KindFloat:
		return "Float(" + strconv.FormatFloat(v.f64, 'g', -1, 64) + ")"
	case KindBytes:
		return "Bytes(" + base64.StdEncoding.EncodeToString(v.raw) + ")"
	case KindStr:
		return "Str(" + strconv.Quote(v.str) + ")"
	case KindBool:
		return "Bool(" + strconv.FormatBool(v.b) + ")"
	default:
		return fmt.Sprintf("Invalid(%d)", v.kind)
	}
}

// FlatField is a (path, value) pair produced by Flatten.
type FlatField struct {
	Path  string
	Value Value
}

// String renders the field as path=Value.
func (f FlatField) String() string {
	return f.Path + "=" + f.Value.String()
}
