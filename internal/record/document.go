package record

import (
	"encoding/base64"
	"fmt"
	"strconv"

	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
)

// Document is the engine-native form of a record: a flat map keyed by dotted
// path. Multi-valued paths hold []any in encounter order. Integer paths also
// carry their exact decimal text under ExactField(path).
type Document map[string]any

// Materialize converts flattened fields into a Document under schema.
//
// Every non-None path must exist in the schema with the matching kind;
// anything else is a schema conflict.
func Materialize(fields []FlatField, schema *Schema) (Document, error) {
	doc := make(Document, len(fields))
	for _, f := range fields {
		if f.Value.IsNone() {
			continue
		}
		want, ok := schema.Kind(f.Path)
		if !ok {
			return nil, rxerrors.SchemaConflictError(f.Path,
				fmt.Sprintf("missing field %q in schema", f.Path))
		}
		got, _ := fieldKindOf(f.Value.Kind())
		if got != want {
			return nil, rxerrors.SchemaConflictError(f.Path,
				fmt.Sprintf("path %q is %s in schema, got %s", f.Path, want, got))
		}

		doc.add(f.Path, encode(f.Value))
		if exact, ok := exactText(f.Value); ok {
			doc.add(ExactField(f.Path), exact)
		}
	}
	return doc, nil
}

func (d Document) add(name string, enc any) {
	switch prev := d[name].(type) {
	case nil:
		d[name] = enc
	case []any:
		d[name] = append(prev, enc)
	default:
		d[name] = []any{prev, enc}
	}
}

// exactText renders integers as decimal text; float64 holds only 53 bits.
func exactText(v Value) (string, bool) {
	switch v.Kind() {
	case KindSigned:
		i, _ := v.AsSigned()
		return strconv.FormatInt(i, 10), true
	case KindUnsigned:
		u, _ := v.AsUnsigned()
		return strconv.FormatUint(u, 10), true
	}
	return "", false
}

func encode(v Value) any {
	switch v.Kind() {
	case KindSigned:
		i, _ := v.AsSigned()
		return float64(i)
	case KindUnsigned:
		u, _ := v.AsUnsigned()
		return float64(u)
	case KindFloat:
		f, _ := v.AsFloat()
		return f
	case KindBytes:
		b, _ := v.AsBytes()
		return base64.StdEncoding.EncodeToString(b)
	case KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b)
	case KindStr:
		s, _ := v.AsStr()
		return s
	default:
		return nil
	}
}

// Decode turns a stored engine value back into a Go value for path.
//
// Floats come back as float64. Signed and unsigned integers are read from
// their exact decimal text, never from the engine's float64 copy.
func (s *Schema) Decode(path string, stored any) (any, error) {
	kind, ok := s.Kind(path)
	if !ok {
		return nil, fmt.Errorf("unknown field %q", path)
	}
	if kind == FieldFloat {
		f, ok := stored.(float64)
		if !ok {
			return nil, fmt.Errorf("field %q: expected number, got %T", path, stored)
		}
		return f, nil
	}

	str, ok := stored.(string)
	if !ok {
		return nil, fmt.Errorf("field %q: expected text, got %T", path, stored)
	}
	switch kind {
	case FieldSigned:
		i, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", path, err)
		}
		return i, nil
	case FieldUnsigned:
		u, err := strconv.ParseUint(str, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", path, err)
		}
		return u, nil
	case FieldBytes:
		b, err := base64.StdEncoding.DecodeString(str)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", path, err)
		}
		return b, nil
	case FieldKeyword:
		b, err := strconv.ParseBool(str)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", path, err)
		}
		return b, nil
	}
	return str, nil
}
