package record

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
)

// Tuple is a fixed-size aggregate. Unlike a slice, each element gets its
// own ordinal path segment (_0, _1, ...).
type Tuple []any

// maxDepth bounds recursion so self-referencing pointers fail instead of
// overflowing the stack.
const maxDepth = 1000

var (
	tupleType         = reflect.TypeOf(Tuple(nil))
	rawMessageType    = reflect.TypeOf(json.RawMessage(nil))
	numberType        = reflect.TypeOf(json.Number(""))
	slogValueType     = reflect.TypeOf(slog.Value{})
	slogAttrType      = reflect.TypeOf(slog.Attr{})
	errorType         = reflect.TypeOf((*error)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// position describes where the visitor currently is relative to aggregates.
type position uint8

const (
	atRoot position = iota
	inKeyed
	inSequence
)

// Flatten converts an arbitrary Go value into an ordered list of
// (path, Value) pairs.
//
// Keyed aggregates (structs, maps, slog groups) append their keys to the
// path. Slices are sequences: their elements share the current path.
// Arrays and Tuples are fixed-size: each element gets an ordinal segment,
// except inside a sequence where they share the path too. A root scalar is
// emitted at "_0".
//
// The output is deterministic; map keys are visited in sorted order.
func Flatten(v any) ([]FlatField, error) {
	f := &flattener{}
	if err := f.visit("", reflect.ValueOf(v), atRoot, 0); err != nil {
		return nil, err
	}
	return f.fields, nil
}

type flattener struct {
	fields []FlatField
}

func (f *flattener) emit(path string, val Value) {
	if path == "" {
		path = ordinal(0)
	}
	f.fields = append(f.fields, FlatField{Path: path, Value: val})
}

func (f *flattener) visit(path string, v reflect.Value, pos position, depth int) error {
	if depth > maxDepth {
		return flattenErr(path, "nesting exceeds %d levels", maxDepth)
	}
	if !v.IsValid() {
		f.emit(path, None())
		return nil
	}

	switch v.Type() {
	case rawMessageType:
		return f.visitRaw(path, v.Bytes(), pos, depth)
	case numberType:
		val, err := numberValue(json.Number(v.String()))
		if err != nil {
			return flattenErr(path, "invalid json number %q", v.String())
		}
		f.emit(path, val)
		return nil
	case slogValueType:
		return f.visitSlog(path, v.Interface().(slog.Value), pos, depth)
	case slogAttrType:
		a := v.Interface().(slog.Attr)
		return f.visitSlog(path, slog.GroupValue(a), pos, depth)
	case tupleType:
		if v.IsNil() {
			f.emit(path, None())
			return nil
		}
		return f.visitFixed(path, v, pos, depth)
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			f.emit(path, None())
			return nil
		}
	}

	if s, ok, err := textOf(v); ok {
		if err != nil {
			return flattenErr(path, "marshal text: %v", err)
		}
		f.emit(path, Str(s))
		return nil
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		return f.visit(path, v.Elem(), pos, depth+1)
	case reflect.Bool:
		f.emit(path, Bool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f.emit(path, Signed(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		f.emit(path, Unsigned(v.Uint()))
	case reflect.Float32, reflect.Float64:
		f.emit(path, Float(v.Float()))
	case reflect.String:
		f.emit(path, Str(v.String()))
	case reflect.Slice:
		if v.IsNil() {
			f.emit(path, None())
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			f.emit(path, Bytes(v.Bytes()))
			return nil
		}
		return f.visitSequence(path, v, pos, depth)
	case reflect.Array:
		return f.visitFixed(path, v, pos, depth)
	case reflect.Map:
		if v.IsNil() {
			f.emit(path, None())
			return nil
		}
		return f.visitMap(path, v, depth)
	case reflect.Struct:
		return f.visitStruct(path, v, depth)
	default:
		return flattenErr(path, "unsupported kind %s", v.Kind())
	}
	return nil
}

func (f *flattener) visitSequence(path string, v reflect.Value, pos position, depth int) error {
	for i := 0; i < v.Len(); i++ {
		var err error
		if pos == atRoot {
			err = f.visit(ordinal(i), v.Index(i), inKeyed, depth+1)
		} else {
			err = f.visit(path, v.Index(i), inSequence, depth+1)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *flattener) visitFixed(path string, v reflect.Value, pos position, depth int) error {
	for i := 0; i < v.Len(); i++ {
		var err error
		if pos == inSequence {
			err = f.visit(path, v.Index(i), inSequence, depth+1)
		} else {
			err = f.visit(join(path, ordinal(i)), v.Index(i), inKeyed, depth+1)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *flattener) visitMap(path string, v reflect.Value, depth int) error {
	type entry struct {
		key string
		val reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k, err := keyString(iter.Key())
		if err != nil {
			return flattenErr(path, "map key: %v", err)
		}
		entries = append(entries, entry{key: k, val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	for _, e := range entries {
		if err := f.visit(join(path, e.key), e.val, inKeyed, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (f *flattener) visitStruct(path string, v reflect.Value, depth int) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fv := v.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if fv.Kind() == reflect.Pointer {
					if fv.IsNil() {
						continue
					}
					fv = fv.Elem()
				}
				if err := f.visitStruct(path, fv, depth+1); err != nil {
					return err
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if hasOption(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}
		if hasOption(opts, "omitzero") && fv.IsZero() {
			continue
		}
		if err := f.visit(join(path, name), fv, inKeyed, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// visitSlog flattens a slog value. Groups are keyed aggregates whose
// attributes keep their logged order.
func (f *flattener) visitSlog(path string, sv slog.Value, pos position, depth int) error {
	sv = sv.Resolve()
	switch sv.Kind() {
	case slog.KindGroup:
		for _, a := range sv.Group() {
			if a.Equal(slog.Attr{}) {
				continue
			}
			if a.Key == "" {
				if a.Value.Kind() != slog.KindGroup {
					continue
				}
				if err := f.visitSlog(path, a.Value, pos, depth+1); err != nil {
					return err
				}
				continue
			}
			if err := f.visitSlog(join(path, a.Key), a.Value, inKeyed, depth+1); err != nil {
				return err
			}
		}
		return nil
	case slog.KindAny:
		return f.visit(path, reflect.ValueOf(sv.Any()), pos, depth+1)
	case slog.KindBool:
		f.emit(path, Bool(sv.Bool()))
	case slog.KindDuration:
		f.emit(path, Signed(int64(sv.Duration())))
	case slog.KindFloat64:
		f.emit(path, Float(sv.Float64()))
	case slog.KindInt64:
		f.emit(path, Signed(sv.Int64()))
	case slog.KindUint64:
		f.emit(path, Unsigned(sv.Uint64()))
	case slog.KindString:
		f.emit(path, Str(sv.String()))
	case slog.KindTime:
		f.emit(path, Str(sv.Time().Format(time.RFC3339Nano)))
	default:
		return flattenErr(path, "unsupported slog kind %s", sv.Kind())
	}
	return nil
}

// visitRaw decodes embedded JSON and flattens it in place.
func (f *flattener) visitRaw(path string, raw []byte, pos position, depth int) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		f.emit(path, None())
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return flattenErr(path, "decode raw json: %v", err)
	}
	return f.visit(path, reflect.ValueOf(decoded), pos, depth+1)
}

// textOf returns the text form of values that describe themselves:
// errors and encoding.TextMarshaler implementations.
func textOf(v reflect.Value) (string, bool, error) {
	t := v.Type()
	if t.Implements(errorType) {
		return v.Interface().(error).Error(), true, nil
	}
	if t.Kind() != reflect.Pointer && v.CanAddr() && reflect.PointerTo(t).Implements(errorType) {
		return v.Addr().Interface().(error).Error(), true, nil
	}
	if t.Implements(textMarshalerType) {
		b, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		return string(b), true, err
	}
	if t.Kind() != reflect.Pointer && v.CanAddr() && reflect.PointerTo(t).Implements(textMarshalerType) {
		b, err := v.Addr().Interface().(encoding.TextMarshaler).MarshalText()
		return string(b), true, err
	}
	return "", false, nil
}

// numberValue picks the narrowest exact kind for a json.Number.
func numberValue(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Signed(i), nil
	}
	if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
		return Unsigned(u), nil
	}
	fl, err := n.Float64()
	if err != nil {
		return Value{}, err
	}
	return Float(fl), nil
}

func keyString(k reflect.Value) (string, error) {
	if k.Kind() == reflect.Interface {
		if k.IsNil() {
			return "", fmt.Errorf("nil key")
		}
		k = k.Elem()
	}
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if s, ok, err := textOf(k); ok {
		return s, err
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(k.Float(), 'g', -1, 64), nil
	case reflect.Bool:
		return strconv.FormatBool(k.Bool()), nil
	}
	return "", fmt.Errorf("key kind %s cannot be a path segment", k.Kind())
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

func hasOption(opts, name string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == name {
			return true
		}
	}
	return false
}

func join(path, seg string) string {
	if path == "" {
		return seg
	}
	return path + "." + seg
}

func ordinal(i int) string {
	return "_" + strconv.Itoa(i)
}

func flattenErr(path, format string, args ...any) error {
	return rxerrors.FlattenError(path, fmt.Sprintf(format, args...))
}
