package record

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
)

// FieldKind is how a path is indexed.
type FieldKind string

const (
	// FieldSigned is an int64 numeric field: stored, range-queryable, sortable.
	FieldSigned FieldKind = "numeric_signed"
	// FieldUnsigned is a uint64 numeric field.
	FieldUnsigned FieldKind = "numeric_unsigned"
	// FieldFloat is a float64 numeric field.
	FieldFloat FieldKind = "numeric_float"
	// FieldBytes is stored base64 and never indexed.
	FieldBytes FieldKind = "bytes"
	// FieldKeyword is an exact-match term ("true"/"false" for booleans).
	FieldKeyword FieldKind = "keyword"
	// FieldText is analyzed with the standard analyzer and searchable via _all.
	FieldText FieldKind = "text"
)

// fieldKindOf maps a Value kind to its index policy.
// KindNone has no field and reports false.
func fieldKindOf(k Kind) (FieldKind, bool) {
	switch k {
	case KindSigned:
		return FieldSigned, true
	case KindUnsigned:
		return FieldUnsigned, true
	case KindFloat:
		return FieldFloat, true
	case KindBytes:
		return FieldBytes, true
	case KindBool:
		return FieldKeyword, true
	case KindStr:
		return FieldText, true
	default:
		return "", false
	}
}

// IsNumeric reports whether k is stored as a bleve numeric field.
func (k FieldKind) IsNumeric() bool {
	return k == FieldSigned || k == FieldUnsigned || k == FieldFloat
}

// SchemaField is one path of a Schema.
type SchemaField struct {
	Path string    `json:"path"`
	Kind FieldKind `json:"kind"`
}

// Schema is the field layout of every record sharing one fingerprint.
// It is built once, on first sight of the shape, and never mutated.
type Schema struct {
	fields []SchemaField
	byPath map[string]FieldKind
}

// BuildSchema derives a schema from a flattened record.
//
// The first occurrence of a path decides its kind. A later occurrence with a
// different kind is a schema conflict. None values contribute no field.
func BuildSchema(fields []FlatField) (*Schema, error) {
	s := &Schema{byPath: make(map[string]FieldKind, len(fields))}
	for _, f := range fields {
		kind, ok := fieldKindOf(f.Value.Kind())
		if !ok {
			continue
		}
		if prev, seen := s.byPath[f.Path]; seen {
			if prev != kind {
				return nil, rxerrors.SchemaConflictError(f.Path,
					fmt.Sprintf("path %q seen as %s and %s", f.Path, prev, kind))
			}
			continue
		}
		s.byPath[f.Path] = kind
		s.fields = append(s.fields, SchemaField{Path: f.Path, Kind: kind})
	}
	if err := s.checkExactFields(); err != nil {
		return nil, err
	}
	return s, nil
}

// exactPrefix names the stored-only sibling holding an integer's decimal text.
const exactPrefix = "_exact:"

// ExactField returns the engine field holding the exact value of an integer
// path.
func ExactField(path string) string {
	return exactPrefix + path
}

// ExactPath reports the integer path whose exact value is stored under name.
func (s *Schema) ExactPath(name string) (string, bool) {
	path, ok := strings.CutPrefix(name, exactPrefix)
	if !ok {
		return "", false
	}
	if k, found := s.byPath[path]; !found || !k.isInteger() {
		return "", false
	}
	return path, true
}

// checkExactFields rejects a record whose own path collides with the exact
// sibling of one of its integer paths.
func (s *Schema) checkExactFields() error {
	for _, f := range s.fields {
		if !f.Kind.isInteger() {
			continue
		}
		if _, taken := s.byPath[ExactField(f.Path)]; taken {
			return rxerrors.SchemaConflictError(ExactField(f.Path),
				fmt.Sprintf("path %q collides with the exact value of %q", ExactField(f.Path), f.Path))
		}
	}
	return nil
}

func (k FieldKind) isInteger() bool {
	return k == FieldSigned || k == FieldUnsigned
}

// Fields returns the schema fields in first-seen order.
func (s *Schema) Fields() []SchemaField {
	out := make([]SchemaField, len(s.fields))
	copy(out, s.fields)
	return out
}

// Kind returns the field kind of path.
func (s *Schema) Kind(path string) (FieldKind, bool) {
	k, ok := s.byPath[path]
	return k, ok
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// IndexMapping renders the bleve mapping for this schema.
//
// The default document mapping is static with one root property per path,
// keyed by the whole path. bleve matches document keys segment by segment
// without splitting them, so a key holding "." or an empty segment still
// lands on exactly one field named by its path.
func (s *Schema) IndexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	im.StoreDynamic = false
	im.IndexDynamic = false
	im.DocValuesDynamic = false

	root := bleve.NewDocumentStaticMapping()
	for _, f := range s.fields {
		dm := bleve.NewDocumentStaticMapping()
		dm.AddFieldMapping(fieldMapping(f.Kind))
		root.AddSubDocumentMapping(f.Path, dm)

		if f.Kind.isInteger() {
			exact := bleve.NewDocumentStaticMapping()
			exact.AddFieldMapping(exactFieldMapping())
			root.AddSubDocumentMapping(ExactField(f.Path), exact)
		}
	}
	im.DefaultMapping = root
	return im
}

func exactFieldMapping() *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Index = false
	fm.Store = true
	fm.IncludeInAll = false
	fm.IncludeTermVectors = false
	fm.DocValues = false
	return fm
}

func fieldMapping(kind FieldKind) *mapping.FieldMapping {
	var fm *mapping.FieldMapping
	switch kind {
	case FieldSigned, FieldUnsigned, FieldFloat:
		fm = bleve.NewNumericFieldMapping()
		fm.DocValues = true
		fm.IncludeInAll = false
	case FieldKeyword:
		fm = bleve.NewKeywordFieldMapping()
		fm.IncludeInAll = false
	case FieldBytes:
		fm = bleve.NewTextFieldMapping()
		fm.Index = false
		fm.IncludeInAll = false
		fm.IncludeTermVectors = false
		fm.DocValues = false
	default:
		fm = bleve.NewTextFieldMapping()
		fm.IncludeInAll = true
	}
	// integers are stored through their exact sibling
	fm.Store = !kind.isInteger()
	return fm
}

// MarshalJSON encodes the schema as {"fields":[{"path":..,"kind":..}]}.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Fields []SchemaField `json:"fields"`
	}{Fields: s.fields})
}

// UnmarshalJSON restores a schema written by MarshalJSON.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw struct {
		Fields []SchemaField `json:"fields"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	byPath := make(map[string]FieldKind, len(raw.Fields))
	for _, f := range raw.Fields {
		switch f.Kind {
		case FieldSigned, FieldUnsigned, FieldFloat, FieldBytes, FieldKeyword, FieldText:
		default:
			return fmt.Errorf("unknown field kind %q for path %q", f.Kind, f.Path)
		}
		if _, dup := byPath[f.Path]; dup {
			return fmt.Errorf("duplicate path %q", f.Path)
		}
		byPath[f.Path] = f.Kind
	}
	s.fields = raw.Fields
	s.byPath = byPath
	return s.checkExactFields()
}

// Equal reports whether two schemas have the same fields in the same order.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != o.fields[i] {
			return false
		}
	}
	return true
}
