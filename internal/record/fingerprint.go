package record

import (
	"fmt"
	"hash/fnv"
)

// Fingerprint derives the routing key of a record shape.
//
// It hashes the ordered (path, type tag) sequence with FNV-1a 64, writing a
// zero byte after every component so "ab"+"c" and "a"+"bc" differ. Values
// never contribute, so records of the same shape share a fingerprint. Order
// and repetition do, so lists of different length have different shapes.
func Fingerprint(fields []FlatField) uint64 {
	h := fnv.New64a()
	sep := []byte{0}
	for _, f := range fields {
		_, _ = h.Write([]byte(f.Path))
		_, _ = h.Write(sep)
		_, _ = h.Write([]byte(f.Value.Kind().Tag()))
		_, _ = h.Write(sep)
	}
	return h.Sum64()
}

// Doc is one flattened record together with its shape fingerprint.
type Doc struct {
	Fingerprint uint64
	Fields      []FlatField
}

// Build flattens v and fingerprints the result.
func Build(v any) (*Doc, error) {
	fields, err := Flatten(v)
	if err != nil {
		return nil, err
	}
	return &Doc{Fingerprint: Fingerprint(fields), Fields: fields}, nil
}

// FormatFingerprint renders a fingerprint as fixed-width lowercase hex.
func FormatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}
