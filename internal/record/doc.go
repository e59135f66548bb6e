// Package record turns arbitrary Go values into flat, typed fields and
// derives the shape fingerprint that routes each record to its index.
//
// # Pipeline
//
//	value ──Flatten──▶ []FlatField ──Fingerprint──▶ uint64
//	                        │
//	                        ├──BuildSchema──▶ *Schema ──IndexMapping──▶ bleve mapping
//	                        │
//	                        └──Materialize──▶ Document (map keyed by dotted path)
//
// # Paths
//
// Keys of structs, maps and slog groups become path segments. Slices share
// the current path, so a list of n scalars yields n fields with one path.
// Arrays and [Tuple] values get ordinal segments (_0, _1, ...):
//
//	{a: 1, c: {b: Tuple{"a", "b"}}, d: [13, 42]}
//	  a=Signed(1) c.b._0=Str("a") c.b._1=Str("b") d=Signed(13) d=Signed(42)
//
// Records with the same (path, kind) sequence share a fingerprint and
// therefore a schema and an index.
package record
